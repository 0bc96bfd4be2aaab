// Package signal turns raw inertial-sensor log files into synchronized
// per-channel sequences ready for feature extraction.
package signal

import "fmt"

// DefaultTimeOffset is the per-sample correction added to logged timestamps.
// The logging device drops a fixed interval between samples; adding
// offset*index rebuilds a monotonically increasing virtual clock.
const DefaultTimeOffset = 50

// Channel identifies one of the six sensor axes.
type Channel int

const (
	AccelX Channel = iota
	AccelY
	AccelZ
	GyroX
	GyroY
	GyroZ
	numChannels
)

var channelNames = [...]string{"Accel_X", "Accel_Y", "Accel_Z", "Gyro_X", "Gyro_Y", "Gyro_Z"}

func (c Channel) String() string {
	if c >= 0 && c < numChannels {
		return channelNames[c]
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// Channels returns all sensor channels in column order.
func Channels() []Channel {
	out := make([]Channel, numChannels)
	for i := range out {
		out[i] = Channel(i)
	}
	return out
}

// Signal is one parsed recording. All channels have the same length and
// rows are unique across (channels..., time).
type Signal struct {
	Recording string
	Time      []int64
	channels  [numChannels][]float64
}

// Len returns the number of synchronized rows.
func (s *Signal) Len() int {
	return len(s.Time)
}

// Channel returns the samples for c. The slice must not be modified.
func (s *Signal) Channel(c Channel) []float64 {
	return s.channels[c]
}

// InsufficientDataError reports a recording where at least one sensor
// channel has no usable samples, or the channels cannot be aligned.
type InsufficientDataError struct {
	Recording string
	Channel   string
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("insufficient data in %s: channel %s %s", e.Recording, e.Channel, e.Reason)
	}
	return fmt.Sprintf("insufficient data in %s: %s", e.Recording, e.Reason)
}

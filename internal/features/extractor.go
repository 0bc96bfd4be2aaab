// Package features computes the per-recording feature battery and manages
// the feature tables and schemas shared by training and inference.
package features

import (
	"fmt"
	"math"
	"strings"

	"imu-svm/internal/signal"
)

// DefaultSamplingRate is the effective sampling rate of the logging device in Hz.
const DefaultSamplingRate = 10.0

// DegenerateSignalError reports a channel that cannot produce finite
// features, either because it is too short or a descriptor overflowed.
type DegenerateSignalError struct {
	Recording string
	Channel   string
	Feature   string
	Samples   int
}

func (e *DegenerateSignalError) Error() string {
	if e.Feature != "" {
		return fmt.Sprintf("degenerate signal in %s: %s_%s is not finite", e.Recording, e.Channel, e.Feature)
	}
	return fmt.Sprintf("degenerate signal in %s: channel %s has %d samples, need at least 2", e.Recording, e.Channel, e.Samples)
}

// Extractor applies the feature battery to every channel of a signal and
// yields one vector per recording.
type Extractor struct {
	fs float64
}

// NewExtractor creates an extractor for the given sampling rate in Hz.
func NewExtractor(fs float64) *Extractor {
	if fs <= 0 {
		fs = DefaultSamplingRate
	}
	return &Extractor{fs: fs}
}

// SamplingRate returns the rate used for time-scaled descriptors.
func (e *Extractor) SamplingRate() float64 {
	return e.fs
}

// FeatureNames returns every column the extractor emits, channel-major.
func (e *Extractor) FeatureNames() []string {
	names := make([]string, 0, len(battery)*len(signal.Channels()))
	for _, c := range signal.Channels() {
		for _, f := range battery {
			names = append(names, ColumnName(c.String(), f.name))
		}
	}
	return names
}

// batteryRevision changes whenever a descriptor's formula changes.
const batteryRevision = 2

// Fingerprint identifies the extractor configuration. Cached vectors are
// only valid for an identical fingerprint.
func (e *Extractor) Fingerprint() string {
	return fmt.Sprintf("fs=%g;rev=%d;battery=%s", e.fs, batteryRevision, strings.Join(BatteryNames(), ","))
}

// ColumnName joins a channel and descriptor into a table column name.
func ColumnName(channel, feature string) string {
	return channel + "_" + feature
}

// Extract computes the whole-recording feature vector for sig. The Class
// field is left empty; labelling is the caller's concern.
func (e *Extractor) Extract(sig *signal.Signal) (Vector, error) {
	values := make(map[string]float64, len(battery)*len(signal.Channels()))

	for _, c := range signal.Channels() {
		x := sig.Channel(c)
		if len(x) < 2 {
			return Vector{}, &DegenerateSignalError{Recording: sig.Recording, Channel: c.String(), Samples: len(x)}
		}
		for _, f := range battery {
			v := f.fn(x, e.fs)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Vector{}, &DegenerateSignalError{Recording: sig.Recording, Channel: c.String(), Feature: f.name, Samples: len(x)}
			}
			values[ColumnName(c.String(), f.name)] = v
		}
	}

	return Vector{File: sig.Recording, Values: values}, nil
}

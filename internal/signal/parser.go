package signal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
)

var (
	accPattern  = regexp.MustCompile(`Acc:\s*(-?\d+\.\d+),\s*(-?\d+\.\d+),\s*(-?\d+\.\d+)`)
	gyroPattern = regexp.MustCompile(`Gyro:\s*(-?\d+\.\d+),\s*(-?\d+\.\d+),\s*(-?\d+\.\d+)`)
	timePattern = regexp.MustCompile(`t:\s*(\d+)`)
)

// maxLineSize bounds a single line. Longer lines are dropped like any
// other unmatched line.
const maxLineSize = 64 << 10

var errLineTooLong = errors.New("line exceeds maximum size")

// readLine returns the next line without its terminator. An oversize line
// is consumed up to its end and reported as errLineTooLong. io.EOF is only
// returned once no data is left.
func readLine(r *bufio.Reader) (string, error) {
	line, isPrefix, err := r.ReadLine()
	if err != nil {
		return "", err
	}
	if !isPrefix {
		return string(line), nil
	}
	for isPrefix {
		_, isPrefix, err = r.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return "", errLineTooLong
}

// Parser reads sensor log lines into a Signal. It holds no per-recording
// state and is safe for concurrent use.
type Parser struct {
	timeOffset int64
}

// NewParser creates a parser that corrects timestamps by offset*index.
// A non-positive offset falls back to DefaultTimeOffset.
func NewParser(offset int64) *Parser {
	if offset <= 0 {
		offset = DefaultTimeOffset
	}
	return &Parser{timeOffset: offset}
}

// TimeOffset returns the per-sample clock correction in use.
func (p *Parser) TimeOffset() int64 {
	return p.timeOffset
}

// Parse scans r line by line. Each line may carry an acceleration triplet,
// a gyroscope triplet and a timestamp independently; anything else is
// skipped. The result is deduplicated on full rows.
func (p *Parser) Parse(recording string, r io.Reader) (*Signal, error) {
	var (
		acc, gyro [3][]float64
		times     []int64
		skipped   int
	)

	reader := bufio.NewReaderSize(r, maxLineSize)
	for {
		line, err := readLine(reader)
		if errors.Is(err, errLineTooLong) {
			skipped++
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", recording, err)
		}

		matched := false
		if v, ok := matchTriplet(accPattern, line); ok {
			for i := range acc {
				acc[i] = append(acc[i], v[i])
			}
			matched = true
		}
		if v, ok := matchTriplet(gyroPattern, line); ok {
			for i := range gyro {
				gyro[i] = append(gyro[i], v[i])
			}
			matched = true
		}
		if m := timePattern.FindStringSubmatch(line); m != nil {
			if ts, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				times = append(times, ts)
				matched = true
			}
		}
		if !matched {
			skipped++
		}
	}

	raw := [numChannels][]float64{acc[0], acc[1], acc[2], gyro[0], gyro[1], gyro[2]}
	for c, values := range raw {
		if len(values) == 0 {
			return nil, &InsufficientDataError{Recording: recording, Channel: Channel(c).String(), Reason: "is empty"}
		}
	}
	if len(acc[0]) != len(gyro[0]) {
		return nil, &InsufficientDataError{
			Recording: recording,
			Reason:    fmt.Sprintf("accelerometer has %d samples but gyroscope has %d", len(acc[0]), len(gyro[0])),
		}
	}

	n := len(acc[0])
	clock := make([]int64, n)
	for i := range clock {
		if i < len(times) {
			clock[i] = times[i] + p.timeOffset*int64(i)
		} else {
			clock[i] = p.timeOffset * int64(i)
		}
	}

	sig := dedupe(recording, raw, clock)

	log.Debug().
		Str("recording", recording).
		Int("rows", n).
		Int("unique_rows", sig.Len()).
		Int("timestamps", len(times)).
		Int("skipped_lines", skipped).
		Msg("Parsed recording")

	return sig, nil
}

func matchTriplet(re *regexp.Regexp, line string) ([3]float64, bool) {
	var out [3]float64
	m := re.FindStringSubmatch(line)
	if m == nil {
		return out, false
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return out, false
		}
		out[i] = v
	}
	return out, true
}

type rowKey struct {
	values [numChannels]float64
	time   int64
}

// dedupe keeps the first occurrence of every (channels..., time) row.
func dedupe(recording string, raw [numChannels][]float64, clock []int64) *Signal {
	sig := &Signal{Recording: recording}
	seen := make(map[rowKey]struct{}, len(clock))

	for i := range clock {
		var k rowKey
		for c := range raw {
			k.values[c] = raw[c][i]
		}
		k.time = clock[i]
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		sig.Time = append(sig.Time, clock[i])
		for c := range raw {
			sig.channels[c] = append(sig.channels[c], raw[c][i])
		}
	}
	return sig
}

package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// featureFunc computes one descriptor over a whole channel. Callers
// guarantee len(x) >= 2 and fs > 0.
type featureFunc func(x []float64, fs float64) float64

type featureDef struct {
	name string
	fn   featureFunc
}

// battery holds the temporal and statistical descriptors applied to every
// channel, sorted by name. Spectral descriptors are not part of it.
var battery = []featureDef{
	{"Absolute energy", absoluteEnergy},
	{"Area under the curve", areaUnderCurve},
	{"Centroid", centroid},
	{"Interquartile range", interquartileRange},
	{"Kurtosis", kurtosis},
	{"Max", func(x []float64, _ float64) float64 { return floats.Max(x) }},
	{"Mean", func(x []float64, _ float64) float64 { return stat.Mean(x, nil) }},
	{"Mean absolute deviation", meanAbsoluteDeviation},
	{"Mean absolute diff", meanAbsoluteDiff},
	{"Mean diff", meanDiff},
	{"Median", func(x []float64, _ float64) float64 { return percentile(x, 50) }},
	{"Median absolute deviation", medianAbsoluteDeviation},
	{"Median absolute diff", medianAbsoluteDiff},
	{"Median diff", medianDiff},
	{"Min", func(x []float64, _ float64) float64 { return floats.Min(x) }},
	{"Negative turning points", negativeTurningPoints},
	{"Peak to peak distance", func(x []float64, _ float64) float64 { return floats.Max(x) - floats.Min(x) }},
	{"Positive turning points", positiveTurningPoints},
	{"Root mean square", rootMeanSquare},
	{"Signal distance", signalDistance},
	{"Skewness", skewness},
	{"Slope", slope},
	{"Standard deviation", func(x []float64, _ float64) float64 { return stat.PopStdDev(x, nil) }},
	{"Sum absolute diff", sumAbsoluteDiff},
	{"Total energy", totalEnergy},
	{"Variance", func(x []float64, _ float64) float64 { return stat.PopVariance(x, nil) }},
	{"Zero crossing rate", zeroCrossingRate},
}

// BatteryNames returns the per-channel descriptor names in column order.
func BatteryNames() []string {
	names := make([]string, len(battery))
	for i, f := range battery {
		names[i] = f.name
	}
	return names
}

func diff(x []float64) []float64 {
	d := make([]float64, len(x)-1)
	for i := range d {
		d[i] = x[i+1] - x[i]
	}
	return d
}

func absAll(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Abs(v)
	}
	return out
}

// percentile uses linear interpolation between closest ranks, the same
// definition numpy applies by default, so values line up with tables
// produced by the Python tooling.
func percentile(x []float64, p float64) float64 {
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)

	pos := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return s[lo] + (s[hi]-s[lo])*(pos-float64(lo))
}

func absoluteEnergy(x []float64, _ float64) float64 {
	return floats.Dot(x, x)
}

// areaUnderCurve sums unsigned trapezoids over t = i/fs, so swings below
// zero add to the area instead of cancelling it.
func areaUnderCurve(x []float64, fs float64) float64 {
	var area float64
	for i := 1; i < len(x); i++ {
		area += math.Abs(x[i]+x[i-1]) / 2
	}
	return area / fs
}

func centroid(x []float64, fs float64) float64 {
	var weighted, energy float64
	for i, v := range x {
		e := v * v
		weighted += float64(i) / fs * e
		energy += e
	}
	if energy == 0 {
		return 0
	}
	return weighted / energy
}

func interquartileRange(x []float64, _ float64) float64 {
	return percentile(x, 75) - percentile(x, 25)
}

// centralMoment returns the biased k-th central moment.
func centralMoment(x []float64, k float64) float64 {
	mean := stat.Mean(x, nil)
	var sum float64
	for _, v := range x {
		sum += math.Pow(v-mean, k)
	}
	return sum / float64(len(x))
}

// kurtosis is the biased Fisher (excess) kurtosis; 0 for a constant channel.
func kurtosis(x []float64, _ float64) float64 {
	m2 := centralMoment(x, 2)
	if m2 == 0 {
		return 0
	}
	return centralMoment(x, 4)/(m2*m2) - 3
}

// skewness is the biased sample skewness; 0 for a constant channel.
func skewness(x []float64, _ float64) float64 {
	m2 := centralMoment(x, 2)
	if m2 == 0 {
		return 0
	}
	return centralMoment(x, 3) / math.Pow(m2, 1.5)
}

func meanAbsoluteDeviation(x []float64, _ float64) float64 {
	mean := stat.Mean(x, nil)
	var sum float64
	for _, v := range x {
		sum += math.Abs(v - mean)
	}
	return sum / float64(len(x))
}

func medianAbsoluteDeviation(x []float64, _ float64) float64 {
	med := percentile(x, 50)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - med)
	}
	return percentile(dev, 50)
}

func meanAbsoluteDiff(x []float64, _ float64) float64 {
	return stat.Mean(absAll(diff(x)), nil)
}

func meanDiff(x []float64, _ float64) float64 {
	return stat.Mean(diff(x), nil)
}

func medianAbsoluteDiff(x []float64, _ float64) float64 {
	return percentile(absAll(diff(x)), 50)
}

func medianDiff(x []float64, _ float64) float64 {
	return percentile(diff(x), 50)
}

func negativeTurningPoints(x []float64, _ float64) float64 {
	d := diff(x)
	var n int
	for i := 0; i+1 < len(d); i++ {
		if d[i] < 0 && d[i+1] > 0 {
			n++
		}
	}
	return float64(n)
}

func positiveTurningPoints(x []float64, _ float64) float64 {
	d := diff(x)
	var n int
	for i := 0; i+1 < len(d); i++ {
		if d[i] > 0 && d[i+1] < 0 {
			n++
		}
	}
	return float64(n)
}

func rootMeanSquare(x []float64, _ float64) float64 {
	return math.Sqrt(floats.Dot(x, x) / float64(len(x)))
}

func signalDistance(x []float64, _ float64) float64 {
	var dist float64
	for _, d := range diff(x) {
		dist += math.Sqrt(1 + d*d)
	}
	return dist
}

// slope is the least-squares line slope against the sample index.
func slope(x []float64, _ float64) float64 {
	t := make([]float64, len(x))
	for i := range t {
		t[i] = float64(i)
	}
	_, beta := stat.LinearRegression(t, x, nil, false)
	return beta
}

func sumAbsoluteDiff(x []float64, _ float64) float64 {
	return floats.Sum(absAll(diff(x)))
}

// totalEnergy is the signal energy divided by the recording duration.
func totalEnergy(x []float64, fs float64) float64 {
	duration := float64(len(x)-1) / fs
	return floats.Dot(x, x) / duration
}

func zeroCrossingRate(x []float64, _ float64) float64 {
	var n int
	for i := 1; i < len(x); i++ {
		if sign(x[i]) != sign(x[i-1]) {
			n++
		}
	}
	return float64(n)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

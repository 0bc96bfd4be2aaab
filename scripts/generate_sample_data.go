//go:build ignore

package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// gesture describes the shape of one synthetic motion class.
type gesture struct {
	name      string
	gyroAmp   float64
	accZ      float64
	frequency float64
}

var gestures = []gesture{
	{name: "walk", gyroAmp: 0.4, accZ: 9.8, frequency: 0.3},
	{name: "run", gyroAmp: 1.6, accZ: 11.0, frequency: 0.6},
	{name: "jump", gyroAmp: 3.0, accZ: 12.5, frequency: 0.4},
}

func main() {
	var (
		outDir  = flag.String("out", "recordings", "Directory to write recordings into")
		takes   = flag.Int("takes", 5, "Recordings per gesture")
		samples = flag.Int("samples", 60, "Samples per recording")
		noise   = flag.Float64("noise", 0.05, "Gaussian noise standard deviation")
		seed    = flag.Int64("seed", 1, "Random seed")
	)
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	rng := rand.New(rand.NewSource(*seed))

	count := 0
	for _, g := range gestures {
		for k := 0; k < *takes; k++ {
			path := filepath.Join(*outDir, fmt.Sprintf("%s_%02d.txt", g.name, k))
			if err := os.WriteFile(path, []byte(generateRecording(rng, g, *samples, *noise)), 0o644); err != nil {
				log.Fatalf("Failed to write %s: %v", path, err)
			}
			count++
		}
	}

	fmt.Printf("✓ Generated %d recordings in %s\n", count, *outDir)
}

// generateRecording emits lines in the sensor logger's text format.
func generateRecording(rng *rand.Rand, g gesture, samples int, noise float64) string {
	var b strings.Builder
	phase := rng.Float64() * math.Pi
	for i := 0; i < samples; i++ {
		x := g.frequency*float64(i) + phase
		n := func() float64 { return rng.NormFloat64() * noise }
		fmt.Fprintf(&b, "t: %d Acc: %.4f, %.4f, %.4f Gyro: %.4f, %.4f, %.4f\n",
			i*100,
			0.3*math.Sin(x)+n(), 0.2*math.Cos(x)+n(), g.accZ+0.1*math.Sin(2*x)+n(),
			g.gyroAmp*math.Sin(x)+n(), 0.5*g.gyroAmp*math.Cos(x)+n(), g.gyroAmp*math.Abs(math.Sin(x/2))+n())
	}
	return b.String()
}

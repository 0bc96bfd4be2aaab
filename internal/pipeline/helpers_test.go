package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// gesture renders a recording whose gyroscope amplitude and vertical
// acceleration depend on the class, with a small per-take variation.
func gesture(class string, take int) string {
	amp, accZ := 0.4, 9.8
	switch class {
	case "jump":
		amp, accZ = 3.0, 12.5
	case "run":
		amp, accZ = 1.6, 11.0
	}
	var b strings.Builder
	for i := 0; i < 40; i++ {
		x := float64(i)/3 + 0.2*float64(take)
		fmt.Fprintf(&b, "t: %d Acc: %.4f, %.4f, %.4f Gyro: %.4f, %.4f, %.4f\n",
			i*100,
			0.3*math.Sin(x), 0.2*math.Cos(x), accZ+0.05*math.Sin(2*x),
			amp*math.Sin(x)+0.05*float64(take), 0.5*amp*math.Cos(x), amp*math.Abs(math.Sin(x/2)))
	}
	return b.String()
}

// writeRecordings creates files in a fresh directory and returns it.
func writeRecordings(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func gestureSet(classes []string, takes int) map[string]string {
	files := make(map[string]string)
	for _, c := range classes {
		for k := 0; k < takes; k++ {
			files[fmt.Sprintf("%s_%02d.txt", c, k)] = gesture(c, k)
		}
	}
	return files
}

// onlyAccel has no gyroscope lines at all.
const onlyAccel = "t: 0 Acc: 1.0, 2.0, 3.0\nt: 100 Acc: 1.5, 2.5, 3.5\n"

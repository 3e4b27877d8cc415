// Command dfbcoeff authors and inspects internal/dfb coefficient files:
// "gen" writes a windowed-sinc polyphase prototype filter of the
// requested length/foldings, "inspect" parses an existing file and
// reports its header and basic coefficient statistics. It is the Go
// counterpart of the teacher's small single-purpose cmd/ tools
// (ll2utm, utm2ll) that wrap one internal/ package behind a CLI.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/pflag"

	"github.com/opensonata/dxcore/internal/dfb"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "gen":
		runGen(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: dfbcoeff gen [flags] | dfbcoeff inspect <file>")
}

func runGen(args []string) {
	fs := pflag.NewFlagSet("gen", pflag.ExitOnError)
	length := fs.IntP("length", "l", 64, "Prototype filter length (per folding).")
	foldings := fs.IntP("foldings", "f", 8, "Number of foldings (blocks).")
	overlap := fs.IntP("overlap", "o", -1, "Overlap in samples (-1: library default).")
	out := fs.StringP("out", "O", "", "Output file (empty: stdout).")
	fs.Parse(args)

	coeffs := windowedSinc(*length * *foldings)

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintln(os.Stderr, "creating output file:", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	fmt.Fprintf(w, "Length=%d\n", *length)
	fmt.Fprintf(w, "Foldings=%d\n", *foldings)
	if *overlap >= 0 {
		fmt.Fprintf(w, "Overlap=%d\n", *overlap)
	}
	for _, c := range coeffs {
		fmt.Fprintf(w, "%.9g\n", c)
	}
}

// windowedSinc generates a Hamming-windowed sinc low-pass prototype of
// length n, normalized to unit peak, matching the shape (if not the
// exact coefficients) of the reference polyphase filter bank's
// factory-shipped prototype filters.
func windowedSinc(n int) []float32 {
	out := make([]float32, n)
	center := float64(n-1) / 2
	cutoff := 1.0 / float64(n)
	var peak float64
	for i := 0; i < n; i++ {
		x := float64(i) - center
		var sinc float64
		if x == 0 {
			sinc = 2 * cutoff
		} else {
			sinc = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}
		window := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		v := sinc * window
		out[i] = float32(v)
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	if peak > 0 {
		for i := range out {
			out[i] = float32(float64(out[i]) / peak)
		}
	}
	return out
}

func runInspect(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening coefficient file:", err)
		os.Exit(1)
	}
	defer f.Close()

	cf, err := dfb.ReadCoeffFile(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parsing coefficient file:", err)
		os.Exit(1)
	}

	var sum, sumSq, minV, maxV float64
	minV, maxV = math.Inf(1), math.Inf(-1)
	for _, c := range cf.Coeff {
		v := float64(c)
		sum += v
		sumSq += v * v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	n := float64(len(cf.Coeff))
	mean := sum / n
	rms := math.Sqrt(sumSq / n)

	fmt.Printf("Length=%d Foldings=%d Overlap=%d\n", cf.Length, cf.Foldings, cf.Overlap)
	fmt.Printf("coefficients=%d sum=%.6g mean=%.6g rms=%.6g min=%.6g max=%.6g\n",
		len(cf.Coeff), sum, mean, rms, minV, maxV)
}

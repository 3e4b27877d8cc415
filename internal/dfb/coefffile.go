package dfb

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/opensonata/dxcore/internal/dxerr"
)

// CoeffFile is a parsed filter-coefficient text file: a small header of
// `Key=value` lines (Length, Foldings, Overlap), `#`-prefixed comment
// lines, blank lines, and one floating-point coefficient per remaining
// line, matching the format the teacher's own config-file reader style
// uses for key/value text configuration (src/config.go).
type CoeffFile struct {
	Length   int
	Foldings int
	Overlap  int
	Coeff    []float32
}

// ReadCoeffFile parses a coefficient file from r.
func ReadCoeffFile(r io.Reader) (*CoeffFile, error) {
	cf := &CoeffFile{Overlap: -1}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if key, val, ok := strings.Cut(text, "="); ok {
			key = strings.TrimSpace(key)
			val = strings.TrimSpace(val)
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, dxerr.Wrap(dxerr.KindConfiguration, err, "coefficient file line %d: bad integer %q", line, val)
			}
			switch strings.ToLower(key) {
			case "length":
				cf.Length = n
			case "foldings":
				cf.Foldings = n
			case "overlap":
				cf.Overlap = n
			default:
				return nil, dxerr.New(dxerr.KindConfiguration, "coefficient file line %d: unknown header key %q", line, key)
			}
			continue
		}
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, dxerr.Wrap(dxerr.KindConfiguration, err, "coefficient file line %d: bad coefficient %q", line, text)
		}
		cf.Coeff = append(cf.Coeff, float32(v))
	}
	if err := sc.Err(); err != nil {
		return nil, dxerr.Wrap(dxerr.KindConfiguration, err, "reading coefficient file")
	}
	if cf.Length <= 0 || cf.Foldings <= 0 {
		return nil, dxerr.New(dxerr.KindConfiguration, "coefficient file missing Length/Foldings header")
	}
	if len(cf.Coeff) != cf.Length*cf.Foldings {
		return nil, dxerr.New(dxerr.KindConfiguration,
			"coefficient file declares Length=%d Foldings=%d but has %d coefficients",
			cf.Length, cf.Foldings, len(cf.Coeff))
	}
	return cf, nil
}

// NewFilter builds and configures a Filter directly from a parsed
// coefficient file, using its own Overlap if set, else DefaultOverlapNum/Den
// of fftLen.
func NewFilter(cf *CoeffFile, fftLen int) (*Filter, error) {
	f := &Filter{}
	if err := f.SetCoefficients(cf.Coeff, cf.Length, cf.Foldings); err != nil {
		return nil, err
	}
	overlap := cf.Overlap
	if overlap < 0 {
		overlap = fftLen * DefaultOverlapNum / DefaultOverlapDen
	}
	if err := f.Configure(fftLen, overlap); err != nil {
		return nil, err
	}
	return f, nil
}

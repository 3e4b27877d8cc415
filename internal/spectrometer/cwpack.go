package spectrometer

import (
	"math"

	"github.com/opensonata/dxcore/internal/model"
)

// hanningAdjustScale is √(8/3)/2, the fixed scale factor spec.md §4.3
// step 4 applies after the three-tap Hanning-style smoothing of adjacent
// bins.
var hanningAdjustScale = float32(math.Sqrt(8.0/3.0) / 2.0)

// PackCwPower applies the Hanning bin adjustment to one spectrum and
// packs the resulting clamped 2-bit power levels into grid at the given
// spectrum index.
func PackCwPower(spectrum []complex64, grid *model.CwPowerGrid, spectrumIdx int) {
	n := len(spectrum)
	for bin := 0; bin < n; bin++ {
		prev := spectrum[(bin-1+n)%n]
		cur := spectrum[bin]
		next := spectrum[(bin+1)%n]
		adj := complex(
			real(cur)+0.5*(real(prev)+real(next)),
			imag(cur)+0.5*(imag(prev)+imag(next)),
		)
		re := real(adj) * hanningAdjustScale
		im := imag(adj) * hanningAdjustScale
		power := re*re + im*im
		grid.Set(spectrumIdx, bin, powerToLevel(power))
	}
}

func powerToLevel(power float32) uint8 {
	switch {
	case power < 1:
		return 0
	case power < 2:
		return 1
	case power < 3:
		return 2
	default:
		return 3
	}
}

package spectrometer

import "github.com/opensonata/dxcore/internal/model"

// EmitCD converts one (already baselined) half-frame's samples for a
// subchannel into the CD grid's packed 4-bit signed (re,im) encoding,
// per spec.md §4.3 step 2. Masked subchannels should call EmitMaskedCD
// instead.
func EmitCD(samples []complex64, grid *model.CDGrid, sub int) {
	for i, s := range samples {
		grid.Set(sub, i, int32(real(s)), int32(imag(s)))
	}
}

// EmitMaskedCD zero-fills a masked subchannel's CD entries.
func EmitMaskedCD(grid *model.CDGrid, sub, samplesPerHF int) {
	for i := 0; i < samplesPerHF; i++ {
		grid.Zero(sub, i)
	}
}

// Package sampler derives small analysis rasters from full-resolution frames.
// Detection runs on every tick, so the downscale has to be cheap: a plain
// nearest-neighbor point sample, no filtering.
package sampler

import (
	"github.com/chifascan/scanner/pkg/core"
)

// DefaultAnalysisWidth is the analysis raster width used when none is
// configured. Height follows the source aspect ratio.
const DefaultAnalysisWidth = 120

// Sampler produces FrameSamples at a fixed analysis width.
type Sampler struct {
	analysisWidth int

	// scratch buffer reused across ticks so steady-state sampling
	// allocates nothing.
	buf []byte
}

// New returns a Sampler producing rasters of the given width. Non-positive
// widths fall back to DefaultAnalysisWidth.
func New(analysisWidth int) *Sampler {
	if analysisWidth <= 0 {
		analysisWidth = DefaultAnalysisWidth
	}
	return &Sampler{analysisWidth: analysisWidth}
}

// Sample downscales one frame to analysis resolution. Returns ok=false for
// an absent or unready frame, in which case the tick is skipped upstream.
func (s *Sampler) Sample(f core.Frame) (core.FrameSample, bool) {
	if f.Empty() {
		return core.FrameSample{}, false
	}

	w := s.analysisWidth
	if w > f.Width {
		w = f.Width
	}
	h := f.Height * w / f.Width
	if h < 1 {
		h = 1
	}

	need := w * h * 4
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	pix := s.buf[:need]

	srcStride := f.Width * 4
	for y := 0; y < h; y++ {
		srcY := y * f.Height / h
		srcRow := srcY * srcStride
		dstRow := y * w * 4
		for x := 0; x < w; x++ {
			srcOff := srcRow + (x*f.Width/w)*4
			dstOff := dstRow + x*4
			pix[dstOff+0] = f.Pix[srcOff+0]
			pix[dstOff+1] = f.Pix[srcOff+1]
			pix[dstOff+2] = f.Pix[srcOff+2]
			pix[dstOff+3] = f.Pix[srcOff+3]
		}
	}

	return core.FrameSample{Width: w, Height: h, Pix: pix}, true
}

package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chifascan/scanner/pkg/core"
)

func solidSample(w, h int, r, g, b byte) core.FrameSample {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = r
		pix[i+1] = g
		pix[i+2] = b
		pix[i+3] = 255
	}
	return core.FrameSample{Width: w, Height: h, Pix: pix}
}

func TestAnalyze_MarkerGreen(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	cases := []struct {
		name    string
		r, g, b byte
		match   bool
	}{
		{"typical marker green", 40, 160, 50, true},
		{"dark green below band", 10, 50, 10, false},
		{"bright green above band", 60, 220, 60, false},
		{"green without margin over red", 150, 160, 50, false},
		{"green without margin over blue", 40, 160, 150, false},
		{"white", 255, 255, 255, false},
		{"black", 0, 0, 0, false},
		{"red", 200, 40, 40, false},
		{"band edges inclusive low", 20, 60, 20, true},
		{"band edges inclusive high", 100, 200, 100, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metric := d.Analyze(solidSample(10, 10, tc.r, tc.g, tc.b))
			if tc.match {
				assert.Equal(t, 1.0, metric)
			} else {
				assert.Equal(t, 0.0, metric)
			}
		})
	}
}

func TestAnalyze_Fraction(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	// 25 of 100 pixels marker-colored.
	s := solidSample(10, 10, 0, 0, 0)
	for i := 0; i < 25; i++ {
		off := i * 4
		s.Pix[off] = 40
		s.Pix[off+1] = 160
		s.Pix[off+2] = 50
	}

	assert.InDelta(t, 0.25, d.Analyze(s), 1e-9)
}

func TestAnalyze_EmptySample(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 0.0, d.Analyze(core.FrameSample{}))
}

func TestAnalyze_ROILimitsAnalysis(t *testing.T) {
	cfg := DefaultConfig()
	// Left half of the frame only.
	cfg.ROI = "POLYGON((0 0, 0.5 0, 0.5 1, 0 1, 0 0))"
	d, err := New(cfg)
	require.NoError(t, err)

	// Marker color fills the right half only; with the ROI on the left
	// half the metric must be zero.
	const w, h = 20, 10
	s := solidSample(w, h, 0, 0, 0)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			off := (y*w + x) * 4
			s.Pix[off] = 40
			s.Pix[off+1] = 160
			s.Pix[off+2] = 50
		}
	}
	assert.Equal(t, 0.0, d.Analyze(s))

	// Marker filling the left half saturates the ROI metric.
	s2 := solidSample(w, h, 0, 0, 0)
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			off := (y*w + x) * 4
			s2.Pix[off] = 40
			s2.Pix[off+1] = 160
			s2.Pix[off+2] = 50
		}
	}
	assert.Equal(t, 1.0, d.Analyze(s2))
}

func TestNew_InvalidROI(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ROI = "POLYGON((not wkt"
	_, err := New(cfg)
	assert.Error(t, err)
}

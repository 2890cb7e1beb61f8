// Package detector classifies analysis rasters as "marker present" or not.
// The marker is a green sticker; per pixel we run a loose green-dominance
// test tuned to its hue, deliberately tolerant of lighting variation. False
// positives and negatives are expected and absorbed downstream by the
// stabilization window.
package detector

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/chifascan/scanner/pkg/core"
)

// Config holds the color classification thresholds.
type Config struct {
	// ChannelMargin is how far green must exceed both red and blue.
	ChannelMargin int
	// GreenMin and GreenMax bound the accepted green brightness band.
	GreenMin int
	GreenMax int
	// RedBlueMax is the upper bound on the red and blue channels.
	RedBlueMax int
	// ROI is an optional WKT polygon in normalized [0,1]x[0,1] frame
	// coordinates. When set, only pixels inside it are analyzed.
	ROI string
}

// DefaultConfig returns the thresholds the marker stickers were tuned
// against.
func DefaultConfig() Config {
	return Config{
		ChannelMargin: 20,
		GreenMin:      60,
		GreenMax:      200,
		RedBlueMax:    150,
	}
}

// Detector computes detection metrics from frame samples.
type Detector struct {
	cfg Config
	roi geom.Geometry
	// mask caches per-pixel ROI membership for the last seen sample
	// resolution.
	mask     []bool
	maskW    int
	maskH    int
	maskSize int
}

// New builds a Detector. An invalid ROI polygon is an error; an empty ROI
// string means the whole frame is analyzed.
func New(cfg Config) (*Detector, error) {
	d := &Detector{cfg: cfg}
	if cfg.ROI != "" {
		g, err := geom.UnmarshalWKT(cfg.ROI)
		if err != nil {
			return nil, fmt.Errorf("parsing roi polygon: %w", err)
		}
		d.roi = g
	}
	return d, nil
}

// Analyze returns the fraction of analyzed pixels matching the marker color
// profile. Always in [0,1]; an empty sample yields 0.
func (d *Detector) Analyze(sample core.FrameSample) float64 {
	total := sample.PixelCount()
	if total == 0 || len(sample.Pix) < total*4 {
		return 0
	}

	mask := d.roiMask(sample.Width, sample.Height)

	matches := 0
	analyzed := 0
	for i := 0; i < total; i++ {
		if mask != nil && !mask[i] {
			continue
		}
		analyzed++

		off := i * 4
		r := int(sample.Pix[off])
		g := int(sample.Pix[off+1])
		b := int(sample.Pix[off+2])

		if g >= r+d.cfg.ChannelMargin &&
			g >= b+d.cfg.ChannelMargin &&
			g >= d.cfg.GreenMin && g <= d.cfg.GreenMax &&
			r < d.cfg.RedBlueMax && b < d.cfg.RedBlueMax {
			matches++
		}
	}

	if analyzed == 0 {
		return 0
	}
	return float64(matches) / float64(analyzed)
}

// roiMask returns the cached membership mask for the given resolution,
// rebuilding it when the resolution changes. Nil means no ROI configured.
func (d *Detector) roiMask(w, h int) []bool {
	if d.roi.IsEmpty() && d.cfg.ROI == "" {
		return nil
	}
	if d.mask != nil && d.maskW == w && d.maskH == h {
		return d.mask
	}

	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Pixel centers in normalized frame coordinates.
			pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{
				X: (float64(x) + 0.5) / float64(w),
				Y: (float64(y) + 0.5) / float64(h),
			}})
			mask[y*w+x] = geom.Intersects(d.roi, pt.AsGeometry())
		}
	}

	d.mask = mask
	d.maskW = w
	d.maskH = h
	return mask
}

// pkg/core/frame.go
package core

import (
	"image"
	"time"
)

// Frame is a single full-resolution video frame in RGBA layout.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	// Pix holds 4 bytes per pixel (R, G, B, A), row-major.
	Pix []byte
}

// Empty reports whether the frame carries no pixel data.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Pix) < f.Width*f.Height*4
}

// RGBA wraps the frame's pixel buffer as an image without copying.
func (f Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FrameSample is a low-resolution raster derived from a Frame for per-tick
// analysis. It is recreated every tick and never retained.
type FrameSample struct {
	Width  int
	Height int
	// Pix holds 4 bytes per pixel (R, G, B, A), row-major.
	Pix []byte
}

// PixelCount returns the number of analyzable pixels in the sample.
func (s FrameSample) PixelCount() int {
	return s.Width * s.Height
}

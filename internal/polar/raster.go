package polar

import "github.com/n0remac/holofan/internal/fanerr"

// Raster is a square, 8-bit-per-channel RGB image in row-major order,
// three bytes per pixel (R, G, B). It is the codec's input shape:
// callers working from gocv.Mat (BGR) or image.Image convert into this
// shape before calling EncodeFrame (see internal/stream's Preprocess
// and this package's NewRasterFromImage).
type Raster struct {
	Side int // width == height
	Pix  []byte
}

// NewRaster validates and wraps a square RGB pixel buffer.
func NewRaster(side int, pix []byte) (*Raster, error) {
	if side < 1 {
		return nil, fanerr.ErrInvalidInput
	}
	if len(pix) != side*side*3 {
		return nil, fanerr.ErrInvalidInput
	}
	return &Raster{Side: side, Pix: pix}, nil
}

// at returns the R,G,B triple at pixel (x, y), clamping coordinates
// into range (callers only ever pass in-range coordinates by
// construction, but clamping keeps this defensive against rounding at
// the unit-square edges).
func (r *Raster) at(x, y int) (uint8, uint8, uint8) {
	if x < 0 {
		x = 0
	}
	if x >= r.Side {
		x = r.Side - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= r.Side {
		y = r.Side - 1
	}
	i := (y*r.Side + x) * 3
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

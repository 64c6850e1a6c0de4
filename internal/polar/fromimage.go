package polar

import (
	"image"

	ximgdraw "golang.org/x/image/draw"

	"github.com/n0remac/holofan/internal/fanerr"
)

// NewRasterFromImage centre-crops img to its largest square and
// resamples it to side x side using a Catmull-Rom kernel, producing a
// Raster suitable for Encoder.EncodeFrame. This is the offline/file
// path (still images and pre-rendered animation frames); the live
// capture paths in internal/stream use gocv instead (Preprocess wraps
// each raw BGR frame in a gocv.Mat).
func NewRasterFromImage(img image.Image, side int) (*Raster, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fanerr.ErrInvalidInput
	}
	cropSide := w
	if h < cropSide {
		cropSide = h
	}
	x0 := b.Min.X + (w-cropSide)/2
	y0 := b.Min.Y + (h-cropSide)/2
	cropRect := image.Rect(x0, y0, x0+cropSide, y0+cropSide)

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	ximgdraw.CatmullRom.Scale(dst, dst.Bounds(), img, cropRect, ximgdraw.Over, nil)

	pix := make([]byte, side*side*3)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			i := dst.PixOffset(x, y)
			o := (y*side + x) * 3
			pix[o] = dst.Pix[i]
			pix[o+1] = dst.Pix[i+1]
			pix[o+2] = dst.Pix[i+2]
		}
	}
	return NewRaster(side, pix)
}

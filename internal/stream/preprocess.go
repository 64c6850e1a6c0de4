package stream

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/n0remac/holofan/internal/polar"
)

// Preprocess turns one raw BGR capture frame into a square RGB Raster
// ready for polar.Encoder: centre-crop to the largest square, resize to
// side x side, then zero every pixel outside the inscribed circle the
// fan physically sweeps.
//
// Mirrors a capture-to-fan reference pipeline's centre-crop,
// resize-to-square, and circular-mask steps, wrapping the raw frame
// bytes in a gocv.Mat for the crop/resize.
func Preprocess(pix []byte, width, height, side int) (*polar.Raster, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height*3 {
		return nil, fmt.Errorf("stream: preprocess: frame is %dx%d but payload is %d bytes", width, height, len(pix))
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, pix)
	if err != nil {
		return nil, fmt.Errorf("stream: preprocess: mat from bytes: %w", err)
	}
	defer mat.Close()

	cropSide := width
	if height < cropSide {
		cropSide = height
	}
	x0 := (width - cropSide) / 2
	y0 := (height - cropSide) / 2
	cropped := mat.Region(image.Rect(x0, y0, x0+cropSide, y0+cropSide))
	defer cropped.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(cropped, &resized, image.Pt(side, side), 0, 0, gocv.InterpolationLinear)

	bgr := resized.ToBytes()
	rgb := make([]byte, side*side*3)
	centre := float64(side-1) / 2
	radius := float64(side) / 2
	for y := 0; y < side; y++ {
		dy := float64(y) - centre
		for x := 0; x < side; x++ {
			dx := float64(x) - centre
			i := (y*side + x) * 3
			if dx*dx+dy*dy > radius*radius {
				continue // outside the disc stays black (RGB zero)
			}
			// gocv Mats are BGR-ordered; Raster wants RGB.
			rgb[i] = bgr[i+2]
			rgb[i+1] = bgr[i+1]
			rgb[i+2] = bgr[i]
		}
	}

	return polar.NewRaster(side, rgb)
}

// Package polar implements the cartesian-to-polar encoder: it maps a
// square RGB raster to the fan's native 2700-ray x 42-byte-per-ray
// binary representation via a precomputed bilinear-sample lookup table
// and the ordered-dither bit packer in internal/dither.
//
// The lookup-table construction and per-ray encode loop are ported
// from a reference fan-protocol encoder's lookup-table builder and
// frame encoder, generalized to run ray encoding concurrently.
package polar

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/n0remac/holofan/internal/dither"
	"github.com/n0remac/holofan/internal/fanerr"
)

// Defaults for the target hardware.
const (
	DefaultRays = 2700
	DefaultLEDs = 224
)

// BytesPerRay is 42 at the defaults: (224/2) LEDs * 3 channel bits / 8.
func BytesPerRay(nLEDs int) int {
	return (nLEDs / 2 * 3) / 8
}

// FrameSize returns the exact encoded-frame byte count for the given
// geometry, 113,400 at defaults.
func FrameSize(nRays, nLEDs int) int {
	return nRays * BytesPerRay(nLEDs)
}

// Encoder holds the precomputed per-(ray,led) sample-coordinate tables
// for one (nRays, nLEDs, side) geometry. Tables are immutable after
// construction and safe to share read-only across goroutines.
type Encoder struct {
	nRays, nLEDs, side int
	halfLEDs           int
	lookupX, lookupY   [][]float64 // [ray][led] -> pixel coordinate in [0, side-1]
}

// NewEncoder precomputes the angle/radius lookup tables for a given
// ray/LED count and square image side length. Side must match the
// raster side every EncodeFrame call will use.
func NewEncoder(nRays, nLEDs, side int) (*Encoder, error) {
	if nRays < 1 || nLEDs < 2 || side < 1 {
		return nil, fanerr.ErrInvalidInput
	}
	half := nLEDs / 2
	e := &Encoder{
		nRays:    nRays,
		nLEDs:    nLEDs,
		side:     side,
		halfLEDs: half,
		lookupX:  make([][]float64, nRays),
		lookupY:  make([][]float64, nRays),
	}
	for ray := 0; ray < nRays; ray++ {
		// Angle direction is reversed relative to the ray index, a
		// hardware peculiarity of the propeller's rotation, not an
		// arbitrary choice. Getting this sign wrong mirrors the
		// image left-right.
		phi := 2 * math.Pi * float64(nRays-ray) / float64(nRays)
		cos, sin := math.Cos(phi), math.Sin(phi)

		xs := make([]float64, half)
		ys := make([]float64, half)
		for led := 0; led < half; led++ {
			// Normalized radius sweeps 0..0.5: divides by the full
			// LED count even though only the half-strip is emitted.
			rho := (float64(led) + 0.5) / float64(nLEDs)
			u := 0.5 + rho*cos
			v := 0.5 + rho*sin
			xs[led] = u * float64(side-1)
			ys[led] = v * float64(side-1)
		}
		e.lookupX[ray] = xs
		e.lookupY[ray] = ys
	}
	return e, nil
}

// Rays returns the configured ray count.
func (e *Encoder) Rays() int { return e.nRays }

// LEDs returns the configured (full-strip) LED count.
func (e *Encoder) LEDs() int { return e.nLEDs }

// FrameSize returns this encoder's exact encoded-frame byte count.
func (e *Encoder) FrameSize() int { return FrameSize(e.nRays, e.nLEDs) }

// EncodeFrame converts a square RGB raster into the fan's polar byte
// representation: nRays * BytesPerRay(nLEDs) bytes, deterministic for
// a given raster.
func (e *Encoder) EncodeFrame(r *Raster) ([]byte, error) {
	if r.Side != e.side {
		return nil, fanerr.ErrInvalidInput
	}
	bytesPerRay := BytesPerRay(e.nLEDs)
	out := make([]byte, e.nRays*bytesPerRay)

	g := new(errgroup.Group)
	// Cap concurrency to a sane worker count; ray encoding is cheap
	// per unit but there are thousands of them.
	const workers = 8
	chunk := (e.nRays + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= e.nRays {
			break
		}
		if end > e.nRays {
			end = e.nRays
		}
		start, end := start, end // capture
		g.Go(func() error {
			for ray := start; ray < end; ray++ {
				e.encodeRayInto(r, ray, out[ray*bytesPerRay:(ray+1)*bytesPerRay])
			}
			return nil
		})
	}
	_ = g.Wait() // encodeRayInto never errors; ordering preserved by disjoint output slices

	return out, nil
}

func (e *Encoder) encodeRayInto(r *Raster, ray int, dst []byte) {
	xs, ys := e.lookupX[ray], e.lookupY[ray]
	p := dither.NewPacker(e.halfLEDs * 3)
	for led := 0; led < e.halfLEDs; led++ {
		x, y := xs[led], ys[led]
		red, green, blue := bilinearSample(r, x, y)
		p.Push(dither.Bit(x, y, red))
		p.Push(dither.Bit(x, y, green))
		p.Push(dither.Bit(x, y, blue))
	}
	copy(dst, p.Bytes())
}

// bilinearSample interpolates the four neighbours of (x, y) in raster
// r, returning the RGB triple truncated toward zero after blending.
func bilinearSample(r *Raster, x, y float64) (uint8, uint8, uint8) {
	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	if x1 >= r.Side {
		x1 = r.Side - 1
	}
	y1 := y0 + 1
	if y1 >= r.Side {
		y1 = r.Side - 1
	}
	xd := x - float64(x0)
	yd := y - float64(y0)

	r00, g00, b00 := r.at(x0, y0)
	r01, g01, b01 := r.at(x1, y0)
	r10, g10, b10 := r.at(x0, y1)
	r11, g11, b11 := r.at(x1, y1)

	blend := func(v00, v01, v10, v11 uint8) uint8 {
		f := float64(v00)*(1-xd)*(1-yd) +
			float64(v01)*xd*(1-yd) +
			float64(v10)*(1-xd)*yd +
			float64(v11)*xd*yd
		return uint8(int(f))
	}

	return blend(r00, r01, r10, r11), blend(g00, g01, g10, g11), blend(b00, b01, b10, b11)
}

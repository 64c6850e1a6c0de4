package polar

import (
	"bytes"
	"math"
	"testing"
)

func solidRaster(side int, r, g, b uint8) *Raster {
	pix := make([]byte, side*side*3)
	for i := 0; i < side*side; i++ {
		pix[i*3] = r
		pix[i*3+1] = g
		pix[i*3+2] = b
	}
	ras, err := NewRaster(side, pix)
	if err != nil {
		panic(err)
	}
	return ras
}

// redDiscRaster is red inside the inscribed circle, black outside.
func redDiscRaster(side int) *Raster {
	pix := make([]byte, side*side*3)
	cx, cy := float64(side-1)/2, float64(side-1)/2
	radius := float64(side) / 2
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			i := (y*side + x) * 3
			if math.Hypot(dx, dy) <= radius {
				pix[i] = 255
			}
		}
	}
	ras, err := NewRaster(side, pix)
	if err != nil {
		panic(err)
	}
	return ras
}

func TestFrameSizeDefault(t *testing.T) {
	if got := FrameSize(DefaultRays, DefaultLEDs); got != 113400 {
		t.Fatalf("FrameSize = %d, want 113400", got)
	}
}

// TestDeterminism checks that encoding is byte-for-byte reproducible
// for the same raster.
func TestDeterminism(t *testing.T) {
	enc, err := NewEncoder(DefaultRays, DefaultLEDs, 256)
	if err != nil {
		t.Fatal(err)
	}
	ras := redDiscRaster(256)
	a, err := enc.EncodeFrame(ras)
	if err != nil {
		t.Fatal(err)
	}
	b, err := enc.EncodeFrame(ras)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("EncodeFrame not deterministic")
	}
}

// TestShape checks that frame length matches the geometry formula at
// defaults.
func TestShape(t *testing.T) {
	enc, err := NewEncoder(DefaultRays, DefaultLEDs, 256)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := enc.EncodeFrame(solidRaster(256, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 113400 {
		t.Fatalf("len(frame) = %d, want 113400", len(frame))
	}
}

// TestEncodeAllBlack: every byte of the encoded frame must be zero.
func TestEncodeAllBlack(t *testing.T) {
	enc, err := NewEncoder(DefaultRays, DefaultLEDs, 256)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := enc.EncodeFrame(solidRaster(256, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range frame {
		if b != 0 {
			t.Fatalf("byte %d = %#02x, want 0x00", i, b)
		}
	}
}

// TestEncodeAllWhite: every byte of the encoded frame must be 0xFF.
func TestEncodeAllWhite(t *testing.T) {
	enc, err := NewEncoder(DefaultRays, DefaultLEDs, 256)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := enc.EncodeFrame(solidRaster(256, 255, 255, 255))
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range frame {
		if b != 0xFF {
			t.Fatalf("byte %d = %#02x, want 0xff", i, b)
		}
	}
}

// TestEncodeRedDisc: every ray packs to the repeating 0x92 0x49 0x24
// pattern, since every sampled radius lies strictly inside the disc.
func TestEncodeRedDisc(t *testing.T) {
	enc, err := NewEncoder(DefaultRays, DefaultLEDs, 256)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := enc.EncodeFrame(redDiscRaster(256))
	if err != nil {
		t.Fatal(err)
	}
	pattern := []byte{0x92, 0x49, 0x24}
	for i, b := range frame {
		want := pattern[i%3]
		if b != want {
			t.Fatalf("byte %d = %#02x, want %#02x", i, b, want)
		}
	}
}

// TestAngleDirection checks that a raster white in the top half, black
// in the bottom half, yields a strictly greater bit-sum in rays
// [N/2, N) than in rays [0, N/2). The raster's v-axis (and so row
// index) runs opposite to on-screen "up" for this geometry: row index
// >= side/2 is the physical top half the propeller displays, so that
// half is the one set white here.
func TestAngleDirection(t *testing.T) {
	const side = 256
	pix := make([]byte, side*side*3)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			i := (y*side + x) * 3
			if y >= side/2 {
				pix[i], pix[i+1], pix[i+2] = 255, 255, 255
			}
		}
	}
	ras, err := NewRaster(side, pix)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := NewEncoder(DefaultRays, DefaultLEDs, side)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := enc.EncodeFrame(ras)
	if err != nil {
		t.Fatal(err)
	}
	bytesPerRay := BytesPerRay(DefaultLEDs)
	bitSum := func(b byte) int {
		n := 0
		for b != 0 {
			n += int(b & 1)
			b >>= 1
		}
		return n
	}
	sumRange := func(from, to int) int {
		sum := 0
		for ray := from; ray < to; ray++ {
			for _, b := range frame[ray*bytesPerRay : (ray+1)*bytesPerRay] {
				sum += bitSum(b)
			}
		}
		return sum
	}
	firstHalf := sumRange(0, DefaultRays/2)
	secondHalf := sumRange(DefaultRays/2, DefaultRays)
	if secondHalf <= firstHalf {
		t.Fatalf("secondHalf bitsum %d not > firstHalf %d", secondHalf, firstHalf)
	}
}

func TestEncodeFrameRejectsWrongSide(t *testing.T) {
	enc, err := NewEncoder(DefaultRays, DefaultLEDs, 256)
	if err != nil {
		t.Fatal(err)
	}
	_, err = enc.EncodeFrame(solidRaster(128, 0, 0, 0))
	if err == nil {
		t.Fatal("expected error for mismatched side")
	}
}

func TestNewEncoderRejectsBadDims(t *testing.T) {
	if _, err := NewEncoder(0, DefaultLEDs, 256); err == nil {
		t.Fatal("expected error for nRays=0")
	}
	if _, err := NewEncoder(DefaultRays, 1, 256); err == nil {
		t.Fatal("expected error for nLEDs=1")
	}
	if _, err := NewEncoder(DefaultRays, DefaultLEDs, 0); err == nil {
		t.Fatal("expected error for side=0")
	}
}

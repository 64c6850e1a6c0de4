// Package container assembles the fan's .bin animation file format: a
// fixed 0x1000-byte header followed by one or more polar frames each
// trailed by a fixed padding gap.
//
// Ported from a reference fan-protocol encoder's animation-container
// and header-assembly routines.
package container

import (
	"crypto/rand"

	"github.com/n0remac/holofan/internal/fanerr"
)

const (
	// HeaderSize is the fixed .bin header length.
	HeaderSize = 0x1000
	// FramePadding is the zero-byte gap written after every frame.
	FramePadding = 1288

	kindStill     = 0x01
	kindAnimation = 0x3C
)

func buildHeader(kind byte) []byte {
	header := make([]byte, HeaderSize)
	// The reference fills the remainder with random noise and the
	// fan is documented to ignore it; we do the same rather than
	// leaving a suspiciously all-zero block, but implementations
	// must not rely on these bytes meaning anything.
	_, _ = rand.Read(header[5:])
	header[0] = 0x00
	header[1] = 0x00
	header[2] = 0x00
	header[3] = kind
	header[4] = 0x18
	return header
}

// EncodeStill wraps a single encoded polar frame as a "still" .bin
// container (header kind 0x01).
func EncodeStill(frame []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(frame)+FramePadding)
	out = append(out, buildHeader(kindStill)...)
	out = append(out, frame...)
	out = append(out, make([]byte, FramePadding)...)
	return out
}

// EncodeAnimation concatenates multiple encoded polar frames into an
// "animation" .bin container (header kind 0x3C), each frame followed
// by FramePadding zero bytes.
func EncodeAnimation(frames [][]byte) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fanerr.ErrInvalidInput
	}
	size := HeaderSize
	for _, f := range frames {
		size += len(f) + FramePadding
	}
	out := make([]byte, 0, size)
	out = append(out, buildHeader(kindAnimation)...)
	for _, f := range frames {
		out = append(out, f...)
		out = append(out, make([]byte, FramePadding)...)
	}
	return out, nil
}

// Size returns the exact container byte count for n frames of the
// given per-frame size.
func Size(frameSize, n int) int {
	return HeaderSize + n*(frameSize+FramePadding)
}

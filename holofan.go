// Package holofan is the public surface a cmd/ binary or external
// caller uses to drive a holographic fan: build a polar encoder,
// assemble a .bin container, dial a fan, and run the live streaming
// pipeline, without reaching into internal/ packages directly.
package holofan

import (
	"context"
	"image"

	"github.com/n0remac/holofan/internal/container"
	"github.com/n0remac/holofan/internal/fanproto"
	"github.com/n0remac/holofan/internal/polar"
	"github.com/n0remac/holofan/internal/stream"
)

// Re-exported types so callers only need this one import.
type (
	Encoder       = polar.Encoder
	Raster        = polar.Raster
	Fan           = fanproto.Fan
	Command       = fanproto.Command
	ControlResult = fanproto.ControlResult
	StreamSession = fanproto.StreamSession
	Pipeline      = stream.Pipeline
	FrameSource   = stream.FrameSource
	Stats         = stream.Stats
)

// Control commands accepted by Fan.Control.
const (
	Pause  = fanproto.Pause
	Play   = fanproto.Play
	Status = fanproto.Status
	Delete = fanproto.Delete
)

// Hardware defaults for the target fan.
const (
	DefaultRays = polar.DefaultRays
	DefaultLEDs = polar.DefaultLEDs
	DefaultIP   = fanproto.DefaultIP
)

// NewEncoder precomputes the angle/radius lookup tables for a given
// ray/LED count and square raster side length.
func NewEncoder(nRays, nLEDs, side int) (*Encoder, error) {
	return polar.NewEncoder(nRays, nLEDs, side)
}

// NewRaster validates and wraps a square RGB pixel buffer.
func NewRaster(side int, pix []byte) (*Raster, error) {
	return polar.NewRaster(side, pix)
}

// NewRasterFromImage centre-crops and resamples a decoded image into a
// square raster, for the offline/file encode path.
func NewRasterFromImage(img image.Image, side int) (*Raster, error) {
	return polar.NewRasterFromImage(img, side)
}

// EncodeStill wraps a single encoded polar frame as a still .bin
// container.
func EncodeStill(frame []byte) []byte {
	return container.EncodeStill(frame)
}

// EncodeAnimation concatenates encoded polar frames into an animation
// .bin container.
func EncodeAnimation(frames [][]byte) ([]byte, error) {
	return container.EncodeAnimation(frames)
}

// NewFan returns a client targeting the fan at ip (falls back to
// DefaultIP if empty).
func NewFan(ip string) *Fan {
	return fanproto.New(ip)
}

// NewPipeline returns a Pipeline that encodes side x side rasters with
// enc and streams them to fan.
func NewPipeline(enc *Encoder, fan *Fan, side int) *Pipeline {
	return stream.New(enc, fan, side)
}

// NewWebcamSource opens a local capture device as a live frame source.
func NewWebcamSource(deviceID, width, height int) (FrameSource, error) {
	return stream.NewWebcamSource(deviceID, width, height)
}

// NewWebRTCSource joins a signaling server and receives one inbound
// video track as a live frame source.
func NewWebRTCSource(ctx context.Context, signalingURL string, width, height int) (FrameSource, error) {
	return stream.NewWebRTCSource(ctx, signalingURL, width, height)
}

// Package stream wires a live frame source into the polar encoder and
// the fan's streaming transport: Source -> Preprocess -> Encode ->
// Transport, running at a governed frame rate with drop-not-burst
// backpressure.
package stream

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/n0remac/holofan/internal/fanproto"
	"github.com/n0remac/holofan/internal/polar"
)

// FrameSource yields raw BGR frames (3 bytes/pixel, row-major) until
// ctx is done or the source runs dry.
type FrameSource interface {
	Next(ctx context.Context) (pix []byte, width, height int, err error)
	Close() error
}

// Stats is a point-in-time snapshot of a Pipeline's counters.
type Stats struct {
	FramesEncoded   uint64
	FramesDropped   uint64
	TransportErrors uint64
}

// frameSender is the subset of *fanproto.StreamSession's behavior Run
// depends on; tests substitute a fake to exercise backpressure and
// failure escalation without a real fan on the other end.
type frameSender interface {
	SendFrame(ctx context.Context, frame []byte) error
	Close() error
}

// Pipeline drives one FrameSource into one Fan at a governed rate.
type Pipeline struct {
	enc  *polar.Encoder
	fan  *fanproto.Fan
	side int

	framesEncoded   uint64
	framesDropped   uint64
	transportErrors uint64

	openStream func(ctx context.Context) (frameSender, error)
}

// New returns a Pipeline that encodes side x side rasters with enc and
// streams them to fan.
func New(enc *polar.Encoder, fan *fanproto.Fan, side int) *Pipeline {
	return &Pipeline{
		enc: enc, fan: fan, side: side,
		openStream: func(ctx context.Context) (frameSender, error) {
			return fan.OpenStream(ctx)
		},
	}
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		FramesEncoded:   atomic.LoadUint64(&p.framesEncoded),
		FramesDropped:   atomic.LoadUint64(&p.framesDropped),
		TransportErrors: atomic.LoadUint64(&p.transportErrors),
	}
}

type frameBox struct {
	pix           []byte
	width, height int
}

// maxConsecutiveTransportFailures is the number of back-to-back
// SendFrame failures Run tolerates before giving up on the session.
// A single dropped frame is logged and skipped; a dead fan is not.
const maxConsecutiveTransportFailures = 3

// Run pulls frames from source at whatever rate it produces them, but
// only preprocesses/encodes/sends one at fps: if source outpaces fps,
// stale unconsumed frames are dropped rather than queued, so the fan
// always displays something close to live rather than falling behind.
//
// Cancellation is cooperative: ctx is checked between frames, not
// inside an in-flight send, so a frame that has started transmitting
// always finishes its send before Run returns.
func (p *Pipeline) Run(ctx context.Context, source FrameSource, fps int) error {
	if fps < 1 {
		return fmt.Errorf("stream: fps must be >= 1, got %d", fps)
	}

	session, err := p.openStream(ctx)
	if err != nil {
		return fmt.Errorf("stream: open session: %w", err)
	}
	defer session.Close()

	latest := make(chan frameBox, 1)
	sourceErr := make(chan error, 1)

	go func() {
		for {
			pix, w, h, err := source.Next(ctx)
			if err != nil {
				sourceErr <- err
				return
			}
			fb := frameBox{pix: pix, width: w, height: h}
			select {
			case latest <- fb:
				continue
			default:
			}
			// Slot occupied by an unconsumed frame: drop it, then
			// install the new one.
			select {
			case <-latest:
				atomic.AddUint64(&p.framesDropped, 1)
			default:
			}
			select {
			case latest <- fb:
			default:
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case err := <-sourceErr:
			return err
		case <-ticker.C:
			select {
			case fb := <-latest:
				if err := p.processOne(session, fb); err != nil {
					consecutiveFailures++
					if consecutiveFailures >= maxConsecutiveTransportFailures {
						return fmt.Errorf("stream: %d consecutive transport failures, last: %w", consecutiveFailures, err)
					}
				} else {
					consecutiveFailures = 0
				}
			default:
				// Nothing new since the last tick; fan keeps
				// displaying the previous frame.
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// processOne preprocesses, encodes, and sends one frame. It returns an
// error only for a transport (send) failure; a preprocess or encode
// failure drops the frame silently and does not count toward the
// consecutive-failure threshold, since it reflects a malformed frame
// rather than a dead fan.
func (p *Pipeline) processOne(session frameSender, fb frameBox) error {
	raster, err := Preprocess(fb.pix, fb.width, fb.height, p.side)
	if err != nil {
		return nil
	}
	frame, err := p.enc.EncodeFrame(raster)
	if err != nil {
		return nil
	}
	atomic.AddUint64(&p.framesEncoded, 1)

	// Always let a started send run to completion: the outer ctx may
	// already be canceled by the time we get here, but the frame in
	// flight still finishes per Run's cancellation contract.
	if err := session.SendFrame(context.Background(), frame); err != nil {
		atomic.AddUint64(&p.transportErrors, 1)
		return err
	}
	return nil
}

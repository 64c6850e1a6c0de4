package stream

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/n0remac/holofan/internal/polar"
)

// fakeSource produces frames as fast as it's called, counting how many
// it hands out so tests can compare against how many the pipeline
// actually encoded.
type fakeSource struct {
	side  int
	count int64
}

func (s *fakeSource) Next(ctx context.Context) ([]byte, int, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}
	atomic.AddInt64(&s.count, 1)
	return make([]byte, s.side*s.side*3), s.side, s.side, nil
}

func (s *fakeSource) Close() error { return nil }

// fakeSender stands in for a *fanproto.StreamSession. sendFunc, if
// set, is called with the 1-based index of this send and decides
// whether it fails; nil means every send succeeds.
type fakeSender struct {
	sendFunc func(call int64) error
	sends    int64
	closed   bool
}

func (f *fakeSender) SendFrame(ctx context.Context, frame []byte) error {
	n := atomic.AddInt64(&f.sends, 1)
	if f.sendFunc != nil {
		return f.sendFunc(n)
	}
	return nil
}

func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func newTestPipeline(t *testing.T, sender *fakeSender) *Pipeline {
	t.Helper()
	enc, err := polar.NewEncoder(60, 8, 16)
	if err != nil {
		t.Fatal(err)
	}
	p := New(enc, nil, 16)
	p.openStream = func(ctx context.Context) (frameSender, error) {
		return sender, nil
	}
	return p
}

// TestPipelineDropsStaleFrames checks that a source producing frames
// faster than the configured fps does not queue them: the pipeline
// encodes at most one per tick and drops whatever arrived in between.
func TestPipelineDropsStaleFrames(t *testing.T) {
	sender := &fakeSender{}
	p := newTestPipeline(t, sender)
	src := &fakeSource{side: 16}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, src, 20) // tick every 50ms, so ~3 ticks in the window
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	produced := atomic.LoadInt64(&src.count)
	stats := p.Stats()
	if stats.FramesDropped == 0 {
		t.Fatal("expected some frames to be dropped under backpressure")
	}
	if int64(stats.FramesEncoded) >= produced {
		t.Fatalf("encoded %d frames but source only produced %d; drop-not-burst was not enforced", stats.FramesEncoded, produced)
	}
	if !sender.closed {
		t.Fatal("expected the session to be closed when Run returns")
	}
}

// TestPipelineFatalAfterConsecutiveTransportFailures checks that Run
// gives up once SendFrame fails maxConsecutiveTransportFailures times
// in a row, surfacing the last error, rather than retrying forever
// against a dead fan.
func TestPipelineFatalAfterConsecutiveTransportFailures(t *testing.T) {
	sendErr := errors.New("connection reset")
	sender := &fakeSender{sendFunc: func(int64) error { return sendErr }}
	p := newTestPipeline(t, sender)
	src := &fakeSource{side: 16}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.Run(ctx, src, 1000) // tick every 1ms so failures accumulate quickly
	if err == nil {
		t.Fatal("expected Run to return an error after repeated transport failures")
	}
	if !strings.Contains(err.Error(), "consecutive transport failures") {
		t.Fatalf("error = %v, want it to mention consecutive transport failures", err)
	}

	stats := p.Stats()
	if stats.TransportErrors != maxConsecutiveTransportFailures {
		t.Fatalf("TransportErrors = %d, want %d", stats.TransportErrors, maxConsecutiveTransportFailures)
	}
}

// TestPipelineResetsFailureStreakOnSuccess checks that an isolated
// transport failure does not accumulate toward the fatal threshold as
// long as later sends succeed in between.
func TestPipelineResetsFailureStreakOnSuccess(t *testing.T) {
	sender := &fakeSender{
		sendFunc: func(call int64) error {
			if call%5 == 0 {
				return errors.New("transient reset")
			}
			return nil
		},
	}
	p := newTestPipeline(t, sender)
	src := &fakeSource{side: 16}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, src, 100) // tick every 10ms: ~30 ticks, failures every 5th send, never 3 in a row
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	stats := p.Stats()
	if stats.TransportErrors == 0 {
		t.Fatal("expected at least one transport error to have been recorded")
	}
}

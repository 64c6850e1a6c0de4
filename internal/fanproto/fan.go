package fanproto

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/n0remac/holofan/internal/fanerr"
)

const (
	uploadConnectTimeout  = 10 * time.Second
	controlConnectTimeout = 5 * time.Second
	statusReadTimeout     = 5 * time.Second
	livenessTimeout       = 2 * time.Second
)

// Fan is a client for one holographic-fan's control-plane address. It
// is not safe for concurrent use from multiple goroutines: the fan
// only tolerates one in-flight upload and one control exchange at a
// time, and callers must serialise their own access.
type Fan struct {
	ip    string
	pacer *rate.Limiter
}

// New returns a Fan client targeting ip (falls back to DefaultIP if empty).
func New(ip string) *Fan {
	if ip == "" {
		ip = DefaultIP
	}
	return &Fan{
		ip: ip,
		// burst 1, refill at 1/PacketDelay: enforces the mandatory
		// floor without letting bursts of idle time bank up credit
		// beyond one packet.
		pacer: rate.NewLimiter(rate.Every(PacketDelay*time.Millisecond), 1),
	}
}

func (f *Fan) uploadAddr() string  { return net.JoinHostPort(f.ip, fmt.Sprintf("%d", UploadPort)) }
func (f *Fan) controlAddr() string { return net.JoinHostPort(f.ip, fmt.Sprintf("%d", ControlPort)) }

// wait blocks until the pacer allows another send, or ctx is done.
func (f *Fan) wait(ctx context.Context) error {
	return f.pacer.Wait(ctx)
}

// dial connects with the given timeout, classifying the error into the
// connect-failed/timeout taxonomy TransportError carries.
func dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		if errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			return nil, fanerr.NewTransportError(fanerr.Timeout, err)
		}
		return nil, fanerr.NewTransportError(fanerr.ConnectFailed, err)
	}
	return conn, nil
}

// send writes the full packet, pacing beforehand, and classifies any
// write error as SendFailed (mid-upload errors are never resumable).
func (f *Fan) send(ctx context.Context, conn net.Conn, packet []byte) error {
	if err := f.wait(ctx); err != nil {
		return fanerr.NewTransportError(fanerr.Timeout, err)
	}
	if _, err := conn.Write(packet); err != nil {
		return fanerr.NewTransportError(fanerr.SendFailed, err)
	}
	return nil
}

// Upload drives the NAME -> DATA* -> END state machine over a fresh
// upload-port connection. filename is truncated to MaxFilenameLen
// bytes and given a .bin extension if missing.
func (f *Fan) Upload(ctx context.Context, filename string, data []byte) error {
	if filename == "" {
		return fanerr.ErrInvalidInput
	}
	if !strings.HasSuffix(filename, ".bin") {
		filename += ".bin"
	}
	nameBytes := []byte(filename)
	if len(nameBytes) > MaxFilenameLen {
		nameBytes = nameBytes[:MaxFilenameLen]
	}

	conn, err := dial(ctx, f.uploadAddr(), uploadConnectTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := f.send(ctx, conn, buildNamePacket(uint32(len(data)), nameBytes)); err != nil {
		return err
	}

	payloadSize := DataPayloadSize()
	for offset := 0; offset < len(data); offset += payloadSize {
		end := offset + payloadSize
		if end > len(data) {
			end = len(data)
		}
		if err := f.send(ctx, conn, buildDataPacket(data[offset:end])); err != nil {
			return err
		}
	}
	// Zero-length payload still uploads a valid (empty) file: NAME
	// precedes END with no DATA packets in between.

	return f.send(ctx, conn, buildEndPacket())
}

// ControlResult is the outcome of a control command: Status additionally
// carries an advisory, best-effort-parsed response.
type ControlResult struct {
	Raw       []byte // nil unless the command was Status and a response arrived
	Parsed    gjson.Result
	HasParsed bool
}

// Control sends one control-port command and, for Status, attempts to
// read an advisory response. An unparseable or missing status response
// is never an error, it is simply absent.
func (f *Fan) Control(ctx context.Context, cmd Command) (ControlResult, error) {
	if !cmd.valid() {
		return ControlResult{}, fanerr.ErrProtocolViolation
	}

	conn, err := dial(ctx, f.controlAddr(), controlConnectTimeout)
	if err != nil {
		return ControlResult{}, err
	}
	defer conn.Close()

	if err := f.send(ctx, conn, buildControlPacket(cmd)); err != nil {
		return ControlResult{}, err
	}

	if cmd != Status {
		return ControlResult{}, nil
	}

	_ = conn.SetReadDeadline(time.Now().Add(statusReadTimeout))
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		// Timeout or empty read is advisory-missing, never an error.
		return ControlResult{}, nil
	}
	raw := buf[:n]
	res := ControlResult{Raw: raw}
	if gjson.ValidBytes(raw) {
		res.Parsed = gjson.ParseBytes(raw)
		res.HasParsed = true
	}
	return res, nil
}

// Play, Pause, and Delete are convenience wrappers around Control.
func (f *Fan) Play(ctx context.Context) error {
	_, err := f.Control(ctx, Play)
	return err
}

func (f *Fan) Pause(ctx context.Context) error {
	_, err := f.Control(ctx, Pause)
	return err
}

func (f *Fan) Delete(ctx context.Context) error {
	_, err := f.Control(ctx, Delete)
	return err
}

// Status sends the status command and returns its advisory result.
func (f *Fan) Status(ctx context.Context) (ControlResult, error) {
	return f.Control(ctx, Status)
}

// Ping performs a bounded liveness probe: a non-blocking connect
// attempt to the upload port. It never returns a hard error, only true
// (online) or false (offline/unreachable/timed out).
func (f *Fan) Ping(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, livenessTimeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(pingCtx, "tcp", f.uploadAddr())
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// StreamSession is a long-lived upload-port connection used by the
// streaming (non-file) transport path: unlike Upload, the connection
// stays open across many frames instead of being torn down after one
// NAME/DATA*/END sequence.
type StreamSession struct {
	conn net.Conn
}

// OpenStream dials the upload port for repeated per-frame sends. The
// caller is responsible for calling Close when the stream ends.
func (f *Fan) OpenStream(ctx context.Context) (*StreamSession, error) {
	conn, err := dial(ctx, f.uploadAddr(), uploadConnectTimeout)
	if err != nil {
		return nil, err
	}
	return &StreamSession{conn: conn}, nil
}

// Close releases the underlying connection.
func (s *StreamSession) Close() error {
	return s.conn.Close()
}

// SendFrame chunks one encoded polar frame into StreamChunkSize
// DATA-shaped packets with a 16-bit index/length prefix, spacing
// consecutive chunks by PacketDelay divided by the chunk count, with a
// 1ms floor per gap (so a default 113,400-byte frame of 111 chunks
// takes about 110ms, not 30ms). The first chunk of a frame is not
// paced against the previous frame's last chunk. Chunk indices restart
// at zero for every frame.
func (s *StreamSession) SendFrame(ctx context.Context, frame []byte) error {
	total := (len(frame) + StreamChunkSize - 1) / StreamChunkSize
	if total == 0 {
		return nil
	}
	budget := (PacketDelay * time.Millisecond) / time.Duration(total)
	if budget < time.Millisecond {
		budget = time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(budget), 1)

	for i := 0; i < total; i++ {
		start := i * StreamChunkSize
		end := start + StreamChunkSize
		if end > len(frame) {
			end = len(frame)
		}
		if err := limiter.Wait(ctx); err != nil {
			return fanerr.NewTransportError(fanerr.Timeout, err)
		}
		packet := buildStreamChunk(uint16(i), frame[start:end])
		if _, err := s.conn.Write(packet); err != nil {
			return fanerr.NewTransportError(fanerr.SendFailed, err)
		}
	}
	return nil
}

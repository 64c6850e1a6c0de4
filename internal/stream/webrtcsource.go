package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// WebRTCSource receives one inbound H264 video track over a WebRTC
// peer connection and decodes it to raw BGR frames via a local
// GStreamer subprocess, for callers that want to feed the fan from a
// browser or phone camera instead of a local capture device.
//
// Uses an offer/answer/candidate handshake over a gorilla/websocket
// connection with a single H264 RTPCodecCapability, and the same
// RTP-over-local-UDP-into-gst-decode-to-raw-BGR shape used elsewhere in
// this codebase, simplified to a single inbound, receive-only track.
type WebRTCSource struct {
	width, height int

	pc *webrtc.PeerConnection
	ws *websocket.Conn

	decCmd  *exec.Cmd
	decOut  *bufio.Reader
	decSink net.Conn

	mu     sync.Mutex
	closed bool
}

// webrtcInRTPPort is the localhost UDP port the decoder listens on for
// depacketized RTP forwarded from the peer connection's track.
const webrtcInRTPPort = 5810

// NewWebRTCSource dials signalingURL, waits for the browser's SDP
// offer, answers it, and wires the resulting inbound video track into
// a local H264 decode pipeline producing width x height raw BGR
// frames.
func NewWebRTCSource(ctx context.Context, signalingURL string, width, height int) (*WebRTCSource, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, signalingURL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("stream: webrtc signaling dial: %w", err)
	}

	m := webrtc.MediaEngine{}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   90000,
			SDPFmtpLine: "packetization-mode=1;profile-level-id=42e01f",
		},
		PayloadType: 109,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		ws.Close()
		return nil, fmt.Errorf("stream: register H264 codec: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(&m))

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("stream: new peer connection: %w", err)
	}

	decSink, err := net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", webrtcInRTPPort))
	if err != nil {
		pc.Close()
		ws.Close()
		return nil, fmt.Errorf("stream: dial decoder udp: %w", err)
	}

	s := &WebRTCSource{
		width: width, height: height,
		pc: pc, ws: ws, decSink: decSink,
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		_ = ws.WriteJSON(map[string]any{
			"type":      "candidate",
			"candidate": c.ToJSON(),
		})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeVideo {
			return
		}
		for {
			pkt, _, err := track.ReadRTP()
			if err != nil {
				return
			}
			s.forwardRTP(pkt)
		}
	})

	if err := s.startDecoder(); err != nil {
		pc.Close()
		ws.Close()
		decSink.Close()
		return nil, err
	}

	if err := s.negotiate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *WebRTCSource) forwardRTP(pkt *rtp.Packet) {
	buf, err := pkt.Marshal()
	if err != nil {
		return
	}
	_, _ = s.decSink.Write(buf)
}

// negotiate waits for the browser's offer over the signaling
// WebSocket, answers it, and returns. Local ICE candidates are sent by
// the OnICECandidate handler; remote "candidate" messages are passed to
// AddICECandidate (errors ignored) only while waiting for the offer,
// and messages arriving after the answer are not read.
func (s *WebRTCSource) negotiate(ctx context.Context) error {
	type signal struct {
		Type      string                  `json:"type"`
		SDP       string                  `json:"sdp"`
		Candidate *webrtc.ICECandidateInit `json:"candidate"`
	}

	for {
		var msg signal
		if err := s.ws.ReadJSON(&msg); err != nil {
			return fmt.Errorf("stream: webrtc signaling read: %w", err)
		}
		switch msg.Type {
		case "offer":
			if err := s.pc.SetRemoteDescription(webrtc.SessionDescription{
				Type: webrtc.SDPTypeOffer, SDP: msg.SDP,
			}); err != nil {
				return fmt.Errorf("stream: set remote description: %w", err)
			}
			answer, err := s.pc.CreateAnswer(nil)
			if err != nil {
				return fmt.Errorf("stream: create answer: %w", err)
			}
			if err := s.pc.SetLocalDescription(answer); err != nil {
				return fmt.Errorf("stream: set local description: %w", err)
			}
			if err := s.ws.WriteJSON(signal{Type: "answer", SDP: answer.SDP}); err != nil {
				return fmt.Errorf("stream: send answer: %w", err)
			}
			return nil
		case "candidate":
			if msg.Candidate != nil {
				_ = s.pc.AddICECandidate(*msg.Candidate)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// startDecoder launches the GStreamer pipeline that turns the inbound
// H264 RTP stream into a raw BGR byte stream on stdout, one
// width*height*3 frame at a time.
func (s *WebRTCSource) startDecoder() error {
	cmd := exec.Command("gst-launch-1.0",
		"-q",
		"udpsrc", "address=127.0.0.1", fmt.Sprintf("port=%d", webrtcInRTPPort),
		"caps=application/x-rtp,media=video,clock-rate=90000,encoding-name=H264,payload=109",
		"!", "rtpjitterbuffer", "latency=200",
		"!", "rtph264depay",
		"!", "h264parse",
		"!", "avdec_h264",
		"!", "videoconvert",
		"!", "videoscale",
		"!", fmt.Sprintf("video/x-raw,format=BGR,width=%d,height=%d", s.width, s.height),
		"!", "fdsink", "fd=1",
	)
	cmd.Stderr = os.Stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stream: decoder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("stream: start decoder: %w", err)
	}
	s.decCmd = cmd
	s.decOut = bufio.NewReaderSize(out, s.width*s.height*3*2)
	return nil
}

// Next blocks until one full width*height*3-byte BGR frame has arrived
// from the decode pipeline.
func (s *WebRTCSource) Next(ctx context.Context) ([]byte, int, int, error) {
	buf := make([]byte, s.width*s.height*3)
	if _, err := io.ReadFull(s.decOut, buf); err != nil {
		return nil, 0, 0, fmt.Errorf("stream: webrtc: read decoded frame: %w", err)
	}
	return buf, s.width, s.height, nil
}

// Close tears down the peer connection, signaling socket, and decode
// subprocess.
func (s *WebRTCSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	_ = s.pc.Close()
	_ = s.ws.Close()
	_ = s.decSink.Close()
	if s.decCmd != nil && s.decCmd.Process != nil {
		_ = s.decCmd.Process.Kill()
		_ = s.decCmd.Wait()
	}
	return nil
}

package stream

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
)

// WebcamSource is a FrameSource backed by a local capture device.
//
// Grounded on detect.go's gocv.OpenVideoCapture/webcam.Read loop.
type WebcamSource struct {
	cap *gocv.VideoCapture
	mat gocv.Mat
}

// NewWebcamSource opens local capture device deviceID at width x
// height.
func NewWebcamSource(deviceID, width, height int) (*WebcamSource, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("stream: open capture device %d: %w", deviceID, err)
	}
	cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(height))
	return &WebcamSource{cap: cap, mat: gocv.NewMat()}, nil
}

// Next reads one frame. It ignores ctx since gocv's Read is not
// context-aware; callers relying on prompt cancellation should run the
// pipeline in its own goroutine and close the source to unblock a
// stuck Read.
func (s *WebcamSource) Next(ctx context.Context) ([]byte, int, int, error) {
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, 0, 0, fmt.Errorf("stream: webcam: empty read")
	}
	raw := s.mat.ToBytes()
	pix := make([]byte, len(raw))
	copy(pix, raw)
	return pix, s.mat.Cols(), s.mat.Rows(), nil
}

// Close releases the capture device.
func (s *WebcamSource) Close() error {
	s.mat.Close()
	return s.cap.Close()
}

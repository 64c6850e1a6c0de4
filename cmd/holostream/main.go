// Command holostream drives a live frame source (webcam or WebRTC)
// into the fan at a governed frame rate.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/n0remac/holofan"
	"github.com/n0remac/holofan/internal/config"
)

func main() {
	fs := flag.NewFlagSet("holostream", flag.ExitOnError)
	cfg := config.Register(fs)
	source := fs.String("source", "webcam", "frame source: webcam or webrtc")
	device := fs.Int("device", 0, "capture device index (webcam source only)")
	signalingURL := fs.String("signal", "", "signaling server URL (webrtc source only)")
	captureW := fs.Int("capture-width", 640, "capture width requested from the source")
	captureH := fs.Int("capture-height", 480, "capture height requested from the source")
	fs.Parse(os.Args[1:])

	enc, err := holofan.NewEncoder(cfg.Rays, cfg.LEDs, cfg.Side)
	if err != nil {
		log.Fatalf("holostream: new encoder: %v", err)
	}
	fan := holofan.NewFan(cfg.FanIP)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("holostream: shutting down")
		cancel()
	}()

	var src holofan.FrameSource
	switch *source {
	case "webcam":
		src, err = holofan.NewWebcamSource(*device, *captureW, *captureH)
	case "webrtc":
		if *signalingURL == "" {
			log.Fatalf("holostream: -signal is required for the webrtc source")
		}
		src, err = holofan.NewWebRTCSource(ctx, *signalingURL, *captureW, *captureH)
	default:
		log.Fatalf("holostream: unknown -source %q", *source)
	}
	if err != nil {
		log.Fatalf("holostream: open source: %v", err)
	}
	defer src.Close()

	pipeline := holofan.NewPipeline(enc, fan, cfg.Side)

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()
	go func() {
		for range statsTicker.C {
			s := pipeline.Stats()
			log.Printf("encoded=%d dropped=%d transport_errors=%d", s.FramesEncoded, s.FramesDropped, s.TransportErrors)
		}
	}()

	if err := pipeline.Run(ctx, src, cfg.FPS); err != nil && ctx.Err() == nil {
		log.Fatalf("holostream: pipeline: %v", err)
	}
}

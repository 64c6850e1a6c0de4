// Command holoencode converts one or more still images into a fan
// .bin container and, optionally, uploads the result directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/n0remac/holofan"
	"github.com/n0remac/holofan/internal/config"
)

func main() {
	fs := flag.NewFlagSet("holoencode", flag.ExitOnError)
	cfg := config.Register(fs)
	out := fs.String("out", "", "output .bin path (required unless -upload is set)")
	upload := fs.Bool("upload", false, "upload the encoded container to the fan instead of writing a file")
	name := fs.String("name", "", "filename to use when uploading (default: a generated UUID)")
	fs.Parse(os.Args[1:])

	if *name == "" {
		*name = uuid.NewString()
	}

	paths := fs.Args()
	if len(paths) == 0 {
		log.Fatalf("holoencode: at least one image path is required")
	}
	if *out == "" && !*upload {
		log.Fatalf("holoencode: -out or -upload is required")
	}

	enc, err := holofan.NewEncoder(cfg.Rays, cfg.LEDs, cfg.Side)
	if err != nil {
		log.Fatalf("holoencode: new encoder: %v", err)
	}

	frames := make([][]byte, 0, len(paths))
	for _, p := range paths {
		frame, err := encodeFile(enc, cfg.Side, p)
		if err != nil {
			log.Fatalf("holoencode: %s: %v", p, err)
		}
		frames = append(frames, frame)
		log.Printf("encoded %s (%d bytes)", p, len(frame))
	}

	var data []byte
	if len(frames) == 1 {
		data = holofan.EncodeStill(frames[0])
	} else {
		data, err = holofan.EncodeAnimation(frames)
		if err != nil {
			log.Fatalf("holoencode: build container: %v", err)
		}
	}

	if *upload {
		fan := holofan.NewFan(cfg.FanIP)
		ctx := context.Background()
		if err := fan.Upload(ctx, *name, data); err != nil {
			log.Fatalf("holoencode: upload: %v", err)
		}
		log.Printf("uploaded %s (%d bytes) to %s", *name, len(data), cfg.FanIP)
		return
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("holoencode: write %s: %v", *out, err)
	}
	log.Printf("wrote %s (%d bytes)", *out, len(data))
}

func encodeFile(enc *holofan.Encoder, side int, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	raster, err := holofan.NewRasterFromImage(img, side)
	if err != nil {
		return nil, fmt.Errorf("build raster: %w", err)
	}
	return enc.EncodeFrame(raster)
}

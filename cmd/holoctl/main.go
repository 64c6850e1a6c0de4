// Command holoctl sends a single control-plane command (play, pause,
// delete, status) to the fan and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/n0remac/holofan"
	"github.com/n0remac/holofan/internal/config"
)

func main() {
	fs := flag.NewFlagSet("holoctl", flag.ExitOnError)
	cfg := config.Register(fs)
	timeout := fs.Duration("timeout", 5*time.Second, "overall command timeout")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		log.Fatalf("holoctl: usage: holoctl [flags] play|pause|delete|status|ping")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fan := holofan.NewFan(cfg.FanIP)

	switch fs.Arg(0) {
	case "play":
		if err := fan.Play(ctx); err != nil {
			log.Fatalf("holoctl: play: %v", err)
		}
	case "pause":
		if err := fan.Pause(ctx); err != nil {
			log.Fatalf("holoctl: pause: %v", err)
		}
	case "delete":
		if err := fan.Delete(ctx); err != nil {
			log.Fatalf("holoctl: delete: %v", err)
		}
	case "status":
		res, err := fan.Status(ctx)
		if err != nil {
			log.Fatalf("holoctl: status: %v", err)
		}
		if !res.HasParsed {
			fmt.Println("status: no parseable response")
			return
		}
		fmt.Println(res.Parsed.Raw)
	case "ping":
		if fan.Ping(ctx) {
			fmt.Println("online")
		} else {
			fmt.Println("offline")
			os.Exit(1)
		}
	default:
		log.Fatalf("holoctl: unknown command %q", fs.Arg(0))
	}
}

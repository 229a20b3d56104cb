// ABOUTME: Headless probe for audio/clock drift
// ABOUTME: Plays a source without a device and reports media time against wall time
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/avsync-go/internal/app"
	"github.com/Resonate-Protocol/avsync-go/internal/config"
)

var (
	file       = flag.String("file", "", "Audio file to probe (default: test tone)")
	serverAddr = flag.String("server", "", "Probe a network stream instead")
	clockMode  = flag.String("clock", "internal", "Clock mode: internal or external")
	duration   = flag.Float64("duration", 5, "Tone length in seconds")
	interval   = flag.Duration("interval", 500*time.Millisecond, "Report interval")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	cfg := config.Default()
	cfg.Playback.Output = false
	cfg.Playback.Clock = *clockMode
	cfg.Source.File = *file
	cfg.Source.Server = *serverAddr
	cfg.Source.ToneDuration = *duration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("=== A/V Sync Probe ===")
	fmt.Println("Plays without an audio device so chunks are paced by sleeping,")
	fmt.Println("then compares the media clock with elapsed wall time.")
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	player := app.New(cfg)
	start := time.Now()

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report(player, start)
			}
		}
	}()

	if err := player.Run(ctx); err != nil {
		log.Fatalf("Probe error: %v", err)
	}
	report(player, start)
	log.Printf("Probe complete")
}

func report(player *app.App, start time.Time) {
	wall := time.Since(start).Seconds()
	media := player.Clock().Value()
	s := player.Stats()
	log.Printf("wall=%.3fs media=%.3fs drift=%+.1fms packets=%d sleeps=%d decode_failures=%d",
		wall, media, (media-wall)*1000, s.Packets, s.FallbackSleeps, s.DecodeFailures)
}

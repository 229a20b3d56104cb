// ABOUTME: Entry point for the avsync player
// ABOUTME: Loads configuration, applies CLI overrides and runs the player until signalled
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/avsync-go/internal/app"
	"github.com/Resonate-Protocol/avsync-go/internal/config"
	"github.com/Resonate-Protocol/avsync-go/internal/version"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")
	file       = flag.String("file", "", "Audio file to play (.wav, .mp3, .flac)")
	serverAddr = flag.String("server", "", "Stream server address (host:port)")
	discover   = flag.Bool("discover", false, "Find a stream server with mDNS")
	clockMode  = flag.String("clock", "", "Clock mode: internal or external")
	codec      = flag.String("codec", "", "Packet codec for local sources: pcm or opus")
	volume     = flag.Float64("volume", -1, "Linear volume, 0 to 2")
	speed      = flag.Float64("speed", 0, "Playback speed factor")
	noOutput   = flag.Bool("no-output", false, "Play without an audio device")
	metrics    = flag.String("metrics", "", "Prometheus listen address, e.g. :9100")
	logFile    = flag.String("log-file", "", "Also write logs to this file")
	statsEvery = flag.Duration("stats", 0, "Log loop statistics at this interval")
)

func main() {
	flag.Parse()

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting %s %s", version.Product, version.Version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	player := app.New(cfg)
	if *statsEvery > 0 {
		go statsLoop(ctx, player, *statsEvery)
	}

	if err := player.Run(ctx); err != nil {
		log.Fatalf("Player error: %v", err)
	}
	log.Printf("Player stopped")
}

// applyFlags overrides file values with flags that were set
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "file":
			cfg.Source.File = *file
		case "server":
			cfg.Source.Server = *serverAddr
		case "discover":
			cfg.Source.Discover = *discover
		case "clock":
			cfg.Playback.Clock = *clockMode
		case "codec":
			cfg.Source.Codec = *codec
		case "volume":
			cfg.Playback.Volume = *volume
		case "speed":
			cfg.Playback.Speed = *speed
		case "no-output":
			cfg.Playback.Output = !*noOutput
		case "metrics":
			cfg.Metrics.Address = *metrics
		}
	})
}

func statsLoop(ctx context.Context, player *app.App, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := player.Stats()
			log.Printf("Stats: state=%s clock=%.3f packets=%d chunks=%d fallback=%d decode_failures=%d implausible=%d",
				player.State(), player.Clock().Value(), s.Packets, s.ChunksWritten, s.FallbackSleeps, s.DecodeFailures, s.Implausible)
		}
	}
}

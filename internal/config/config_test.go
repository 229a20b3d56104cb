// ABOUTME: Tests for player configuration
// ABOUTME: Covers defaults, YAML overrides and validation errors
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/avsync-go/internal/player"
	"github.com/Resonate-Protocol/avsync-go/pkg/clock"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
	if cfg.Loop() != player.DefaultConfig() {
		t.Errorf("expected default loop timing, got %+v", cfg.Loop())
	}
	if cfg.ClockType() != clock.Internal {
		t.Errorf("expected internal clock, got %s", cfg.ClockType())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "player.yaml")
	content := `
sync:
  plausible_bound: 5
  implausible_wait: 0.1
playback:
  clock: external
  volume: 0.5
source:
  server: 10.0.0.2:8927
metrics:
  address: ":9100"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Sync.PlausibleBound != 5 {
		t.Errorf("expected plausible bound 5, got %v", cfg.Sync.PlausibleBound)
	}
	if cfg.Loop().ImplausibleWait != 100*time.Millisecond {
		t.Errorf("expected 100ms implausible wait, got %v", cfg.Loop().ImplausibleWait)
	}
	// Untouched fields keep their defaults
	if cfg.Sync.MaxChunkDuration != 0.02 {
		t.Errorf("expected default chunk duration, got %v", cfg.Sync.MaxChunkDuration)
	}
	if cfg.ClockType() != clock.External {
		t.Errorf("expected external clock, got %s", cfg.ClockType())
	}
	if cfg.Playback.Volume != 0.5 {
		t.Errorf("expected volume 0.5, got %v", cfg.Playback.Volume)
	}
	if cfg.Source.Server != "10.0.0.2:8927" {
		t.Errorf("expected server address, got %q", cfg.Source.Server)
	}
	if cfg.Metrics.Address != ":9100" {
		t.Errorf("expected metrics address, got %q", cfg.Metrics.Address)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("sync: [not, a, map"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	os.WriteFile(invalid, []byte("playback:\n  clock: video\n"), 0644)
	_, err := Load(invalid)
	if err == nil || !strings.Contains(err.Error(), "clock") {
		t.Errorf("expected clock validation error, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{"negative threshold", func(c *Config) { c.Sync.Threshold = -1 }, "threshold"},
		{"bound below threshold", func(c *Config) { c.Sync.PlausibleBound = 0.001 }, "plausible_bound"},
		{"zero implausible wait", func(c *Config) { c.Sync.ImplausibleWait = 0 }, "implausible_wait"},
		{"zero chunk", func(c *Config) { c.Sync.MaxChunkDuration = 0 }, "max_chunk_duration"},
		{"negative decode gap", func(c *Config) { c.Sync.MaxDecodeGap = -0.1 }, "max_decode_gap"},
		{"empty queue", func(c *Config) { c.Playback.QueueCapacity = 0 }, "queue_capacity"},
		{"zero packet", func(c *Config) { c.Playback.PacketDuration = 0 }, "packet_duration"},
		{"loud", func(c *Config) { c.Playback.Volume = 3 }, "volume"},
		{"zero speed", func(c *Config) { c.Playback.Speed = 0 }, "speed"},
		{"bad sample format", func(c *Config) { c.Playback.SampleFormat = "s12" }, "sample_format"},
		{"bad codec", func(c *Config) { c.Source.Codec = "aac" }, "codec"},
		{"low rate", func(c *Config) { c.Source.SampleRate = 100 }, "sample_rate"},
		{"no channels", func(c *Config) { c.Source.Channels = 0 }, "channels"},
		{"negative tone", func(c *Config) { c.Source.ToneDuration = -1 }, "tone_duration"},
		{"discover without timeout", func(c *Config) {
			c.Source.Discover = true
			c.Source.DiscoveryTimeout = 0
		}, "discovery_timeout"},
		{"odd bit depth", func(c *Config) { c.Source.BitDepth = 20 }, "bit_depth"},
		{"bad advertise port", func(c *Config) { c.Source.AdvertisePort = 70000 }, "advertise_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errorMsg, err)
			}
		})
	}
}

// ABOUTME: Player configuration loaded from YAML
// ABOUTME: Defaults for every tunable, validation and conversion to loop timing
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Resonate-Protocol/avsync-go/internal/player"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/clock"
	"gopkg.in/yaml.v3"
)

// Config is the complete player configuration
type Config struct {
	Sync     SyncConfig     `yaml:"sync"`
	Playback PlaybackConfig `yaml:"playback"`
	Source   SourceConfig   `yaml:"source"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SyncConfig holds the audio loop timing constants
type SyncConfig struct {
	Threshold        float64 `yaml:"threshold"`          // seconds
	PlausibleBound   float64 `yaml:"plausible_bound"`    // seconds
	ImplausibleWait  float64 `yaml:"implausible_wait"`   // seconds
	MaxChunkDuration float64 `yaml:"max_chunk_duration"` // seconds
	MaxDecodeGap     float64 `yaml:"max_decode_gap"`     // seconds
}

// PlaybackConfig controls the clock, queue and output device
type PlaybackConfig struct {
	Clock          string  `yaml:"clock"` // internal or external
	QueueCapacity  int     `yaml:"queue_capacity"`
	PacketDuration float64 `yaml:"packet_duration"` // seconds, file and tone sources
	Output         bool    `yaml:"output"`
	Volume         float64 `yaml:"volume"`
	Muted          bool    `yaml:"muted"`
	Speed          float64 `yaml:"speed"`
	SampleFormat   string  `yaml:"sample_format"` // device format, empty keeps the stream format
}

// SourceConfig selects where packets come from. File wins over Server,
// Server wins over Tone.
type SourceConfig struct {
	File             string  `yaml:"file"`
	Codec            string  `yaml:"codec"`     // pcm or opus, for file and tone sources
	BitDepth         int     `yaml:"bit_depth"` // pcm payload bits, 16 or 24
	ToneFrequency    float64 `yaml:"tone_frequency"`
	ToneDuration     float64 `yaml:"tone_duration"` // seconds, 0 plays forever
	SampleRate       int     `yaml:"sample_rate"`
	Channels         int     `yaml:"channels"`
	Server           string  `yaml:"server"`
	Discover         bool    `yaml:"discover"`
	DiscoveryTimeout float64 `yaml:"discovery_timeout"` // seconds
	Name             string  `yaml:"name"`
	// AdvertisePort announces the player over mDNS in network mode when set
	AdvertisePort int `yaml:"advertise_port"`
}

// MetricsConfig enables the Prometheus endpoint when Address is set
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// LoggingConfig controls log destination
type LoggingConfig struct {
	File string `yaml:"file"`
}

// Default returns a configuration with every field set
func Default() *Config {
	loop := player.DefaultConfig()
	return &Config{
		Sync: SyncConfig{
			Threshold:        loop.SyncThreshold,
			PlausibleBound:   loop.PlausibleBound,
			ImplausibleWait:  loop.ImplausibleWait.Seconds(),
			MaxChunkDuration: loop.MaxChunkDuration,
			MaxDecodeGap:     loop.MaxDecodeGap,
		},
		Playback: PlaybackConfig{
			Clock:          "internal",
			QueueCapacity:  256,
			PacketDuration: 0.02,
			Output:         true,
			Volume:         1.0,
			Speed:          1.0,
		},
		Source: SourceConfig{
			Codec:            "pcm",
			BitDepth:         16,
			ToneFrequency:    440,
			SampleRate:       48000,
			Channels:         2,
			DiscoveryTimeout: 10,
		},
	}
}

// Load reads a YAML file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync config: %w", err)
	}
	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config: %w", err)
	}
	return nil
}

// Validate validates loop timing
func (s *SyncConfig) Validate() error {
	if s.Threshold < 0 {
		return fmt.Errorf("threshold cannot be negative, got %f", s.Threshold)
	}
	if s.PlausibleBound <= s.Threshold {
		return fmt.Errorf("plausible_bound (%f) must be greater than threshold (%f)", s.PlausibleBound, s.Threshold)
	}
	if s.ImplausibleWait <= 0 {
		return fmt.Errorf("implausible_wait must be positive, got %f", s.ImplausibleWait)
	}
	if s.MaxChunkDuration <= 0 || s.MaxChunkDuration > 1 {
		return fmt.Errorf("max_chunk_duration must be in (0, 1], got %f", s.MaxChunkDuration)
	}
	if s.MaxDecodeGap < 0 {
		return fmt.Errorf("max_decode_gap cannot be negative, got %f", s.MaxDecodeGap)
	}
	return nil
}

// Validate validates playback settings
func (p *PlaybackConfig) Validate() error {
	if _, ok := clock.ParseType(p.Clock); !ok {
		return fmt.Errorf("clock must be 'internal' or 'external', got '%s'", p.Clock)
	}
	if p.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", p.QueueCapacity)
	}
	if p.PacketDuration <= 0 {
		return fmt.Errorf("packet_duration must be positive, got %f", p.PacketDuration)
	}
	if p.Volume < 0 || p.Volume > 2 {
		return fmt.Errorf("volume must be between 0 and 2, got %f", p.Volume)
	}
	if p.Speed <= 0 {
		return fmt.Errorf("speed must be positive, got %f", p.Speed)
	}
	if p.SampleFormat != "" {
		if _, err := audio.ParseSampleFormat(p.SampleFormat); err != nil {
			return fmt.Errorf("sample_format: %w", err)
		}
	}
	return nil
}

// Validate validates the source selection
func (s *SourceConfig) Validate() error {
	validCodecs := map[string]bool{"pcm": true, "opus": true}
	if !validCodecs[s.Codec] {
		return fmt.Errorf("codec must be 'pcm' or 'opus', got '%s'", s.Codec)
	}
	if s.BitDepth != 16 && s.BitDepth != 24 {
		return fmt.Errorf("bit_depth must be 16 or 24, got %d", s.BitDepth)
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", s.SampleRate)
	}
	if s.Channels < 1 || s.Channels > 8 {
		return fmt.Errorf("channels must be between 1 and 8, got %d", s.Channels)
	}
	if s.ToneDuration < 0 {
		return fmt.Errorf("tone_duration cannot be negative, got %f", s.ToneDuration)
	}
	if s.Discover && s.DiscoveryTimeout <= 0 {
		return fmt.Errorf("discovery_timeout must be positive when discover is set, got %f", s.DiscoveryTimeout)
	}
	if s.AdvertisePort < 0 || s.AdvertisePort > 65535 {
		return fmt.Errorf("advertise_port must be between 0 and 65535, got %d", s.AdvertisePort)
	}
	return nil
}

// Loop converts the sync section to loop timing
func (c *Config) Loop() player.Config {
	return player.Config{
		SyncThreshold:    c.Sync.Threshold,
		PlausibleBound:   c.Sync.PlausibleBound,
		ImplausibleWait:  seconds(c.Sync.ImplausibleWait),
		MaxChunkDuration: c.Sync.MaxChunkDuration,
		MaxDecodeGap:     c.Sync.MaxDecodeGap,
	}
}

// ClockType returns the parsed clock mode
func (c *Config) ClockType() clock.Type {
	t, _ := clock.ParseType(c.Playback.Clock)
	return t
}

// GetDiscoveryTimeout returns the discovery timeout as a time.Duration
func (s *SourceConfig) GetDiscoveryTimeout() time.Duration {
	return seconds(s.DiscoveryTimeout)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

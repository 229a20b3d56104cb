// ABOUTME: Generated sine tone source
// ABOUTME: Seekable, optionally bounded test signal for headless runs
package demux

import (
	"io"
	"math"
	"sync"
)

// ToneSource generates a sine wave on every channel
type ToneSource struct {
	mu         sync.Mutex
	frame      int64
	frames     int64 // total length, 0 for endless
	frequency  float64
	sampleRate int
	channels   int
}

// NewToneSource creates a tone. A duration of 0 never ends.
func NewToneSource(frequency float64, sampleRate, channels int, duration float64) *ToneSource {
	return &ToneSource{
		frequency:  frequency,
		sampleRate: sampleRate,
		channels:   channels,
		frames:     int64(duration * float64(sampleRate)),
	}
}

func (s *ToneSource) Read(samples []int32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := int64(len(samples) / s.channels)
	if s.frames > 0 {
		if left := s.frames - s.frame; left < frames {
			frames = left
		}
		if frames <= 0 {
			return 0, io.EOF
		}
	}

	for i := int64(0); i < frames; i++ {
		t := float64(s.frame+i) / float64(s.sampleRate)
		// 50% of full scale
		v := int32(math.Sin(2*math.Pi*s.frequency*t) * 8388607.0 * 0.5)
		for ch := 0; ch < s.channels; ch++ {
			samples[int(i)*s.channels+ch] = v
		}
	}
	s.frame += frames

	return int(frames) * s.channels, nil
}

// SeekFrame moves the generator to frame
func (s *ToneSource) SeekFrame(frame int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame < 0 {
		frame = 0
	}
	s.frame = frame
	return nil
}

func (s *ToneSource) SampleRate() int { return s.sampleRate }
func (s *ToneSource) Channels() int   { return s.channels }
func (s *ToneSource) Metadata() (string, string, string) {
	return "Test Tone", "avsync", ""
}
func (s *ToneSource) Close() error { return nil }

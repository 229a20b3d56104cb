// ABOUTME: FLAC file source
// ABOUTME: Parses frames with mewkiz/flac and interleaves subframes
package demux

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mewkiz/flac"
)

// FLACSource reads from a FLAC file
type FLACSource struct {
	file     *os.File
	stream   *flac.Stream
	channels int
	bitDepth int
	rate     int
	title    string
	pending  []int32 // interleaved samples parsed but not yet read
}

// NewFLACSource opens a seekable FLAC stream
func NewFLACSource(filePath string) (*FLACSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.NewSeek(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	s := &FLACSource{
		file:     f,
		stream:   stream,
		channels: int(info.NChannels),
		bitDepth: int(info.BitsPerSample),
		rate:     int(info.SampleRate),
		title:    titleFromPath(filePath),
	}

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, s.rate, s.channels, s.bitDepth)
	return s, nil
}

func (s *FLACSource) Read(samples []int32) (int, error) {
	for len(s.pending) < len(samples) {
		frame, err := s.stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("flac frame: %w", err)
		}

		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < s.channels; ch++ {
				s.pending = append(s.pending, scaleTo24(int(frame.Subframes[ch].Samples[i]), s.bitDepth))
			}
		}
	}

	if len(s.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(samples, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// SeekFrame seeks to the sample frame
func (s *FLACSource) SeekFrame(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if _, err := s.stream.Seek(uint64(frame)); err != nil {
		return fmt.Errorf("flac seek: %w", err)
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *FLACSource) SampleRate() int { return s.rate }
func (s *FLACSource) Channels() int   { return s.channels }
func (s *FLACSource) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *FLACSource) Close() error {
	return s.stream.Close()
}

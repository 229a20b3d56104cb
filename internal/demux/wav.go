// ABOUTME: WAV file source
// ABOUTME: Reads integer PCM through go-audio/wav
package demux

import (
	"fmt"
	"io"
	"log"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource reads from a WAV file
type WAVSource struct {
	file       *os.File
	decoder    *wav.Decoder
	buf        *goaudio.IntBuffer
	sampleRate int
	channels   int
	bitDepth   int
	title      string
}

// NewWAVSource opens a WAV file
func NewWAVSource(filePath string) (*WAVSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", filePath)
	}

	s := &WAVSource{
		file:       f,
		decoder:    decoder,
		sampleRate: int(decoder.SampleRate),
		channels:   int(decoder.NumChans),
		bitDepth:   int(decoder.BitDepth),
		title:      titleFromPath(filePath),
	}
	if s.channels == 0 || s.sampleRate == 0 {
		f.Close()
		return nil, fmt.Errorf("invalid WAV header: %d Hz, %d channels", s.sampleRate, s.channels)
	}
	s.buf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: s.channels, SampleRate: s.sampleRate},
		SourceBitDepth: s.bitDepth,
	}

	log.Printf("Loaded WAV: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, s.sampleRate, s.channels, s.bitDepth)
	return s, nil
}

func (s *WAVSource) Read(samples []int32) (int, error) {
	if cap(s.buf.Data) < len(samples) {
		s.buf.Data = make([]int, len(samples))
	}
	s.buf.Data = s.buf.Data[:len(samples)]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		v := s.buf.Data[i]
		if s.bitDepth == 8 {
			v -= 128 // 8-bit WAV is unsigned
		}
		samples[i] = scaleTo24(v, s.bitDepth)
	}
	return n, nil
}

// SeekFrame rewinds to the data chunk and skips frame frames
func (s *WAVSource) SeekFrame(frame int64) error {
	if err := s.decoder.Rewind(); err != nil {
		return fmt.Errorf("wav rewind: %w", err)
	}

	skip := frame * int64(s.channels)
	scratch := make([]int32, 4096*s.channels)
	for skip > 0 {
		n := int64(len(scratch))
		if skip < n {
			n = skip
		}
		got, err := s.Read(scratch[:n])
		if err != nil {
			return fmt.Errorf("wav seek past end: %w", err)
		}
		skip -= int64(got)
	}
	return nil
}

func (s *WAVSource) SampleRate() int { return s.sampleRate }
func (s *WAVSource) Channels() int   { return s.channels }
func (s *WAVSource) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *WAVSource) Close() error {
	return s.file.Close()
}

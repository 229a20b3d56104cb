// ABOUTME: MP3 file source
// ABOUTME: Decodes through go-mp3, which always yields 16-bit stereo
package demux

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// mp3FrameBytes is the size of one decoded stereo 16-bit frame
const mp3FrameBytes = 4

// MP3Source reads from an MP3 file
type MP3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
	title   string
}

// NewMP3Source opens an MP3 file
func NewMP3Source(filePath string) (*MP3Source, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	s := &MP3Source{file: f, decoder: decoder, title: titleFromPath(filePath)}
	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", s.title, decoder.SampleRate())
	return s, nil
}

func (s *MP3Source) Read(samples []int32) (int, error) {
	numBytes := len(samples) * 2
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.decoder, buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if n == 0 && err == nil {
		err = io.EOF
	}
	if err != nil {
		return 0, err
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		samples[i] = int32(int16(binary.LittleEndian.Uint16(buf[i*2:]))) << 8
	}
	return numSamples, nil
}

// SeekFrame seeks the decoded stream
func (s *MP3Source) SeekFrame(frame int64) error {
	if _, err := s.decoder.Seek(frame*mp3FrameBytes, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek: %w", err)
	}
	return nil
}

func (s *MP3Source) SampleRate() int { return s.decoder.SampleRate() }
func (s *MP3Source) Channels() int   { return 2 }
func (s *MP3Source) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *MP3Source) Close() error {
	return s.file.Close()
}

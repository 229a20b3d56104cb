// ABOUTME: PCM sources feeding the demuxer
// ABOUTME: Opens files by extension, falls back to a generated test tone
package demux

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotSeekable is returned by Demuxer.Seek when the source cannot seek
var ErrNotSeekable = errors.New("demux: source is not seekable")

// Source provides interleaved PCM samples in the 24-bit int32 range
type Source interface {
	// Read fills samples and returns how many were written. It returns
	// io.EOF once the source is exhausted.
	Read(samples []int32) (int, error)
	SampleRate() int
	Channels() int
	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)
	Close() error
}

// Seeker is implemented by sources that can jump to a frame
type Seeker interface {
	SeekFrame(frame int64) error
}

// Open creates a source for a local file, chosen by extension
func Open(path string) (Source, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return NewWAVSource(path)
	case ".mp3":
		return NewMP3Source(path)
	case ".flac":
		return NewFLACSource(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .wav, .mp3, .flac)", ext)
	}
}

// titleFromPath uses the file name as the track title
func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// scaleTo24 moves a sample of the given bit depth into the 24-bit range
func scaleTo24(sample int, bits int) int32 {
	switch {
	case bits < 24:
		return int32(sample) << (24 - bits)
	case bits > 24:
		return int32(sample >> (bits - 24))
	}
	return int32(sample)
}

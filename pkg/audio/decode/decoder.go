// ABOUTME: Decoder interface definition
// ABOUTME: Stateful packet decoder producing raw sample bytes and a leftover count
package decode

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio/resample"
)

var (
	// ErrUnavailable is returned when decoding with a closed or unopened decoder
	ErrUnavailable = errors.New("decode: decoder unavailable")
	// ErrUnsupportedCodec is returned by New for codecs without a decoder
	ErrUnsupportedCodec = errors.New("decode: unsupported codec")
	// ErrShortPacket is returned when a payload is smaller than one frame
	ErrShortPacket = errors.New("decode: packet shorter than one frame")
)

// Decoder decodes demuxed packets into raw samples.
//
// After a successful Decode, Data holds the samples in Resampler().InFormat()
// and UndecodedSize reports how many trailing input bytes were not consumed.
// Data is only valid until the next call to Decode or Flush.
type Decoder interface {
	// IsAvailable reports whether the decoder is open
	IsAvailable() bool

	// Decode consumes a payload
	Decode(data []byte) error

	// Data returns the samples produced by the last Decode
	Data() []byte

	// UndecodedSize returns the trailing input bytes left for the next call
	UndecodedSize() int

	// Flush drops buffered decoder state, used after seeks
	Flush()

	// Resampler converts Data to the output format
	Resampler() resample.Resampler

	// Close releases decoder resources
	Close() error
}

// New creates the decoder for a stream format
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "pcm", "":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, format.Codec)
}

// ABOUTME: Encoder interface definition
// ABOUTME: Turns source samples into packet payloads for the packet queue
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

// Encoder encodes PCM int32 samples (24-bit range) into packet payloads
type Encoder interface {
	// Encode converts interleaved samples to one payload
	Encode(samples []int32) ([]byte, error)

	// Format describes the payloads, for the decoder on the other side
	Format() audio.Format

	// FrameSize is the exact frame count Encode expects, 0 when any is fine
	FrameSize() int

	// Close releases encoder resources
	Close() error
}

// New creates the encoder for a stream format
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	}
	return nil, fmt.Errorf("unsupported codec for encoder: %s", format.Codec)
}

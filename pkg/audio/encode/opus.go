// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms frames of int32 samples to Opus packets
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket is the largest payload libopus recommends
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder   *opus.Encoder
	format    audio.Format
	frameSize int
	pcm       []int16
}

// NewOpus creates a new Opus encoder
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	format.BitDepth = 16
	format.SampleFormat = audio.SampleFormatS16
	return &OpusEncoder{
		encoder:   encoder,
		format:    format,
		frameSize: format.SampleRate / 50, // 20ms
	}, nil
}

// Encode converts exactly one frame of int32 samples to an Opus packet
func (e *OpusEncoder) Encode(samples []int32) ([]byte, error) {
	if want := e.frameSize * e.format.Channels; len(samples) != want {
		return nil, fmt.Errorf("opus encode: got %d samples, need %d", len(samples), want)
	}

	e.pcm = e.pcm[:0]
	for _, sample := range samples {
		e.pcm = append(e.pcm, audio.SampleToInt16(sample))
	}

	data := make([]byte, maxOpusPacket)
	n, err := e.encoder.Encode(e.pcm, data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}
	return data[:n], nil
}

func (e *OpusEncoder) Format() audio.Format {
	return e.format
}

func (e *OpusEncoder) FrameSize() int {
	return e.frameSize
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}

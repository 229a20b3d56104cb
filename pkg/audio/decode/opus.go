// ABOUTME: Opus audio decoder
// ABOUTME: Decodes one Opus packet per call to interleaved s16
package decode

import (
	"encoding/binary"
	"fmt"
	"log"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio/resample"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is 120ms at 48kHz, the longest Opus frame
const maxOpusFrame = 5760

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder   *opus.Decoder
	format    audio.Format
	pcm       []int16
	out       []byte
	available bool
	resampler *resample.Linear
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder:   dec,
		format:    format,
		pcm:       make([]int16, maxOpusFrame*format.Channels),
		available: true,
		resampler: resample.NewLinear(audio.Format{
			Codec:        "pcm",
			SampleRate:   format.SampleRate,
			Channels:     format.Channels,
			SampleFormat: audio.SampleFormatS16,
		}),
	}, nil
}

func (d *OpusDecoder) IsAvailable() bool {
	return d.available
}

// Decode consumes a whole Opus packet
func (d *OpusDecoder) Decode(data []byte) error {
	if !d.available {
		return ErrUnavailable
	}
	d.out = d.out[:0]

	n, err := d.decoder.Decode(data, d.pcm)
	if err != nil {
		return fmt.Errorf("opus decode failed: %w", err)
	}

	samples := d.pcm[:n*d.format.Channels]
	for _, s := range samples {
		d.out = binary.LittleEndian.AppendUint16(d.out, uint16(s))
	}
	return nil
}

func (d *OpusDecoder) Data() []byte {
	return d.out
}

// UndecodedSize is always zero: every packet is one Opus frame
func (d *OpusDecoder) UndecodedSize() int {
	return 0
}

// Flush recreates the codec state so prediction does not leak across a seek
func (d *OpusDecoder) Flush() {
	d.out = d.out[:0]
	dec, err := opus.NewDecoder(d.format.SampleRate, d.format.Channels)
	if err != nil {
		log.Printf("Opus decoder reset failed, keeping previous state: %v", err)
		return
	}
	d.decoder = dec
}

func (d *OpusDecoder) Resampler() resample.Resampler {
	return d.resampler
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	d.available = false
	return nil
}

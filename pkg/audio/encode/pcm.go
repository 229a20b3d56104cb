// ABOUTME: PCM audio encoder
// ABOUTME: Encodes int32 samples to 16-bit or packed 24-bit PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	format audio.Format
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	sf, _ := audio.SampleFormatForBitDepth(format.BitDepth)
	format.SampleFormat = sf
	return &PCMEncoder{format: format}, nil
}

// Encode converts int32 samples to PCM bytes
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	if e.format.BitDepth == 24 {
		output := make([]byte, 0, len(samples)*3)
		for _, sample := range samples {
			b := audio.SampleTo24Bit(sample)
			output = append(output, b[:]...)
		}
		return output, nil
	}

	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	return output, nil
}

func (e *PCMEncoder) Format() audio.Format {
	return e.format
}

// FrameSize is 0: PCM payloads can hold any number of frames
func (e *PCMEncoder) FrameSize() int {
	return 0
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}

// ABOUTME: PCM audio decoder
// ABOUTME: Decodes little-endian PCM in bounded batches of frames
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio/resample"
)

// DefaultPCMFrames is the number of frames decoded per call
const DefaultPCMFrames = 4096

// PCMDecoder decodes raw PCM. Packed 24-bit input is widened to s32.
type PCMDecoder struct {
	bitDepth  int
	channels  int
	inFrame   int // bytes per input frame
	maxFrames int
	out       []byte
	undecoded int
	available bool
	resampler *resample.Linear
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	return NewPCMWithFrames(format, DefaultPCMFrames)
}

// NewPCMWithFrames creates a PCM decoder that decodes at most frames per call
func NewPCMWithFrames(format audio.Format, frames int) (Decoder, error) {
	d, err := newPCM(format, frames)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newPCM(format audio.Format, frames int) (*PCMDecoder, error) {
	if format.Codec != "pcm" && format.Codec != "" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid PCM format: %s", format)
	}
	if frames <= 0 {
		frames = DefaultPCMFrames
	}

	d := &PCMDecoder{
		channels:  format.Channels,
		maxFrames: frames,
		available: true,
	}

	var sf audio.SampleFormat
	if format.SampleFormat.Packed() == audio.SampleFormatFloat {
		d.bitDepth = 32
		sf = audio.SampleFormatFloat
	} else {
		bits := format.BitDepth
		if bits == 0 {
			bits = format.SampleFormat.BytesPerSample() * 8
		}
		var err error
		if sf, err = audio.SampleFormatForBitDepth(bits); err != nil {
			return nil, err
		}
		d.bitDepth = bits
	}
	d.inFrame = d.bitDepth / 8 * d.channels

	d.resampler = resample.NewLinear(audio.Format{
		Codec:        "pcm",
		SampleRate:   format.SampleRate,
		Channels:     format.Channels,
		SampleFormat: sf,
	})
	return d, nil
}

func (d *PCMDecoder) IsAvailable() bool {
	return d.available
}

// Decode converts up to maxFrames whole frames. Bytes beyond that are left
// undecoded. A trailing partial frame is dropped.
func (d *PCMDecoder) Decode(data []byte) error {
	if !d.available {
		return ErrUnavailable
	}
	d.out = d.out[:0]
	d.undecoded = 0

	frames := len(data) / d.inFrame
	if frames == 0 {
		return fmt.Errorf("%w: %d bytes, frame is %d", ErrShortPacket, len(data), d.inFrame)
	}
	if frames > d.maxFrames {
		frames = d.maxFrames
	}

	consumed := frames * d.inFrame
	in := data[:consumed]
	if d.bitDepth == 24 {
		// 3 bytes in, 4 bytes out, left-justified in the s32 range
		for i := 0; i+3 <= len(in); i += 3 {
			s := audio.SampleFrom24Bit([3]byte{in[i], in[i+1], in[i+2]}) << 8
			d.out = append(d.out, byte(s), byte(s>>8), byte(s>>16), byte(s>>24))
		}
	} else {
		d.out = append(d.out, in...)
	}

	if rest := len(data) - consumed; rest >= d.inFrame {
		d.undecoded = rest
	}
	return nil
}

func (d *PCMDecoder) Data() []byte {
	return d.out
}

func (d *PCMDecoder) UndecodedSize() int {
	return d.undecoded
}

// Flush drops the last output. PCM keeps no other state.
func (d *PCMDecoder) Flush() {
	d.out = d.out[:0]
	d.undecoded = 0
}

func (d *PCMDecoder) Resampler() resample.Resampler {
	return d.resampler
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	d.available = false
	return nil
}

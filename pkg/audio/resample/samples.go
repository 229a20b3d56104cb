// ABOUTME: Conversion between raw sample bytes and normalized float frames
// ABOUTME: Handles packed and planar layouts of u8, s16, s32, f32 and f64
package resample

import (
	"encoding/binary"
	"math"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

// readSample decodes one little-endian sample to the range [-1, 1)
func readSample(b []byte, f audio.SampleFormat) float64 {
	switch f.Packed() {
	case audio.SampleFormatU8:
		return (float64(b[0]) - 128) / 128
	case audio.SampleFormatS16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case audio.SampleFormatS32:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
	case audio.SampleFormatFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case audio.SampleFormatDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// writeSample encodes one normalized sample, clamping integer formats
func writeSample(b []byte, f audio.SampleFormat, v float64) {
	switch f.Packed() {
	case audio.SampleFormatU8:
		b[0] = byte(clampInt(math.Round(v*128)+128, 0, 255))
	case audio.SampleFormatS16:
		binary.LittleEndian.PutUint16(b, uint16(int16(clampInt(math.Round(v*32768), -32768, 32767))))
	case audio.SampleFormatS32:
		binary.LittleEndian.PutUint32(b, uint32(int32(clampInt(math.Round(v*2147483648), -2147483648, 2147483647))))
	case audio.SampleFormatFloat:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case audio.SampleFormatDouble:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

func clampInt(v, lo, hi float64) int64 {
	if v < lo {
		return int64(lo)
	}
	if v > hi {
		return int64(hi)
	}
	return int64(v)
}

// decodeFrames turns raw bytes into interleaved float samples.
// Trailing bytes that do not form a whole frame are ignored.
func decodeFrames(data []byte, format audio.Format) []float64 {
	bps := format.BytesPerSample()
	ch := format.Channels
	frames := len(data) / (bps * ch)
	out := make([]float64, frames*ch)

	if format.IsPlanar() {
		for c := 0; c < ch; c++ {
			plane := data[c*frames*bps:]
			for i := 0; i < frames; i++ {
				out[i*ch+c] = readSample(plane[i*bps:], format.SampleFormat)
			}
		}
		return out
	}

	for i := range out {
		out[i] = readSample(data[i*bps:], format.SampleFormat)
	}
	return out
}

// encodeFrames turns interleaved float samples into raw bytes
func encodeFrames(samples []float64, format audio.Format) []byte {
	bps := format.BytesPerSample()
	ch := format.Channels
	frames := len(samples) / ch
	out := make([]byte, len(samples)*bps)

	if format.IsPlanar() {
		for c := 0; c < ch; c++ {
			plane := out[c*frames*bps:]
			for i := 0; i < frames; i++ {
				writeSample(plane[i*bps:], format.SampleFormat, samples[i*ch+c])
			}
		}
		return out
	}

	for i, v := range samples {
		writeSample(out[i*bps:], format.SampleFormat, v)
	}
	return out
}

// remapChannels converts one interleaved frame layout to another.
// Mono is duplicated into every output channel, downmix to mono averages,
// other layouts copy the shared channels and leave the rest silent.
func remapChannels(samples []float64, in, out int) []float64 {
	if in == out {
		return samples
	}
	frames := len(samples) / in
	res := make([]float64, frames*out)

	for i := 0; i < frames; i++ {
		src := samples[i*in : (i+1)*in]
		dst := res[i*out : (i+1)*out]
		switch {
		case in == 1:
			for c := range dst {
				dst[c] = src[0]
			}
		case out == 1:
			var sum float64
			for _, v := range src {
				sum += v
			}
			dst[0] = sum / float64(in)
		default:
			copy(dst, src)
		}
	}
	return res
}

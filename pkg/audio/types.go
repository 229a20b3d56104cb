// ABOUTME: Audio type definitions
// ABOUTME: Defines sample formats, stream formats and timestamped packets
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// SampleFormat identifies the in-memory layout of a single sample
type SampleFormat int

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatU8
	SampleFormatS16
	SampleFormatS32
	SampleFormatFloat
	SampleFormatDouble
	SampleFormatU8Planar
	SampleFormatS16Planar
	SampleFormatS32Planar
	SampleFormatFloatPlanar
	SampleFormatDoublePlanar
)

var sampleFormatNames = map[SampleFormat]string{
	SampleFormatUnknown:      "unknown",
	SampleFormatU8:           "u8",
	SampleFormatS16:          "s16",
	SampleFormatS32:          "s32",
	SampleFormatFloat:        "f32",
	SampleFormatDouble:       "f64",
	SampleFormatU8Planar:     "u8p",
	SampleFormatS16Planar:    "s16p",
	SampleFormatS32Planar:    "s32p",
	SampleFormatFloatPlanar:  "f32p",
	SampleFormatDoublePlanar: "f64p",
}

func (f SampleFormat) String() string {
	if name, ok := sampleFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("SampleFormat(%d)", int(f))
}

// ParseSampleFormat returns the sample format with the given short name
func ParseSampleFormat(name string) (SampleFormat, error) {
	for f, n := range sampleFormatNames {
		if n == name && f != SampleFormatUnknown {
			return f, nil
		}
	}
	return SampleFormatUnknown, fmt.Errorf("unknown sample format: %s", name)
}

// Packed returns the interleaved counterpart of a planar format
func (f SampleFormat) Packed() SampleFormat {
	switch f {
	case SampleFormatU8Planar:
		return SampleFormatU8
	case SampleFormatS16Planar:
		return SampleFormatS16
	case SampleFormatS32Planar:
		return SampleFormatS32
	case SampleFormatFloatPlanar:
		return SampleFormatFloat
	case SampleFormatDoublePlanar:
		return SampleFormatDouble
	}
	return f
}

// IsPlanar reports whether channels are stored in separate planes
func (f SampleFormat) IsPlanar() bool {
	return f.Packed() != f
}

// BytesPerSample returns the size of one sample of one channel
func (f SampleFormat) BytesPerSample() int {
	switch f.Packed() {
	case SampleFormatU8:
		return 1
	case SampleFormatS16:
		return 2
	case SampleFormatS32, SampleFormatFloat:
		return 4
	case SampleFormatDouble:
		return 8
	}
	return 0
}

// SampleFormatForBitDepth maps an integer PCM bit depth to the sample format
// used to carry it in memory. 24-bit audio is widened to s32.
func SampleFormatForBitDepth(bits int) (SampleFormat, error) {
	switch bits {
	case 8:
		return SampleFormatU8, nil
	case 16:
		return SampleFormatS16, nil
	case 24, 32:
		return SampleFormatS32, nil
	}
	return SampleFormatUnknown, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", bits)
}

// Format describes audio stream format
type Format struct {
	Codec        string
	SampleRate   int
	Channels     int
	SampleFormat SampleFormat
	BitDepth     int    // Bit depth of the encoded stream, may differ from SampleFormat (24-bit PCM)
	CodecHeader  []byte // For FLAC, Opus, etc.
}

// IsValid reports whether the format can describe sample data
func (f Format) IsValid() bool {
	return f.SampleRate > 0 && f.Channels > 0 && f.SampleFormat.BytesPerSample() > 0
}

// BytesPerSample returns the size of one sample of one channel
func (f Format) BytesPerSample() int {
	return f.SampleFormat.BytesPerSample()
}

// BytesPerFrame returns the size of one sample across all channels
func (f Format) BytesPerFrame() int {
	return f.BytesPerSample() * f.Channels
}

// BytesPerSecond returns the byte rate of the sample data
func (f Format) BytesPerSecond() float64 {
	return float64(f.BytesPerFrame() * f.SampleRate)
}

// IsPlanar reports whether the sample layout is planar
func (f Format) IsPlanar() bool {
	return f.SampleFormat.IsPlanar()
}

// DurationForBytes returns the playback duration in seconds of n bytes
func (f Format) DurationForBytes(n int) float64 {
	rate := f.BytesPerSecond()
	if rate <= 0 {
		return 0
	}
	return float64(n) / rate
}

// BytesForDuration returns the number of whole-frame bytes covering seconds
func (f Format) BytesForDuration(seconds float64) int {
	frame := f.BytesPerFrame()
	if frame == 0 || seconds <= 0 {
		return 0
	}
	frames := int(seconds * float64(f.SampleRate))
	return frames * frame
}

// Matches reports whether two formats describe the same sample layout.
// The codec and codec header are ignored.
func (f Format) Matches(o Format) bool {
	return f.SampleRate == o.SampleRate &&
		f.Channels == o.Channels &&
		f.SampleFormat == o.SampleFormat
}

func (f Format) String() string {
	codec := f.Codec
	if codec == "" {
		codec = "raw"
	}
	return fmt.Sprintf("%s %dHz %dch %s", codec, f.SampleRate, f.Channels, f.SampleFormat)
}

// SampleToInt16 converts an int32 sample in 24-bit range to int16
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// ABOUTME: Software volume scaling on raw sample bytes
// ABOUTME: Multiplies every sample in place, integer formats wrap on overflow
package audio

import (
	"encoding/binary"
	"math"
)

// ScaleVolume multiplies every sample in data by gain, in place.
//
// Samples are little-endian. Planar layouts are scaled exactly like their
// packed counterparts since every sample gets the same gain. Integer results
// are truncated to the sample width without clipping. A gain of 1 leaves the
// buffer untouched. Trailing bytes that do not form a whole sample are left
// as they are.
func ScaleVolume(data []byte, format SampleFormat, gain float64) {
	if gain == 1 || len(data) == 0 {
		return
	}

	switch format.Packed() {
	case SampleFormatU8:
		for i := range data {
			data[i] = byte(int64(float64(data[i]) * gain))
		}
	case SampleFormatS16:
		for i := 0; i+2 <= len(data); i += 2 {
			s := int16(binary.LittleEndian.Uint16(data[i:]))
			binary.LittleEndian.PutUint16(data[i:], uint16(int64(float64(s)*gain)))
		}
	case SampleFormatS32:
		for i := 0; i+4 <= len(data); i += 4 {
			s := int32(binary.LittleEndian.Uint32(data[i:]))
			binary.LittleEndian.PutUint32(data[i:], uint32(int64(float64(s)*gain)))
		}
	case SampleFormatFloat:
		g := float32(gain)
		for i := 0; i+4 <= len(data); i += 4 {
			s := math.Float32frombits(binary.LittleEndian.Uint32(data[i:]))
			binary.LittleEndian.PutUint32(data[i:], math.Float32bits(s*g))
		}
	case SampleFormatDouble:
		for i := 0; i+8 <= len(data); i += 8 {
			s := math.Float64frombits(binary.LittleEndian.Uint64(data[i:]))
			binary.LittleEndian.PutUint64(data[i:], math.Float64bits(s*gain))
		}
	}
}

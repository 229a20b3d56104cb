// ABOUTME: Tests for software volume scaling
// ABOUTME: Covers identity gain, per-format scaling and integer wrap-around
package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestScaleVolumeIdentity(t *testing.T) {
	formats := []SampleFormat{
		SampleFormatU8, SampleFormatS16, SampleFormatS32, SampleFormatFloat, SampleFormatDouble,
		SampleFormatU8Planar, SampleFormatS16Planar, SampleFormatS32Planar,
		SampleFormatFloatPlanar, SampleFormatDoublePlanar,
	}

	// NaN bit patterns included: a multiply would not preserve them
	original := []byte{0x01, 0xFF, 0x7F, 0x80, 0x00, 0x00, 0xC0, 0x7F, 0xFF, 0xFF, 0xFF, 0x7F, 0x12, 0x34, 0xF8, 0x7F}

	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			data := append([]byte(nil), original...)
			ScaleVolume(data, f, 1.0)
			if !bytes.Equal(data, original) {
				t.Errorf("gain 1.0 changed bytes: %v -> %v", original, data)
			}
		})
	}
}

func TestScaleVolumeS16(t *testing.T) {
	data := make([]byte, 6)
	for i, v := range []int16{1000, -1000, 20000} {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}

	ScaleVolume(data, SampleFormatS16, 0.5)

	expected := []int16{500, -500, 10000}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestScaleVolumeS16Wraps(t *testing.T) {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(int16(20000)))

	ScaleVolume(data, SampleFormatS16, 2.0)

	// 40000 truncated to 16 bits
	got := int16(binary.LittleEndian.Uint16(data))
	if got != int16(40000-65536) {
		t.Errorf("expected wrap-around to %d, got %d", 40000-65536, got)
	}
}

func TestScaleVolumeS32(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, uint32(int32(1<<20)))
	neg := int32(-(1 << 20))
	binary.LittleEndian.PutUint32(data[4:], uint32(neg))

	ScaleVolume(data, SampleFormatS32Planar, 0.25)

	if got := int32(binary.LittleEndian.Uint32(data)); got != 1<<18 {
		t.Errorf("expected %d, got %d", 1<<18, got)
	}
	if got := int32(binary.LittleEndian.Uint32(data[4:])); got != -(1 << 18) {
		t.Errorf("expected %d, got %d", -(1 << 18), got)
	}
}

func TestScaleVolumeU8(t *testing.T) {
	data := []byte{10, 100, 200}
	ScaleVolume(data, SampleFormatU8, 2.0)

	expected := []byte{20, 200, byte(400 - 256)}
	if !bytes.Equal(data, expected) {
		t.Errorf("expected %v, got %v", expected, data)
	}
}

func TestScaleVolumeFloat(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(-0.25))

	ScaleVolume(data, SampleFormatFloat, 0.5)

	if got := math.Float32frombits(binary.LittleEndian.Uint32(data)); got != 0.25 {
		t.Errorf("expected 0.25, got %v", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[4:])); got != -0.125 {
		t.Errorf("expected -0.125, got %v", got)
	}
}

func TestScaleVolumeDouble(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, math.Float64bits(0.8))

	ScaleVolume(data, SampleFormatDoublePlanar, 0.5)

	if got := math.Float64frombits(binary.LittleEndian.Uint64(data)); got != 0.4 {
		t.Errorf("expected 0.4, got %v", got)
	}
}

func TestScaleVolumeZeroGain(t *testing.T) {
	data := []byte{0x10, 0x20, 0x30, 0x40}
	ScaleVolume(data, SampleFormatS16, 0)

	if !bytes.Equal(data, []byte{0, 0, 0, 0}) {
		t.Errorf("expected silence, got %v", data)
	}
}

// ABOUTME: Audio output tests
// ABOUTME: Verifies oto device state handling without opening a device
package output

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
}

func TestNewOtoDefaults(t *testing.T) {
	out := NewOto()
	if out.IsAvailable() {
		t.Error("expected closed device to be unavailable")
	}
	if out.Volume() != 1 || out.Speed() != 1 || out.IsMuted() {
		t.Errorf("unexpected defaults: volume=%v speed=%v muted=%v", out.Volume(), out.Speed(), out.IsMuted())
	}
}

func TestOtoWriteBeforeOpen(t *testing.T) {
	out := NewOto()
	if err := out.WriteData([]byte{0, 0}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
}

func TestOtoVolumeClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{-1, 0},
		{5, 2},
	}

	out := NewOto()
	for _, tt := range tests {
		out.SetVolume(tt.in)
		if got := out.Volume(); got != tt.want {
			t.Errorf("SetVolume(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestOtoSpeedIgnoresInvalid(t *testing.T) {
	out := NewOto()
	out.SetSpeed(1.5)
	out.SetSpeed(0)
	out.SetSpeed(-2)
	if got := out.Speed(); got != 1.5 {
		t.Errorf("expected 1.5, got %v", got)
	}
}

func TestOtoFormatSupport(t *testing.T) {
	tests := []struct {
		format audio.SampleFormat
		ok     bool
	}{
		{audio.SampleFormatU8, true},
		{audio.SampleFormatS16, true},
		{audio.SampleFormatFloat, true},
		{audio.SampleFormatS32, false},
		{audio.SampleFormatS16Planar, false},
	}

	for _, tt := range tests {
		_, err := otoFormat(tt.format)
		if (err == nil) != tt.ok {
			t.Errorf("%s: expected supported=%v, got err=%v", tt.format, tt.ok, err)
		}
	}
}

func TestOtoOpenRejectsUnsupportedFormat(t *testing.T) {
	out := NewOto()
	err := out.Open(audio.Format{SampleRate: 48000, Channels: 2, SampleFormat: audio.SampleFormatDouble})
	if err == nil {
		t.Fatal("expected error for f64 output")
	}
	if out.IsAvailable() {
		t.Error("expected device to stay unavailable")
	}
}

// ABOUTME: Tests for Opus decoder
// ABOUTME: Tests Opus decoder creation, validation and round trip with the encoder
package decode

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

func TestNewOpus(t *testing.T) {
	format := audio.Format{
		Codec:      "opus",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewOpus(format)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if decoder == nil {
		t.Fatal("expected decoder to be created")
	}
	if got := decoder.Resampler().InFormat().SampleFormat; got != audio.SampleFormatS16 {
		t.Errorf("expected s16 output, got %s", got)
	}
}

func TestNewOpus_InvalidCodec(t *testing.T) {
	format := audio.Format{
		Codec:      "pcm",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}

	decoder, err := NewOpus(format)
	if err == nil {
		t.Fatal("expected error for invalid codec, got nil")
	}

	if decoder != nil {
		t.Fatal("expected decoder to be nil for invalid codec")
	}

	expectedError := "invalid codec for Opus decoder: pcm"
	if err.Error() != expectedError {
		t.Errorf("expected error %q, got %q", expectedError, err.Error())
	}
}

func TestOpusDecodeFrame(t *testing.T) {
	format := audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2}

	enc, err := opus.NewEncoder(48000, 2, opus.AppAudio)
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}
	pcm := make([]int16, 960*2) // 20ms of silence
	packet := make([]byte, 4000)
	n, err := enc.Encode(pcm, packet)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoder, err := NewOpus(format)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	if err := decoder.Decode(packet[:n]); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// 960 frames * 2 channels * 2 bytes
	if got := len(decoder.Data()); got != 3840 {
		t.Errorf("expected 3840 bytes, got %d", got)
	}
	if decoder.UndecodedSize() != 0 {
		t.Errorf("expected whole packet consumed, got %d", decoder.UndecodedSize())
	}

	decoder.Flush()
	if len(decoder.Data()) != 0 {
		t.Error("expected flush to clear output")
	}
}

func TestOpusFlushKeepsDecoderWhenResetFails(t *testing.T) {
	prev, err := opus.NewDecoder(48000, 2)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	// 44.1kHz is not an Opus rate, so the reset cannot build a new decoder
	d := &OpusDecoder{
		decoder:   prev,
		format:    audio.Format{Codec: "opus", SampleRate: 44100, Channels: 2},
		out:       []byte{1, 2, 3, 4},
		available: true,
	}
	d.Flush()

	if d.decoder != prev {
		t.Error("expected previous decoder to be kept")
	}
	if len(d.Data()) != 0 {
		t.Errorf("expected output dropped, got %d bytes", len(d.Data()))
	}
	if !strings.Contains(logs.String(), "reset failed") {
		t.Errorf("expected reset failure to be logged, got %q", logs.String())
	}
}

// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams raw sample bytes to a persistent oto player through a pipe
package output

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library
type Oto struct {
	mu         sync.RWMutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	volume     float64
	speed      float64
	muted      bool
	ready      bool
}

// NewOto creates a new Oto output at unity volume and speed
func NewOto() *Oto {
	return &Oto{
		volume: 1,
		speed:  1,
	}
}

// otoFormat maps a packed sample format to the oto equivalent
func otoFormat(f audio.SampleFormat) (oto.Format, error) {
	switch f {
	case audio.SampleFormatU8:
		return oto.FormatUnsignedInt8, nil
	case audio.SampleFormatS16:
		return oto.FormatSignedInt16LE, nil
	case audio.SampleFormatFloat:
		return oto.FormatFloat32LE, nil
	}
	return 0, fmt.Errorf("oto does not support sample format %s (supported: u8, s16, f32)", f)
}

// Open initializes the output device
func (o *Oto) Open(format audio.Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	of, err := otoFormat(format.SampleFormat)
	if err != nil {
		return err
	}

	// oto allows one context per process
	if o.otoCtx != nil {
		if !o.format.Matches(format) {
			log.Printf("Warning: output already open as %s, cannot switch to %s", o.format, format)
		}
		if !o.ready {
			if err := o.otoCtx.Resume(); err != nil {
				return fmt.Errorf("failed to resume oto context: %w", err)
			}
			o.startPlayer()
		}
		return nil
	}

	ctx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       of,
	})
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.format = format
	o.startPlayer()

	log.Printf("Audio output initialized: %s", format)
	return nil
}

// startPlayer attaches a fresh pipe-fed player. Callers hold mu.
func (o *Oto) startPlayer() {
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.ready = true
}

func (o *Oto) IsAvailable() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ready
}

func (o *Oto) Format() audio.Format {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.format
}

// WriteData outputs one chunk (blocks until the player has taken it)
func (o *Oto) WriteData(data []byte) error {
	o.mu.RLock()
	w := o.pipeWriter
	ready := o.ready
	o.mu.RUnlock()

	if !ready || w == nil {
		return ErrNotOpen
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		o.otoCtx.Suspend()
	}
	o.ready = false
	return nil
}

// SetVolume sets the linear gain, clamped to [0, 2]
func (o *Oto) SetVolume(volume float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = clampVolume(volume)
	log.Printf("Volume set to %.2f", o.volume)
}

func (o *Oto) Volume() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.volume
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = muted
	log.Printf("Muted: %v", muted)
}

func (o *Oto) IsMuted() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.muted
}

// SetSpeed sets the playback speed, ignoring non-positive values
func (o *Oto) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.speed = speed
}

func (o *Oto) Speed() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.speed
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 2 {
		return 2
	}
	return v
}

var _ Output = (*Oto)(nil)

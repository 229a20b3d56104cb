// ABOUTME: Demuxer turning a PCM source into timestamped packets
// ABOUTME: Encodes fixed-duration packets, handles seeks and end of stream
package demux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio/encode"
)

// Sink is the packet queue the demuxer fills
type Sink interface {
	Put(ctx context.Context, p audio.Packet) error
	SetEnd()
	Clear()
}

// Config controls packetization
type Config struct {
	// Codec is "pcm" or "opus"
	Codec string
	// BitDepth for PCM payloads, 16 or 24
	BitDepth int
	// PacketDuration in seconds. Opus always uses 20ms.
	PacketDuration float64
}

// Demuxer reads a source and pushes packets into a sink
type Demuxer struct {
	source  Source
	encoder encode.Encoder
	sink    Sink
	frames  int // frames per packet

	mu       sync.Mutex
	position int64  // next frame to read
	seekTo   *int64 // pending seek target
}

// New creates a demuxer. The encoder is chosen from cfg.
func New(source Source, sink Sink, cfg Config) (*Demuxer, error) {
	bits := cfg.BitDepth
	if bits == 0 {
		bits = 16
	}
	enc, err := encode.New(audio.Format{
		Codec:      cfg.Codec,
		SampleRate: source.SampleRate(),
		Channels:   source.Channels(),
		BitDepth:   bits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	frames := enc.FrameSize()
	if frames == 0 {
		frames = int(cfg.PacketDuration * float64(source.SampleRate()))
	}
	if frames <= 0 {
		enc.Close()
		return nil, fmt.Errorf("packet duration %.3fs is too short", cfg.PacketDuration)
	}

	return &Demuxer{
		source:  source,
		encoder: enc,
		sink:    sink,
		frames:  frames,
	}, nil
}

// Format describes the packets, for building the decoder
func (d *Demuxer) Format() audio.Format {
	return d.encoder.Format()
}

// Seek asks Run to continue from t seconds. Queued packets are discarded
// and a flush packet is queued before the first packet after the seek.
func (d *Demuxer) Seek(t float64) error {
	if _, ok := d.source.(Seeker); !ok {
		return ErrNotSeekable
	}
	frame := int64(t * float64(d.source.SampleRate()))
	if frame < 0 {
		frame = 0
	}
	d.mu.Lock()
	d.seekTo = &frame
	d.mu.Unlock()
	return nil
}

// Position returns the timestamp of the next packet in seconds
func (d *Demuxer) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.position) / float64(d.source.SampleRate())
}

// Run reads the source until it ends or ctx is done. The sink is marked
// ended when the source is exhausted.
func (d *Demuxer) Run(ctx context.Context) error {
	defer d.encoder.Close()

	channels := d.source.Channels()
	rate := float64(d.source.SampleRate())
	samples := make([]int32, d.frames*channels)
	fixed := d.encoder.FrameSize() > 0

	title, artist, _ := d.source.Metadata()
	log.Printf("Demuxer: %s - %s, %s, %d frames per packet", artist, title, d.encoder.Format(), d.frames)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := d.applySeek(ctx); err != nil {
			return err
		}

		n, err := readFull(d.source, samples)
		if n == 0 {
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("source read: %w", err)
			}
			log.Printf("Demuxer: end of source at %.3fs", d.Position())
			d.sink.SetEnd()
			return nil
		}

		block := samples[:n]
		if fixed && n < len(samples) {
			// Pad the last frame with silence
			clear(samples[n:])
			block = samples
		}

		payload, encErr := d.encoder.Encode(block)
		if encErr != nil {
			return fmt.Errorf("encode: %w", encErr)
		}

		d.mu.Lock()
		pts := float64(d.position) / rate
		d.position += int64(n / channels)
		d.mu.Unlock()

		if err := d.sink.Put(ctx, audio.NewPacket(pts, payload)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("queue packet: %w", err)
		}
	}
}

func (d *Demuxer) applySeek(ctx context.Context) error {
	d.mu.Lock()
	target := d.seekTo
	d.seekTo = nil
	d.mu.Unlock()
	if target == nil {
		return nil
	}

	if err := d.source.(Seeker).SeekFrame(*target); err != nil {
		log.Printf("Demuxer: seek to frame %d failed: %v", *target, err)
		return nil
	}

	d.sink.Clear()
	if err := d.sink.Put(ctx, audio.FlushPacket()); err != nil && ctx.Err() == nil {
		return fmt.Errorf("queue flush: %w", err)
	}

	d.mu.Lock()
	d.position = *target
	d.mu.Unlock()
	log.Printf("Demuxer: seeked to %.3fs", d.Position())
	return nil
}

// readFull reads until samples is full or the source ends. Partial frames
// are trimmed.
func readFull(src Source, samples []int32) (int, error) {
	total := 0
	for total < len(samples) {
		n, err := src.Read(samples[total:])
		total += n
		if err != nil {
			total -= total % src.Channels()
			return total, err
		}
		if n == 0 {
			break
		}
	}
	total -= total % src.Channels()
	return total, nil
}

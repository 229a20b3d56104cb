// ABOUTME: Audio synchronization loop
// ABOUTME: Pulls packets, keeps them in step with the clock and paces delivery
package player

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/avsync-go/internal/metrics"
	"github.com/Resonate-Protocol/avsync-go/internal/queue"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio/output"
	"github.com/Resonate-Protocol/avsync-go/pkg/clock"
	"github.com/google/uuid"
)

// State is the observable control state of a loop
type State int32

const (
	StateStopped State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	}
	return "stopped"
}

// PacketSource is the queue the demuxer fills
type PacketSource interface {
	// Take blocks until a packet is available
	Take(ctx context.Context) (audio.Packet, error)
	IsEmpty() bool
	Ended() bool
}

// Clock is the presentation clock shared with the rest of the player
type Clock interface {
	Type() clock.Type
	Value() float64
	UpdateValue(float64)
	UpdateDelay(float64)
}

// Sleeper waits for d or until ctx ends
type Sleeper func(ctx context.Context, d time.Duration)

// sleepContext is the default Sleeper
func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Config holds the loop's timing constants
type Config struct {
	// SyncThreshold is the delay below which the external clock is considered reached
	SyncThreshold float64
	// PlausibleBound is the largest delay trusted as real
	PlausibleBound float64
	// ImplausibleWait is slept before retrying a packet far in the future
	ImplausibleWait time.Duration
	// MaxChunkDuration bounds each delivered chunk, in seconds
	MaxChunkDuration float64
	// MaxDecodeGap bounds the sleep after a decode failure, in seconds
	MaxDecodeGap float64
}

// DefaultConfig returns the standard timing constants
func DefaultConfig() Config {
	return Config{
		SyncThreshold:    0.005,
		PlausibleBound:   2.718,
		ImplausibleWait:  64 * time.Millisecond,
		MaxChunkDuration: 0.02,
		MaxDecodeGap:     0.618,
	}
}

// Option customizes a Loop
type Option func(*Loop)

// WithSleeper replaces the timer-based sleep, used by tests
func WithSleeper(s Sleeper) Option {
	return func(l *Loop) { l.sleeper = s }
}

// WithMetrics records loop activity on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithStreamID sets the id used in log lines
func WithStreamID(id string) Option {
	return func(l *Loop) { l.streamID = id }
}

// Loop drives one audio stream: dequeue, sync to the clock, decode, chunk,
// scale and deliver. One goroutine runs it through Run.
type Loop struct {
	cfg      Config
	source   PacketSource
	decoder  decode.Decoder
	output   output.Output
	clock    Clock
	metrics  *metrics.Metrics
	sleeper  Sleeper
	streamID string

	mu      sync.Mutex
	resume  chan struct{} // non-nil while paused
	stopped chan struct{}
	stop    sync.Once

	running atomic.Bool
	stats   counters
}

// New creates a loop. out may be nil, in which case delivery is paced by
// sleeping.
func New(cfg Config, source PacketSource, dec decode.Decoder, out output.Output, clk Clock, opts ...Option) *Loop {
	l := &Loop{
		cfg:     cfg,
		source:  source,
		decoder: dec,
		output:  out,
		clock:   clk,
		sleeper: sleepContext,
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.streamID == "" {
		l.streamID = uuid.NewString()[:8]
	}
	return l
}

// Run processes packets until the stream ends, Stop is called or ctx ends.
// It returns nil in every case: problems are logged, never surfaced.
func (l *Loop) Run(ctx context.Context) error {
	if l.decoder == nil || !l.decoder.IsAvailable() {
		log.Printf("Stream %s: no usable decoder, nothing to play", l.streamID)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	l.running.Store(true)
	defer l.running.Store(false)

	s := newStreamState(l.streamID, l.clock.Value())
	log.Printf("Stream %s: started, clock=%s", s.id, l.clock.Type())

	var pkt audio.Packet
	pending := false

	for {
		if ctx.Err() != nil {
			log.Printf("Stream %s: stopped", s.id)
			return nil
		}
		if !l.waitWhilePaused(ctx) {
			continue
		}

		if !pending {
			if l.source.IsEmpty() && l.source.Ended() {
				log.Printf("Stream %s: end of stream, %d packets played", s.id, l.stats.packets.Load())
				return nil
			}

			p, err := l.source.Take(ctx)
			if err != nil {
				switch {
				case errors.Is(err, queue.ErrEndOfStream):
					log.Printf("Stream %s: end of stream, %d packets played", s.id, l.stats.packets.Load())
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					log.Printf("Stream %s: stopped", s.id)
				default:
					log.Printf("Stream %s: packet source failed: %v", s.id, err)
				}
				return nil
			}

			pkt = p
			l.stats.packets.Add(1)
			l.metrics.RecordPacket(l.queueDepth())
		}

		if !pkt.IsValid() {
			l.decoder.Flush()
			l.stats.flushes.Add(1)
			l.metrics.RecordFlush()
			pending = false
			continue
		}

		if retry := l.synchronize(ctx, s, &pkt); retry {
			pending = true
			continue
		}

		pending = l.process(ctx, s, &pkt)

		s.lastPTS = l.clock.Value()
		l.metrics.SetClock(s.lastPTS)
	}
}

// waitWhilePaused blocks while paused. It returns false when ctx ended.
func (l *Loop) waitWhilePaused(ctx context.Context) bool {
	l.mu.Lock()
	resume := l.resume
	l.mu.Unlock()

	if resume == nil {
		return true
	}
	select {
	case <-resume:
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *Loop) queueDepth() int {
	if q, ok := l.source.(interface{ Len() int }); ok {
		return q.Len()
	}
	return 0
}

// sleep waits d through the sleeper, skipping non-positive durations
func (l *Loop) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	l.sleeper(ctx, d)
}

// Pause stops the loop before its next dequeue. The cycle in flight completes.
func (l *Loop) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resume == nil {
		l.resume = make(chan struct{})
		log.Printf("Stream %s: paused", l.streamID)
	}
}

// Resume lets a paused loop continue
func (l *Loop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resume != nil {
		close(l.resume)
		l.resume = nil
		log.Printf("Stream %s: resumed", l.streamID)
	}
}

// Stop ends Run, including a Run blocked on an empty queue. A stopped loop
// cannot be restarted.
func (l *Loop) Stop() {
	l.stop.Do(func() { close(l.stopped) })
}

// State reports whether the loop is running, paused or stopped
func (l *Loop) State() State {
	if !l.running.Load() {
		return StateStopped
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resume != nil {
		return StatePaused
	}
	return StateRunning
}

// StreamID returns the id used in log lines
func (l *Loop) StreamID() string {
	return l.streamID
}

// ABOUTME: Shared presentation clock for audio/video synchronization
// ABOUTME: Internal mode is driven by audio timestamps, External mode follows a reference
package clock

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Type selects who owns the clock
type Type int

const (
	// Internal clocks are driven by the audio loop pushing timestamps
	Internal Type = iota
	// External clocks follow a reference the audio loop must chase
	External
)

func (t Type) String() string {
	switch t {
	case Internal:
		return "internal"
	case External:
		return "external"
	}
	return "unknown"
}

// ParseType converts a config string to a clock type
func ParseType(s string) (Type, bool) {
	switch s {
	case "internal", "audio":
		return Internal, true
	case "external":
		return External, true
	}
	return Internal, false
}

// reference is an immutable snapshot of the external time base.
// Value = fn() + offset unless paused, in which case Value = frozen.
type reference struct {
	fn     func() float64
	offset float64
	frozen float64
	paused bool
}

func (r *reference) value() float64 {
	if r.paused {
		return r.frozen
	}
	return r.fn() + r.offset
}

// Clock is the presentation clock shared by the playback pipeline.
//
// Writes are serialized by a mutex. Reads never block: every observable
// field is an atomic or an atomically swapped snapshot.
type Clock struct {
	mu sync.Mutex

	typ    atomic.Int32
	value  atomic.Uint64 // float64 bits, last pushed timestamp
	delay  atomic.Uint64 // float64 bits, duration delivered since value
	paused atomic.Bool
	ref    atomic.Pointer[reference]

	now func() time.Time
}

// New creates a clock of the given type. The external time base starts as a
// wall-clock timer at zero.
func New(t Type) *Clock {
	c := &Clock{now: time.Now}
	c.typ.Store(int32(t))
	c.ref.Store(c.wallReference(0))
	return c
}

func (c *Clock) wallReference(at float64) *reference {
	start := c.now()
	now := c.now
	return &reference{
		fn:     func() float64 { return now().Sub(start).Seconds() },
		offset: at,
	}
}

// Type returns the current clock mode
func (c *Clock) Type() Type {
	return Type(c.typ.Load())
}

// SetType switches the clock mode
func (c *Clock) SetType(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typ.Store(int32(t))
}

// Value returns the current presentation time in seconds.
//
// Internal: last pushed timestamp plus the duration delivered since.
// External: the reference time.
func (c *Clock) Value() float64 {
	if c.Type() == External {
		return c.ref.Load().value()
	}
	return loadFloat(&c.value) + loadFloat(&c.delay)
}

// UpdateValue pushes a new timestamp and clears the delivered duration
func (c *Clock) UpdateValue(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	storeFloat(&c.value, v)
	storeFloat(&c.delay, 0)
}

// UpdateDelay records how much audio has been delivered since the last timestamp
func (c *Clock) UpdateDelay(d float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	storeFloat(&c.delay, d)
}

// Delay returns the duration delivered since the last timestamp
func (c *Clock) Delay() float64 {
	return loadFloat(&c.delay)
}

// SetReference makes the external mode follow fn, in seconds.
// A nil fn restores the wall-clock timer, continuing from the current value.
func (c *Clock) SetReference(fn func() float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.ref.Load()
	if fn == nil {
		next := c.wallReference(cur.value())
		if cur.paused {
			next.paused = true
			next.frozen = cur.frozen
		}
		c.ref.Store(next)
		return
	}

	next := &reference{fn: fn}
	if cur.paused {
		next.paused = true
		next.frozen = fn()
	}
	c.ref.Store(next)
}

// Pause freezes or resumes the external time base. Internal mode only
// records the flag since its value advances with delivered audio.
func (c *Clock) Pause(p bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused.Load() == p {
		return
	}
	c.paused.Store(p)

	cur := c.ref.Load()
	next := *cur
	if p {
		next.frozen = cur.value()
		next.paused = true
	} else {
		next.offset = cur.frozen - cur.fn()
		next.paused = false
	}
	c.ref.Store(&next)
}

// IsPaused reports whether the clock is paused
func (c *Clock) IsPaused() bool {
	return c.paused.Load()
}

// Seek rebases both modes to t seconds
func (c *Clock) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	storeFloat(&c.value, t)
	storeFloat(&c.delay, 0)

	cur := c.ref.Load()
	next := *cur
	if cur.paused {
		next.frozen = t
	} else {
		next.offset = t - cur.fn()
	}
	c.ref.Store(&next)
}

// Reset returns the clock to zero, unpaused, on a fresh wall-clock timer
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	storeFloat(&c.value, 0)
	storeFloat(&c.delay, 0)
	c.paused.Store(false)
	c.ref.Store(c.wallReference(0))
}

func loadFloat(v *atomic.Uint64) float64 {
	return math.Float64frombits(v.Load())
}

func storeFloat(v *atomic.Uint64, f float64) {
	v.Store(math.Float64bits(f))
}

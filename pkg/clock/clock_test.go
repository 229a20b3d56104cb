// ABOUTME: Tests for the presentation clock
// ABOUTME: Covers internal updates, external references, pause and seek
package clock

import (
	"math"
	"sync"
	"testing"
	"time"
)

type fakeTime struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeTime) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeTime) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestClock(typ Type, ft *fakeTime) *Clock {
	c := &Clock{now: ft.now}
	c.typ.Store(int32(typ))
	c.ref.Store(c.wallReference(0))
	return c
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestInternalUpdateValueResetsDelay(t *testing.T) {
	c := New(Internal)

	c.UpdateValue(10)
	c.UpdateDelay(0.04)
	if got := c.Value(); !almostEqual(got, 10.04) {
		t.Errorf("expected 10.04, got %v", got)
	}

	c.UpdateValue(11)
	if got := c.Delay(); got != 0 {
		t.Errorf("expected delay reset to 0, got %v", got)
	}
	if got := c.Value(); got != 11 {
		t.Errorf("expected 11, got %v", got)
	}
}

func TestExternalFollowsWallTimer(t *testing.T) {
	ft := &fakeTime{t: time.Unix(1000, 0)}
	c := newTestClock(External, ft)

	ft.advance(1500 * time.Millisecond)
	if got := c.Value(); !almostEqual(got, 1.5) {
		t.Errorf("expected 1.5, got %v", got)
	}

	// Pushed timestamps do not move an external clock
	c.UpdateValue(42)
	if got := c.Value(); !almostEqual(got, 1.5) {
		t.Errorf("expected 1.5, got %v", got)
	}
}

func TestExternalPauseFreezes(t *testing.T) {
	ft := &fakeTime{t: time.Unix(1000, 0)}
	c := newTestClock(External, ft)

	ft.advance(time.Second)
	c.Pause(true)
	ft.advance(5 * time.Second)
	if got := c.Value(); !almostEqual(got, 1) {
		t.Errorf("expected frozen at 1, got %v", got)
	}

	c.Pause(false)
	ft.advance(250 * time.Millisecond)
	if got := c.Value(); !almostEqual(got, 1.25) {
		t.Errorf("expected 1.25 after resume, got %v", got)
	}
}

func TestSeekRebasesBothModes(t *testing.T) {
	ft := &fakeTime{t: time.Unix(1000, 0)}
	c := newTestClock(External, ft)

	ft.advance(3 * time.Second)
	c.Seek(60)
	if got := c.Value(); !almostEqual(got, 60) {
		t.Errorf("expected 60, got %v", got)
	}
	ft.advance(time.Second)
	if got := c.Value(); !almostEqual(got, 61) {
		t.Errorf("expected 61, got %v", got)
	}

	c.SetType(Internal)
	if got := c.Value(); got != 60 {
		t.Errorf("expected internal value 60, got %v", got)
	}
}

func TestSeekWhilePaused(t *testing.T) {
	ft := &fakeTime{t: time.Unix(1000, 0)}
	c := newTestClock(External, ft)

	c.Pause(true)
	c.Seek(5)
	ft.advance(time.Second)
	if got := c.Value(); !almostEqual(got, 5) {
		t.Errorf("expected 5 while paused, got %v", got)
	}
	c.Pause(false)
	ft.advance(time.Second)
	if got := c.Value(); !almostEqual(got, 6) {
		t.Errorf("expected 6 after resume, got %v", got)
	}
}

func TestSetReference(t *testing.T) {
	c := New(External)
	ref := 100.0
	c.SetReference(func() float64 { return ref })

	if got := c.Value(); got != 100 {
		t.Errorf("expected 100, got %v", got)
	}
	ref = 100.5
	if got := c.Value(); got != 100.5 {
		t.Errorf("expected 100.5, got %v", got)
	}

	c.SetReference(nil)
	if got := c.Value(); math.Abs(got-100.5) > 0.1 {
		t.Errorf("expected wall timer to continue near 100.5, got %v", got)
	}
}

func TestReset(t *testing.T) {
	c := New(Internal)
	c.UpdateValue(3)
	c.UpdateDelay(1)
	c.Pause(true)

	c.Reset()

	if c.Value() != 0 || c.Delay() != 0 || c.IsPaused() {
		t.Errorf("expected zeroed clock, got value=%v delay=%v paused=%v", c.Value(), c.Delay(), c.IsPaused())
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
		ok   bool
	}{
		{"internal", Internal, true},
		{"audio", Internal, true},
		{"external", External, true},
		{"video", Internal, false},
	}
	for _, tt := range tests {
		got, ok := ParseType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseType(%q) = %v, %v; expected %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	c := New(Internal)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.UpdateValue(float64(i))
			c.UpdateDelay(0.02)
		}
	}()

	for i := 0; i < 1000; i++ {
		if v := c.Value(); v < 0 || v > 1000 {
			t.Fatalf("out of range read: %v", v)
		}
	}
	wg.Wait()
}

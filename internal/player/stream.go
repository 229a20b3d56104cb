// ABOUTME: Per-stream state owned by the audio loop
// ABOUTME: Deferred resampler reconfiguration, warn-once flags and log limiting
package player

import "sync/atomic"

// streamState lives for one Run
type streamState struct {
	id      string
	lastPTS float64

	reconfig       reconfiguration
	warnedNoOutput bool

	implausibleLog logLimiter
	decodeLog      logLimiter
	writeLog       logLimiter
}

func newStreamState(id string, now float64) *streamState {
	return &streamState{id: id, lastPTS: now}
}

// reconfiguration applies a device/resampler mismatch one cycle after it
// is first seen, and only if it is still there. A device that flips back
// within a cycle never forces a resampler rebuild.
type reconfiguration struct {
	pending bool
}

// observe records this cycle's comparison and reports whether to apply now
func (r *reconfiguration) observe(mismatch bool) bool {
	if !mismatch {
		r.pending = false
		return false
	}
	if r.pending {
		r.pending = false
		return true
	}
	r.pending = true
	return false
}

// logLimiter lets the first few occurrences through, then every Nth
type logLimiter struct {
	n atomic.Int64
}

const (
	logBurst = 5
	logEvery = 100
)

func (l *logLimiter) allow() bool {
	n := l.n.Add(1)
	return n <= logBurst || n%logEvery == 0
}

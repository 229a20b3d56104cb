// ABOUTME: Per-packet clock synchronization for the audio loop
// ABOUTME: Internal clocks follow the packets, external clocks are waited for
package player

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/clock"
)

// synchronize runs once per cycle before decoding. It returns true when the
// packet must be retried without being decoded.
func (l *Loop) synchronize(ctx context.Context, s *streamState, pkt *audio.Packet) bool {
	switch l.clock.Type() {
	case clock.External:
		return l.followExternal(ctx, s, pkt)
	default:
		l.driveInternal(pkt)
		return false
	}
}

// driveInternal makes the packet timestamp the current time
func (l *Loop) driveInternal(pkt *audio.Packet) {
	l.clock.UpdateValue(pkt.PTS)
}

// followExternal sleeps until the external clock reaches the packet
func (l *Loop) followExternal(ctx context.Context, s *streamState, pkt *audio.Packet) bool {
	delay := pkt.PTS - l.clock.Value()
	wait, retry := externalDelayPlan(delay, l.cfg)

	if math.Abs(delay) > l.cfg.PlausibleBound {
		l.stats.implausible.Add(1)
		l.metrics.RecordImplausibleDelay()
		if s.implausibleLog.allow() {
			log.Printf("Stream %s: implausible delay %.3fs (pts=%.3f clock=%.3f), retry=%v",
				s.id, delay, pkt.PTS, pkt.PTS-delay, retry)
		}
	} else if wait > 0 {
		l.stats.syncSleeps.Add(1)
		l.metrics.RecordSyncSleep(delay)
	}

	l.sleep(ctx, wait)
	return retry
}

// externalDelayPlan decides how to react to the gap between a packet and the
// external clock. delay > 0 means the packet is early.
//
//   - small gaps proceed at once
//   - plausible early packets sleep the gap then proceed
//   - late packets proceed (no frame is dropped)
//   - implausibly early packets sleep a fixed wait and are retried
//   - implausibly late packets skip synchronization and proceed
func externalDelayPlan(delay float64, cfg Config) (wait time.Duration, retry bool) {
	if math.Abs(delay) > cfg.PlausibleBound {
		if delay > 0 {
			return cfg.ImplausibleWait, true
		}
		return 0, false
	}
	if delay > cfg.SyncThreshold {
		return seconds(delay), false
	}
	// TODO: a late packet (delay < -SyncThreshold) could be dropped to catch
	// up. It is played as is for now.
	return 0, false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

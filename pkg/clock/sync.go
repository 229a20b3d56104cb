// ABOUTME: Network time synchronization with drift compensation
// ABOUTME: Estimates server offset and clock drift from four-timestamp exchanges
package clock

import (
	"log"
	"sync"
	"time"
)

// Quality represents how trustworthy the current server time estimate is
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	}
	return "lost"
}

const (
	maxSyncRTT      = 100000 // μs, samples above this are discarded
	degradedSyncRTT = 50000  // μs
	maxResidual     = 50000  // μs, larger jumps are treated as outliers
	syncTimeout     = 5 * time.Second
)

// SyncStats is a snapshot of the synchronizer state
type SyncStats struct {
	Offset  int64 // server - local, μs
	Drift   float64
	RTT     int64 // μs
	Samples int
	Quality Quality
}

// Sync estimates server time from request/response timestamp exchanges.
//
// Offset and drift are tracked with a fixed-gain predictor: each new
// measurement is compared to the offset predicted from the previous drift
// and both are nudged by the residual.
type Sync struct {
	mu         sync.RWMutex
	offset     int64   // μs
	drift      float64 // μs of offset change per local μs
	rtt        int64
	quality    Quality
	lastSample time.Time
	lastLocal  int64 // local μs at the last accepted sample
	samples    int
	gain       float64

	now func() time.Time
}

// NewSync creates a synchronizer with no samples
func NewSync() *Sync {
	return &Sync{
		gain:    0.1,
		quality: QualityLost,
		now:     time.Now,
	}
}

// LocalMicros returns the local Unix time in microseconds
func (s *Sync) LocalMicros() int64 {
	return s.now().UnixMicro()
}

// ProcessSyncResponse feeds one exchange: t1 local send, t2 server receive,
// t3 server send, t4 local receive, all in microseconds.
func (s *Sync) ProcessSyncResponse(t1, t2, t3, t4 int64) {
	rtt, measured := exchangeOffset(t1, t2, t3, t4)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rtt = rtt
	s.lastSample = s.now()

	if rtt > maxSyncRTT {
		log.Printf("Clock sync: dropping sample with rtt=%dμs", rtt)
		return
	}

	switch s.samples {
	case 0:
		s.offset = measured
	case 1:
		if dt := float64(t4 - s.lastLocal); dt > 0 {
			s.drift = float64(measured-s.offset) / dt
		}
		s.offset = measured
	default:
		dt := float64(t4 - s.lastLocal)
		if dt <= 0 {
			log.Printf("Clock sync: dropping non-monotonic sample")
			return
		}
		predicted := s.offset + int64(s.drift*dt)
		residual := measured - predicted
		if residual > maxResidual || residual < -maxResidual {
			log.Printf("Clock sync: dropping outlier, residual=%dμs", residual)
			return
		}
		s.offset = predicted + int64(s.gain*float64(residual))
		s.drift += s.gain * float64(residual) / dt
	}

	s.lastLocal = t4
	s.samples++

	if rtt < degradedSyncRTT {
		s.quality = QualityGood
	} else {
		s.quality = QualityDegraded
	}

	if s.samples <= 3 {
		log.Printf("Clock sync #%d: offset=%dμs drift=%.9f rtt=%dμs", s.samples, s.offset, s.drift, rtt)
	}
}

// exchangeOffset computes round-trip time and offset (positive = server ahead)
func exchangeOffset(t1, t2, t3, t4 int64) (rtt, offset int64) {
	rtt = (t4 - t1) - (t3 - t2)
	offset = ((t2 - t1) + (t3 - t4)) / 2
	return
}

// Stats returns a snapshot of the sync state
func (s *Sync) Stats() SyncStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SyncStats{
		Offset:  s.offset,
		Drift:   s.drift,
		RTT:     s.rtt,
		Samples: s.samples,
		Quality: s.quality,
	}
}

// CheckQuality marks the sync lost when no sample arrived recently
func (s *Sync) CheckQuality() Quality {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.now().Sub(s.lastSample) > syncTimeout {
		s.quality = QualityLost
	}
	return s.quality
}

// ServerMicros returns the current server time in microseconds.
// Before the first sample it is the local time.
func (s *Sync) ServerMicros() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localToServer(s.now().UnixMicro())
}

// ServerSeconds returns the current server time in seconds, usable as an
// external clock reference
func (s *Sync) ServerSeconds() float64 {
	return float64(s.ServerMicros()) / 1e6
}

func (s *Sync) localToServer(local int64) int64 {
	if s.samples == 0 {
		return local
	}
	return local + s.offset + int64(s.drift*float64(local-s.lastLocal))
}

// ServerToLocalTime converts a server timestamp (μs) to local wall time
func (s *Sync) ServerToLocalTime(server int64) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.samples == 0 {
		return time.UnixMicro(server)
	}

	// server = local*(1+drift) + offset - drift*lastLocal
	local := (float64(server) - float64(s.offset) + s.drift*float64(s.lastLocal)) / (1 + s.drift)
	return time.UnixMicro(int64(local))
}

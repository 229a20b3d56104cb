// ABOUTME: Tests for network time synchronization
// ABOUTME: Tests RTT calculation, drift estimation, quality and time conversion
package clock

import (
	"testing"
	"time"
)

func TestExchangeOffset(t *testing.T) {
	tests := []struct {
		name           string
		t1, t2, t3, t4 int64
		rtt, offset    int64
	}{
		{"symmetric", 1000, 1500, 1600, 1100, 0, 500},
		{"server behind", 1000000, 2000, 2500, 1005000, 4500, -1000250},
		{"zero", 0, 0, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rtt, offset := exchangeOffset(tt.t1, tt.t2, tt.t3, tt.t4)
			if rtt != tt.rtt {
				t.Errorf("expected rtt %d, got %d", tt.rtt, rtt)
			}
			if offset != tt.offset {
				t.Errorf("expected offset %d, got %d", tt.offset, offset)
			}
		})
	}
}

func TestFirstSampleSetsOffset(t *testing.T) {
	s := NewSync()
	if s.Stats().Quality != QualityLost {
		t.Error("expected QualityLost before any sample")
	}

	s.ProcessSyncResponse(1000, 6000, 6100, 1200)

	stats := s.Stats()
	if stats.Samples != 1 {
		t.Errorf("expected 1 sample, got %d", stats.Samples)
	}
	if stats.Offset != 4950 {
		t.Errorf("expected offset 4950, got %d", stats.Offset)
	}
	if stats.Quality != QualityGood {
		t.Errorf("expected QualityGood, got %v", stats.Quality)
	}
}

func TestHighRTTDiscarded(t *testing.T) {
	s := NewSync()
	s.ProcessSyncResponse(0, 100, 100, 200000)

	stats := s.Stats()
	if stats.Samples != 0 {
		t.Errorf("expected sample to be discarded, got %d samples", stats.Samples)
	}
	if stats.RTT != 200000 {
		t.Errorf("expected rtt recorded, got %d", stats.RTT)
	}
}

func TestDriftEstimate(t *testing.T) {
	s := NewSync()

	// Server gains 100μs per second of local time
	s.ProcessSyncResponse(0, 1000, 1000, 0)
	s.ProcessSyncResponse(1000000, 1001100, 1001100, 1000000)

	stats := s.Stats()
	if stats.Offset != 1100 {
		t.Errorf("expected offset 1100, got %d", stats.Offset)
	}
	want := 100.0 / 1000000.0
	if diff := stats.Drift - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("expected drift %v, got %v", want, stats.Drift)
	}
}

func TestOutlierRejected(t *testing.T) {
	s := NewSync()
	s.ProcessSyncResponse(0, 1000, 1000, 0)
	s.ProcessSyncResponse(1000000, 1001000, 1001000, 1000000)
	s.ProcessSyncResponse(2000000, 2200000, 2200000, 2000000)

	if got := s.Stats().Samples; got != 2 {
		t.Errorf("expected outlier to be rejected, got %d samples", got)
	}
}

func TestCheckQualityTimesOut(t *testing.T) {
	ft := &fakeTime{t: time.Unix(1000, 0)}
	s := NewSync()
	s.now = ft.now

	s.ProcessSyncResponse(0, 10, 10, 0)
	if q := s.CheckQuality(); q != QualityGood {
		t.Errorf("expected QualityGood, got %v", q)
	}

	ft.advance(6 * time.Second)
	if q := s.CheckQuality(); q != QualityLost {
		t.Errorf("expected QualityLost, got %v", q)
	}
}

func TestServerTimeRoundTrip(t *testing.T) {
	ft := &fakeTime{t: time.UnixMicro(5000000)}
	s := NewSync()
	s.now = ft.now

	if got := s.ServerMicros(); got != 5000000 {
		t.Errorf("expected local time before sync, got %d", got)
	}

	local := s.LocalMicros()
	s.ProcessSyncResponse(local-1000, 9000000, 9000050, local)

	server := s.ServerMicros()
	back := s.ServerToLocalTime(server).UnixMicro()
	if diff := back - local; diff < -1 || diff > 1 {
		t.Errorf("round trip off by %dμs", diff)
	}

	if secs := s.ServerSeconds(); secs < 8.9 || secs > 9.1 {
		t.Errorf("expected server seconds near 9, got %v", secs)
	}
}

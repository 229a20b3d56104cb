// ABOUTME: Loop statistics
// ABOUTME: Lock-free counters and the snapshot returned by Stats
package player

import "sync/atomic"

// LoopStats tracks loop activity
type LoopStats struct {
	Packets          int64
	Flushes          int64
	DecodeFailures   int64
	DecodedBytes     int64
	Remainders       int64
	ChunksWritten    int64
	FallbackSleeps   int64
	SyncSleeps       int64
	Implausible      int64
	Reconfigurations int64
}

type counters struct {
	packets          atomic.Int64
	flushes          atomic.Int64
	decodeFailures   atomic.Int64
	decodedBytes     atomic.Int64
	remainders       atomic.Int64
	chunksWritten    atomic.Int64
	fallbackSleeps   atomic.Int64
	syncSleeps       atomic.Int64
	implausible      atomic.Int64
	reconfigurations atomic.Int64
}

// Stats returns a snapshot of loop statistics
func (l *Loop) Stats() LoopStats {
	c := &l.stats
	return LoopStats{
		Packets:          c.packets.Load(),
		Flushes:          c.flushes.Load(),
		DecodeFailures:   c.decodeFailures.Load(),
		DecodedBytes:     c.decodedBytes.Load(),
		Remainders:       c.remainders.Load(),
		ChunksWritten:    c.chunksWritten.Load(),
		FallbackSleeps:   c.fallbackSleeps.Load(),
		SyncSleeps:       c.syncSleeps.Load(),
		Implausible:      c.implausible.Load(),
		Reconfigurations: c.reconfigurations.Load(),
	}
}

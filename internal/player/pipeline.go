// ABOUTME: Decode, chunk and deliver stages of the audio loop
// ABOUTME: Splits decoded audio into short chunks paced by the device or by sleeping
package player

import (
	"context"
	"log"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

// process decodes the packet and delivers the result. It returns true when
// undecoded bytes remain in pkt for the next cycle. Delivery stops between
// chunks once ctx ends rather than finishing the packet.
func (l *Loop) process(ctx context.Context, s *streamState, pkt *audio.Packet) bool {
	l.reconfigure(s)

	if err := l.decoder.Decode(pkt.Data); err != nil {
		l.decodeFailed(ctx, s, pkt, err)
		return false
	}

	in := l.decoder.Resampler().InFormat()
	data := l.decoder.Data()
	rate := in.BytesPerSecond()

	chunkMax := in.BytesForDuration(l.cfg.MaxChunkDuration)
	if chunkMax <= 0 {
		chunkMax = max(in.BytesPerFrame(), 1)
	}

	var delivered float64
	for off := 0; off < len(data) && ctx.Err() == nil; {
		n := min(chunkMax, len(data)-off)
		chunk := data[off : off+n]
		off += n

		d := float64(n) / rate
		pkt.PTS += d
		delivered += d
		l.clock.UpdateDelay(delivered)

		l.deliver(ctx, s, chunk, d)
	}

	rest := l.decoder.UndecodedSize()
	l.stats.decodedBytes.Add(int64(len(data)))
	l.metrics.RecordDecode(len(data), rest > 0 && rest < len(pkt.Data))

	if rest <= 0 {
		return false
	}
	if rest >= len(pkt.Data) {
		log.Printf("Stream %s: decoder consumed nothing from %d bytes, dropping packet", s.id, len(pkt.Data))
		return false
	}
	pkt.Data = pkt.Data[len(pkt.Data)-rest:]
	l.stats.remainders.Add(1)
	return true
}

// reconfigure points the resampler at the device format and speed once a
// mismatch has survived a full cycle
func (l *Loop) reconfigure(s *streamState) {
	out := l.output
	if out == nil || !out.IsAvailable() {
		s.reconfig.observe(false)
		return
	}

	rs := l.decoder.Resampler()
	target := out.Format()
	speed := out.Speed()
	mismatch := rs.Speed() != speed || !rs.OutFormat().Matches(target)
	if !s.reconfig.observe(mismatch) {
		return
	}

	rs.SetOutFormat(target)
	rs.SetSpeed(speed)
	if err := rs.Prepare(); err != nil {
		log.Printf("Stream %s: resampler reconfiguration to %s at %.2fx failed: %v", s.id, target, speed, err)
		return
	}
	l.stats.reconfigurations.Add(1)
	l.metrics.RecordReconfiguration()
	log.Printf("Stream %s: resampling %s -> %s at %.2fx", s.id, rs.InFormat(), target, speed)
}

// deliver hands one chunk to the device, or sleeps its duration when there
// is no device to pace playback
func (l *Loop) deliver(ctx context.Context, s *streamState, chunk []byte, d float64) {
	out := l.output
	if out == nil || !out.IsAvailable() || out.IsMuted() {
		if !s.warnedNoOutput {
			s.warnedNoOutput = true
			log.Printf("Stream %s: no audio output or muted, pacing by sleep", s.id)
		}
		l.fallback(ctx, d)
		return
	}

	rs := l.decoder.Resampler()
	converted, err := rs.Convert(chunk)
	if err != nil {
		if s.writeLog.allow() {
			log.Printf("Stream %s: resample failed: %v", s.id, err)
		}
		l.fallback(ctx, d)
		return
	}

	if v := out.Volume(); v != 1 {
		audio.ScaleVolume(converted, rs.OutFormat().SampleFormat, v)
	}

	if err := out.WriteData(converted); err != nil {
		l.metrics.RecordWriteError()
		if s.writeLog.allow() {
			log.Printf("Stream %s: output write failed: %v", s.id, err)
		}
		l.fallback(ctx, d)
		return
	}
	l.stats.chunksWritten.Add(1)
	l.metrics.RecordChunkWritten()
}

// fallback paces one chunk without a device
func (l *Loop) fallback(ctx context.Context, d float64) {
	l.stats.fallbackSleeps.Add(1)
	l.metrics.RecordFallbackSleep(d)
	l.sleep(ctx, seconds(d))
}

// decodeFailed waits out the time the broken packet would have covered and
// drops it
func (l *Loop) decodeFailed(ctx context.Context, s *streamState, pkt *audio.Packet, err error) {
	dt := pkt.PTS - s.lastPTS
	if dt < 0 || dt > l.cfg.MaxDecodeGap {
		dt = 0
	}

	l.stats.decodeFailures.Add(1)
	l.metrics.RecordDecodeFailure()
	if s.decodeLog.allow() {
		log.Printf("Stream %s: decode failed at pts=%.3f (last=%.3f), skipping %.3fs: %v",
			s.id, pkt.PTS, s.lastPTS, dt, err)
	}

	l.sleep(ctx, seconds(dt))
}

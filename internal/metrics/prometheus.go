// ABOUTME: Prometheus metrics for the audio playback pipeline
// ABOUTME: Counters and gauges for packets, decoding, delivery and clock sync
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the player.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Packet metrics
	PacketsTaken prometheus.Counter
	Flushes      prometheus.Counter
	QueueDepth   prometheus.Gauge

	// Decode metrics
	DecodeFailures prometheus.Counter
	DecodedBytes   prometheus.Counter
	Remainders     prometheus.Counter

	// Delivery metrics
	ChunksWritten    prometheus.Counter
	WriteErrors      prometheus.Counter
	FallbackSleeps   prometheus.Counter
	FallbackSeconds  prometheus.Counter
	Reconfigurations prometheus.Counter

	// Clock metrics
	SyncSleeps         prometheus.Counter
	SyncDelay          prometheus.Histogram
	ImplausibleDelays  prometheus.Counter
	ClockValue         prometheus.Gauge
	ServerOffsetMicros prometheus.Gauge
	ServerRTTMicros    prometheus.Gauge
}

// New creates and registers all metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PacketsTaken: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_packets_taken_total",
			Help: "Total number of packets taken off the queue",
		}),
		Flushes: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_decoder_flushes_total",
			Help: "Total number of flush packets handled",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "avsync_packet_queue_depth",
			Help: "Current number of packets waiting in the queue",
		}),

		DecodeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_decode_failures_total",
			Help: "Total number of packets discarded after a decode failure",
		}),
		DecodedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_decoded_bytes_total",
			Help: "Total number of raw sample bytes produced by the decoder",
		}),
		Remainders: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_undecoded_remainders_total",
			Help: "Total number of cycles that left undecoded bytes for the next cycle",
		}),

		ChunksWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_chunks_written_total",
			Help: "Total number of chunks written to the output device",
		}),
		WriteErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_write_errors_total",
			Help: "Total number of failed device writes",
		}),
		FallbackSleeps: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_fallback_sleeps_total",
			Help: "Total number of chunks paced by sleeping instead of the device",
		}),
		FallbackSeconds: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_fallback_sleep_seconds_total",
			Help: "Total time spent pacing chunks without a device",
		}),
		Reconfigurations: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_resampler_reconfigurations_total",
			Help: "Total number of resampler reconfigurations applied",
		}),

		SyncSleeps: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_sync_sleeps_total",
			Help: "Total number of sleeps waiting for the external clock",
		}),
		SyncDelay: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "avsync_sync_delay_seconds",
			Help:    "Delay between packet timestamp and external clock when sleeping",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		}),
		ImplausibleDelays: f.NewCounter(prometheus.CounterOpts{
			Name: "avsync_implausible_delays_total",
			Help: "Total number of packets whose delay exceeded the plausible bound",
		}),
		ClockValue: f.NewGauge(prometheus.GaugeOpts{
			Name: "avsync_clock_seconds",
			Help: "Presentation clock value at the end of the last cycle",
		}),
		ServerOffsetMicros: f.NewGauge(prometheus.GaugeOpts{
			Name: "avsync_server_offset_microseconds",
			Help: "Estimated server clock offset",
		}),
		ServerRTTMicros: f.NewGauge(prometheus.GaugeOpts{
			Name: "avsync_server_rtt_microseconds",
			Help: "Round-trip time of the last time sync exchange",
		}),
	}
}

// RecordPacket increments the packets taken counter and updates queue depth
func (m *Metrics) RecordPacket(depth int) {
	if m == nil {
		return
	}
	m.PacketsTaken.Inc()
	m.QueueDepth.Set(float64(depth))
}

// RecordFlush increments the flush counter
func (m *Metrics) RecordFlush() {
	if m == nil {
		return
	}
	m.Flushes.Inc()
}

// RecordDecode records the outcome of one decode call
func (m *Metrics) RecordDecode(bytes int, remainder bool) {
	if m == nil {
		return
	}
	m.DecodedBytes.Add(float64(bytes))
	if remainder {
		m.Remainders.Inc()
	}
}

// RecordDecodeFailure increments the decode failures counter
func (m *Metrics) RecordDecodeFailure() {
	if m == nil {
		return
	}
	m.DecodeFailures.Inc()
}

// RecordChunkWritten increments the chunks written counter
func (m *Metrics) RecordChunkWritten() {
	if m == nil {
		return
	}
	m.ChunksWritten.Inc()
}

// RecordWriteError increments the write errors counter
func (m *Metrics) RecordWriteError() {
	if m == nil {
		return
	}
	m.WriteErrors.Inc()
}

// RecordFallbackSleep records one chunk paced without a device
func (m *Metrics) RecordFallbackSleep(seconds float64) {
	if m == nil {
		return
	}
	m.FallbackSleeps.Inc()
	m.FallbackSeconds.Add(seconds)
}

// RecordReconfiguration increments the reconfiguration counter
func (m *Metrics) RecordReconfiguration() {
	if m == nil {
		return
	}
	m.Reconfigurations.Inc()
}

// RecordSyncSleep records a sleep waiting for the external clock
func (m *Metrics) RecordSyncSleep(delay float64) {
	if m == nil {
		return
	}
	m.SyncSleeps.Inc()
	m.SyncDelay.Observe(delay)
}

// RecordImplausibleDelay increments the implausible delay counter
func (m *Metrics) RecordImplausibleDelay() {
	if m == nil {
		return
	}
	m.ImplausibleDelays.Inc()
}

// SetClock sets the clock value gauge
func (m *Metrics) SetClock(seconds float64) {
	if m == nil {
		return
	}
	m.ClockValue.Set(seconds)
}

// SetServerSync sets the time sync gauges
func (m *Metrics) SetServerSync(offset, rtt int64) {
	if m == nil {
		return
	}
	m.ServerOffsetMicros.Set(float64(offset))
	m.ServerRTTMicros.Set(float64(rtt))
}

// Serve exposes /metrics for gatherer on addr until ctx ends
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Metrics listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

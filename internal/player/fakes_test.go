// ABOUTME: Test doubles for the audio loop
// ABOUTME: Scriptable decoder, recording output and a sleeper driving a fake clock
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio/resample"
)

var testFormat = audio.Format{
	Codec:        "pcm",
	SampleRate:   48000,
	Channels:     2,
	SampleFormat: audio.SampleFormatS16,
}

// bytesFor returns the size of d seconds of testFormat audio
func bytesFor(d float64) int {
	return testFormat.BytesForDuration(d)
}

var errCorrupt = errors.New("corrupt packet")

// fakeDecoder passes bytes through, optionally in bounded batches
type fakeDecoder struct {
	mu          sync.Mutex
	rs          resample.Resampler
	maxBytes    int
	failOn      func(data []byte) bool
	consumeNone bool
	unavailable bool

	data      []byte
	undecoded int
	flushes   int
	decodes   int
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{rs: resample.NewLinear(testFormat)}
}

func (d *fakeDecoder) IsAvailable() bool { return !d.unavailable }

func (d *fakeDecoder) Decode(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decodes++

	if d.failOn != nil && d.failOn(data) {
		return errCorrupt
	}
	if d.consumeNone {
		d.data = nil
		d.undecoded = len(data)
		return nil
	}

	n := len(data)
	if d.maxBytes > 0 && n > d.maxBytes {
		n = d.maxBytes
	}
	d.data = data[:n]
	d.undecoded = len(data) - n
	return nil
}

func (d *fakeDecoder) Data() []byte       { return d.data }
func (d *fakeDecoder) UndecodedSize() int { return d.undecoded }

func (d *fakeDecoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushes++
}

func (d *fakeDecoder) Resampler() resample.Resampler { return d.rs }
func (d *fakeDecoder) Close() error                  { return nil }

func (d *fakeDecoder) flushCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes
}

// fakeResampler counts Prepare calls and passes data through
type fakeResampler struct {
	in, out, pendOut audio.Format
	speed, pendSpeed float64
	prepares         int
}

func newFakeResampler(f audio.Format) *fakeResampler {
	return &fakeResampler{in: f, out: f, pendOut: f, speed: 1, pendSpeed: 1}
}

func (r *fakeResampler) InFormat() audio.Format      { return r.in }
func (r *fakeResampler) OutFormat() audio.Format     { return r.out }
func (r *fakeResampler) SetOutFormat(f audio.Format) { r.pendOut = f }
func (r *fakeResampler) Speed() float64              { return r.speed }
func (r *fakeResampler) SetSpeed(s float64)          { r.pendSpeed = s }

func (r *fakeResampler) Prepare() error {
	r.prepares++
	r.out = r.pendOut
	r.speed = r.pendSpeed
	return nil
}

func (r *fakeResampler) Convert(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// fakeOutput records writes. When release is set each write waits for it.
type fakeOutput struct {
	mu        sync.Mutex
	format    audio.Format
	volume    float64
	speed     float64
	muted     bool
	available bool
	writes    [][]byte

	started chan struct{}
	release chan struct{}
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{format: testFormat, volume: 1, speed: 1, available: true}
}

func (o *fakeOutput) IsAvailable() bool    { return o.available }
func (o *fakeOutput) IsMuted() bool        { return o.muted }
func (o *fakeOutput) Volume() float64      { return o.volume }
func (o *fakeOutput) Format() audio.Format { return o.format }
func (o *fakeOutput) Speed() float64       { return o.speed }

func (o *fakeOutput) WriteData(data []byte) error {
	if o.started != nil {
		o.started <- struct{}{}
	}
	if o.release != nil {
		<-o.release
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes = append(o.writes, append([]byte(nil), data...))
	return nil
}

func (o *fakeOutput) written() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.writes
}

// fakeRef is an external time reference moved only by the sleeper
type fakeRef struct {
	mu sync.Mutex
	t  float64
}

func (r *fakeRef) now() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t
}

func (r *fakeRef) advance(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t += d.Seconds()
}

// recorder is a Sleeper that records durations instead of waiting
type recorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
	ref    *fakeRef
}

func (r *recorder) sleep(_ context.Context, d time.Duration) {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	if r.ref != nil {
		r.ref.advance(d)
	}
}

func (r *recorder) all() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func (r *recorder) total() time.Duration {
	var sum time.Duration
	for _, d := range r.all() {
		sum += d
	}
	return sum
}

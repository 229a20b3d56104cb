// ABOUTME: Linear interpolation resampler with speed control
// ABOUTME: Converts sample rate, channel count and sample format in one pass
package resample

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

// Linear resamples with linear interpolation between neighbouring frames.
// The fractional read position and the last input frame carry over between
// Convert calls.
type Linear struct {
	mu sync.Mutex

	in        audio.Format
	out       audio.Format
	speed     float64
	pendOut   audio.Format
	pendSpeed float64

	step     float64 // input frames per output frame
	position float64
	last     []float64 // last input frame, after channel remap
	passthru bool
}

// NewLinear creates a resampler whose output initially equals its input
func NewLinear(in audio.Format) *Linear {
	r := &Linear{
		in:        in,
		out:       in,
		speed:     1,
		pendOut:   in,
		pendSpeed: 1,
	}
	r.configure()
	return r
}

func (r *Linear) InFormat() audio.Format {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.in
}

// SetInFormat changes the input layout, used when a decoder learns its
// stream format from the first packet
func (r *Linear) SetInFormat(f audio.Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.in = f
	r.configure()
}

// OutFormat returns the format Convert currently produces
func (r *Linear) OutFormat() audio.Format {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out
}

func (r *Linear) SetOutFormat(f audio.Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendOut = f
}

// Speed returns the playback speed Convert currently applies
func (r *Linear) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

func (r *Linear) SetSpeed(s float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendSpeed = s
}

// Prepare applies the pending output format and speed
func (r *Linear) Prepare() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.pendOut.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, r.pendOut)
	}
	if r.pendSpeed <= 0 {
		return fmt.Errorf("resample: invalid speed %v", r.pendSpeed)
	}

	r.out = r.pendOut
	r.speed = r.pendSpeed
	r.configure()
	return nil
}

// configure recomputes the step and drops interpolation state. Caller holds mu.
func (r *Linear) configure() {
	r.position = 0
	r.last = nil
	r.passthru = r.in.Matches(r.out) && r.speed == 1
	if r.out.SampleRate > 0 {
		r.step = float64(r.in.SampleRate) / float64(r.out.SampleRate) * r.speed
	}
}

// Convert resamples one chunk of InFormat bytes into OutFormat bytes
func (r *Linear) Convert(data []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.passthru {
		return bytes.Clone(data), nil
	}
	if !r.in.IsValid() || !r.out.IsValid() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedFormat, r.in, r.out)
	}

	ch := r.out.Channels
	samples := remapChannels(decodeFrames(data, r.in), r.in.Channels, ch)
	if r.last != nil {
		samples = append(append(make([]float64, 0, len(r.last)+len(samples)), r.last...), samples...)
	}

	n := len(samples) / ch
	if n == 0 {
		return nil, nil
	}

	var out []float64
	if r.in.SampleRate == r.out.SampleRate && r.speed == 1 {
		// Only layout changes: every input frame maps to one output frame
		start := 0
		if r.last != nil {
			start = 1
		}
		out = samples[start*ch:]
		r.position = 0
	} else {
		out = make([]float64, 0, int(float64(n)/r.step+1)*ch)
		p := r.position
		for {
			i := int(p)
			if i+1 >= n {
				break
			}
			frac := p - float64(i)
			a := samples[i*ch : (i+1)*ch]
			b := samples[(i+1)*ch : (i+2)*ch]
			for c := 0; c < ch; c++ {
				out = append(out, a[c]*(1-frac)+b[c]*frac)
			}
			p += r.step
		}
		r.position = p - float64(n-1)
	}

	r.last = append(r.last[:0:0], samples[(n-1)*ch:n*ch]...)
	return encodeFrames(out, r.out), nil
}

var _ Resampler = (*Linear)(nil)

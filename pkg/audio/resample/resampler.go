// ABOUTME: Resampler interface used by decoders and the playback loop
// ABOUTME: Converts decoded samples to the output device format, rate and speed
package resample

import (
	"errors"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

// ErrUnsupportedFormat is returned by Prepare for sample layouts it cannot convert
var ErrUnsupportedFormat = errors.New("resample: unsupported format")

// Resampler converts raw samples from InFormat to OutFormat.
//
// SetOutFormat and SetSpeed only record the target; Prepare applies it.
// Convert is stateful so consecutive chunks join without clicks.
type Resampler interface {
	InFormat() audio.Format
	OutFormat() audio.Format
	SetOutFormat(audio.Format)
	Speed() float64
	SetSpeed(float64)
	Prepare() error
	Convert(data []byte) ([]byte, error)
}

// ABOUTME: Audio output interface definition
// ABOUTME: Sink for converted sample chunks plus the device state the loop reads
package output

import (
	"errors"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

// ErrNotOpen is returned when writing to a device that is not open
var ErrNotOpen = errors.New("output: device not open")

// Output represents an audio output device.
//
// Volume, mute and speed are device state set by the application. The
// playback loop applies them: it scales samples by Volume, skips the
// device while muted and resamples to Speed.
type Output interface {
	// IsAvailable reports whether the device is open
	IsAvailable() bool

	// IsMuted reports whether playback should bypass the device
	IsMuted() bool

	// Volume returns the linear gain, 1 being unity
	Volume() float64

	// Format returns the sample layout the device consumes
	Format() audio.Format

	// Speed returns the playback speed factor
	Speed() float64

	// WriteData outputs one chunk (blocks until the device accepts it)
	WriteData(data []byte) error
}

// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface and an oto implementation
// Package output provides audio playback devices.
//
// Oto drives the platform audio device through ebitengine/oto. Writes block
// while the device buffer is full, which paces the caller.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(audio.Format{SampleRate: 48000, Channels: 2, SampleFormat: audio.SampleFormatS16})
//	err = out.WriteData(chunk)
package output

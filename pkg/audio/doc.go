// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, SampleFormat, Packet and volume scaling
// Package audio provides the fundamental audio types shared by the playback pipeline.
//
// This package defines:
//   - SampleFormat: In-memory layout of one sample (u8, s16, s32, f32, f64 and planar variants)
//   - Format: Describes a stream (codec, sample rate, channels, sample format)
//   - Packet: A timestamped demuxed payload, the zero value being the flush sentinel
//
// ScaleVolume applies a software gain to raw sample bytes in place.
//
// Example:
//
//	format := audio.Format{
//	    Codec:        "pcm",
//	    SampleRate:   48000,
//	    Channels:     2,
//	    SampleFormat: audio.SampleFormatS16,
//	}
//
//	// Bytes in a 20ms chunk, aligned to whole frames
//	n := format.BytesForDuration(0.02)
package audio

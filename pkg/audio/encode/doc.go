// ABOUTME: Audio encoder package for packetizing PCM
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus
// Package encode turns source samples into packet payloads.
//
// Supports: PCM (16-bit and packed 24-bit), Opus (20ms frames)
//
// Encoders accept int32 samples in 24-bit range. Format reports the stream
// format a decoder needs to read the payloads back.
//
// Example:
//
//	encoder, err := encode.New(format)
//	payload, err := encoder.Encode(samples)
package encode

// ABOUTME: Audio decoder package for packetized streams
// ABOUTME: Provides the Decoder interface and PCM and Opus implementations
// Package decode provides stateful packet decoders.
//
// Supports: PCM (8, 16, 24 and 32-bit integer, 32-bit float) and Opus.
//
// A decoder may consume only part of a packet. The caller feeds the
// remaining UndecodedSize bytes back on the next call. Every decoder owns a
// resampler whose input format is the decoded sample layout.
//
// Example:
//
//	dec, err := decode.New(format)
//	if err := dec.Decode(pkt.Data); err == nil {
//	    out, _ := dec.Resampler().Convert(dec.Data())
//	}
package decode

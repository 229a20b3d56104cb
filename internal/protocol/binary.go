// ABOUTME: Binary audio chunk framing
// ABOUTME: One type byte, a big-endian μs server timestamp, then the payload
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ChunkAudio is the type byte of an audio chunk
const ChunkAudio byte = 0

// chunkHeader is the type byte plus the timestamp
const chunkHeader = 9

// ErrShortChunk is returned for frames without a full header
var ErrShortChunk = errors.New("protocol: binary chunk too short")

// AudioChunk is one timestamped encoded frame
type AudioChunk struct {
	Timestamp int64 // μs, server clock
	Data      []byte
}

// Seconds returns the timestamp in seconds
func (c AudioChunk) Seconds() float64 {
	return float64(c.Timestamp) / 1e6
}

// EncodeAudioChunk frames a chunk for a binary websocket message
func EncodeAudioChunk(c AudioChunk) []byte {
	out := make([]byte, chunkHeader+len(c.Data))
	out[0] = ChunkAudio
	binary.BigEndian.PutUint64(out[1:9], uint64(c.Timestamp))
	copy(out[chunkHeader:], c.Data)
	return out
}

// DecodeAudioChunk parses a binary websocket message. The payload aliases data.
func DecodeAudioChunk(data []byte) (AudioChunk, error) {
	if len(data) < chunkHeader {
		return AudioChunk{}, fmt.Errorf("%w: %d bytes", ErrShortChunk, len(data))
	}
	if data[0] != ChunkAudio {
		return AudioChunk{}, fmt.Errorf("unknown binary message type: %d", data[0])
	}
	return AudioChunk{
		Timestamp: int64(binary.BigEndian.Uint64(data[1:9])),
		Data:      data[chunkHeader:],
	}, nil
}

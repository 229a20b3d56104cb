// ABOUTME: Stream protocol message type definitions
// ABOUTME: JSON control messages exchanged with a stream server
package protocol

// Message types
const (
	TypeClientHello  = "client/hello"
	TypeServerHello  = "server/hello"
	TypeClientTime   = "client/time"
	TypeServerTime   = "server/time"
	TypePlayerUpdate = "player/update"
	TypeCommand      = "server/command"
	TypeStreamStart  = "stream/start"
	TypeStreamClear  = "stream/clear"
	TypeStreamEnd    = "stream/end"
	TypeMetadata     = "stream/metadata"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID      string         `json:"client_id"`
	Name          string         `json:"name"`
	Version       int            `json:"version"`
	DeviceInfo    *DeviceInfo    `json:"device_info,omitempty"`
	PlayerSupport *PlayerSupport `json:"player_support,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// PlayerSupport describes player capabilities
type PlayerSupport struct {
	SupportFormats    []AudioFormat `json:"support_formats,omitempty"`
	BufferCapacity    int           `json:"buffer_capacity,omitempty"`
	SupportedCommands []string      `json:"supported_commands,omitempty"`
}

// AudioFormat describes a supported audio format
type AudioFormat struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ClientState reports the player's current state (sent as player/update)
type ClientState struct {
	State  string  `json:"state"` // "playing", "paused" or "idle"
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

// ServerCommand is a control message from the server
type ServerCommand struct {
	Command string  `json:"command"` // volume, mute, pause, resume, seek, speed
	Volume  float64 `json:"volume,omitempty"`
	Mute    bool    `json:"mute,omitempty"`
	Speed   float64 `json:"speed,omitempty"`
	Seek    float64 `json:"seek,omitempty"` // seconds
}

// StreamStart notifies the client of stream format
type StreamStart struct {
	Codec       string `json:"codec"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	BitDepth    int    `json:"bit_depth"`
	CodecHeader string `json:"codec_header,omitempty"` // Base64-encoded
}

// StreamMetadata contains track information
type StreamMetadata struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// ClientTime is sent for clock synchronization
type ClientTime struct {
	ClientTransmitted int64 `json:"client_transmitted"` // μs
}

// ServerTime is the response to client/time
type ServerTime struct {
	ClientTransmitted int64 `json:"client_transmitted"`
	ServerReceived    int64 `json:"server_received"`
	ServerTransmitted int64 `json:"server_transmitted"`
}

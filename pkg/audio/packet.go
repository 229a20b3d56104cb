// ABOUTME: Timestamped container packets
// ABOUTME: The zero Packet is the flush sentinel pushed on seek
package audio

// Packet carries one demuxed payload and its presentation timestamp.
//
// PTS is in seconds. While a packet is being drained the PTS advances by the
// duration of each delivered chunk and Data shrinks to the bytes the decoder
// has not consumed yet.
type Packet struct {
	PTS   float64
	Data  []byte
	valid bool
}

// NewPacket returns a valid packet
func NewPacket(pts float64, data []byte) Packet {
	return Packet{PTS: pts, Data: data, valid: true}
}

// FlushPacket returns the sentinel that asks the consumer to flush its decoder
func FlushPacket() Packet {
	return Packet{}
}

// IsValid reports whether the packet carries data rather than a flush request
func (p Packet) IsValid() bool {
	return p.valid
}

// Size returns the number of payload bytes left in the packet
func (p Packet) Size() int {
	return len(p.Data)
}

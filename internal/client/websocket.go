// ABOUTME: WebSocket client for a network audio stream
// ABOUTME: Handshakes, feeds timestamped chunks to the packet queue and runs time sync
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/avsync-go/internal/metrics"
	"github.com/Resonate-Protocol/avsync-go/internal/protocol"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/clock"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// ErrNotConnected is returned when sending before Connect or after Close
var ErrNotConnected = errors.New("client: not connected")

// Sink is the packet queue the stream fills
type Sink interface {
	Put(ctx context.Context, p audio.Packet) error
	SetEnd()
	Clear()
}

// Config holds client configuration
type Config struct {
	ServerAddr    string
	Path          string
	ClientID      string
	Name          string
	Version       int
	DeviceInfo    protocol.DeviceInfo
	PlayerSupport protocol.PlayerSupport
	// SyncInterval between time sync requests once the first few are done
	SyncInterval time.Duration
}

// Client receives one network stream
type Client struct {
	config  Config
	sink    Sink
	sync    *clock.Sync
	metrics *metrics.Metrics

	conn      *websocket.Conn
	writeMu   sync.Mutex
	connected atomic.Bool

	// StreamStart carries the format of each new stream
	StreamStart chan audio.Format
	// Commands carries server control messages
	Commands chan protocol.ServerCommand
	// Metadata carries track information
	Metadata chan protocol.StreamMetadata
}

// NewClient creates a client that queues packets into sink and feeds time
// sync samples to cs
func NewClient(config Config, sink Sink, cs *clock.Sync, m *metrics.Metrics) *Client {
	if config.Path == "" {
		config.Path = "/resonate"
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = time.Second
	}
	return &Client{
		config:      config,
		sink:        sink,
		sync:        cs,
		metrics:     m,
		StreamStart: make(chan audio.Format, 1),
		Commands:    make(chan protocol.ServerCommand, 10),
		Metadata:    make(chan protocol.StreamMetadata, 10),
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	c.conn = conn
	c.connected.Store(true)

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}
	return nil
}

func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID:      c.config.ClientID,
		Name:          c.config.Name,
		Version:       c.config.Version,
		DeviceInfo:    &c.config.DeviceInfo,
		PlayerSupport: &c.config.PlayerSupport,
	}
	if err := c.send(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if msg.Type != protocol.TypeServerHello {
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}

	log.Printf("Handshake complete with server")
	return c.SendState(protocol.ClientState{State: "idle", Volume: 1})
}

// Run reads messages and keeps time sync going until ctx ends or the
// connection drops
func (c *Client) Run(ctx context.Context) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		c.Close()
		return nil
	})
	g.Go(func() error {
		defer c.Close()
		return c.readMessages(ctx)
	})
	g.Go(func() error {
		c.syncLoop(ctx)
		return nil
	})
	return g.Wait()
}

func (c *Client) readMessages(ctx context.Context) error {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || !c.connected.Load() ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch messageType {
		case websocket.BinaryMessage:
			if err := c.handleBinaryMessage(ctx, data); err != nil {
				return err
			}
		case websocket.TextMessage:
			c.handleJSONMessage(ctx, data)
		}
	}
}

func (c *Client) handleBinaryMessage(ctx context.Context, data []byte) error {
	chunk, err := protocol.DecodeAudioChunk(data)
	if err != nil {
		log.Printf("Invalid binary message: %v", err)
		return nil
	}

	if err := c.sink.Put(ctx, audio.NewPacket(chunk.Seconds(), chunk.Data)); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("queue chunk: %w", err)
	}
	return nil
}

func (c *Client) handleJSONMessage(ctx context.Context, data []byte) {
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeServerTime:
		var resp protocol.ServerTime
		if err := json.Unmarshal(msg.Payload, &resp); err != nil {
			log.Printf("Bad server/time: %v", err)
			return
		}
		t4 := c.sync.LocalMicros()
		c.sync.ProcessSyncResponse(resp.ClientTransmitted, resp.ServerReceived, resp.ServerTransmitted, t4)
		stats := c.sync.Stats()
		c.metrics.SetServerSync(stats.Offset, stats.RTT)

	case protocol.TypeStreamStart:
		var start protocol.StreamStart
		if err := json.Unmarshal(msg.Payload, &start); err != nil {
			log.Printf("Bad stream/start: %v", err)
			return
		}
		format, err := streamFormat(start)
		if err != nil {
			log.Printf("Unusable stream/start: %v", err)
			return
		}
		log.Printf("Stream starting: %s", format)
		c.sink.Clear()
		select {
		case c.StreamStart <- format:
		case <-ctx.Done():
		}

	case protocol.TypeStreamClear:
		log.Printf("Stream cleared by server")
		c.sink.Clear()
		if err := c.sink.Put(ctx, audio.FlushPacket()); err != nil && ctx.Err() == nil {
			log.Printf("Failed to queue flush: %v", err)
		}

	case protocol.TypeStreamEnd:
		log.Printf("Stream ended by server")
		c.sink.SetEnd()

	case protocol.TypeCommand:
		var cmd protocol.ServerCommand
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			log.Printf("Bad server/command: %v", err)
			return
		}
		select {
		case c.Commands <- cmd:
		case <-ctx.Done():
		}

	case protocol.TypeMetadata:
		var meta protocol.StreamMetadata
		if err := json.Unmarshal(msg.Payload, &meta); err != nil {
			log.Printf("Bad stream/metadata: %v", err)
			return
		}
		select {
		case c.Metadata <- meta:
		default:
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// streamFormat converts a stream/start message to a decoder format
func streamFormat(start protocol.StreamStart) (audio.Format, error) {
	format := audio.Format{
		Codec:      start.Codec,
		SampleRate: start.SampleRate,
		Channels:   start.Channels,
		BitDepth:   start.BitDepth,
	}
	if start.BitDepth != 0 {
		sf, err := audio.SampleFormatForBitDepth(start.BitDepth)
		if err != nil {
			return audio.Format{}, err
		}
		format.SampleFormat = sf
	}
	if start.CodecHeader != "" {
		header, err := base64.StdEncoding.DecodeString(start.CodecHeader)
		if err != nil {
			return audio.Format{}, fmt.Errorf("codec header: %w", err)
		}
		format.CodecHeader = header
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return audio.Format{}, fmt.Errorf("invalid stream format: %s", format)
	}
	return format, nil
}

// syncLoop sends time requests, quickly at first so the offset settles
func (c *Client) syncLoop(ctx context.Context) {
	const burst = 5
	interval := 100 * time.Millisecond

	for i := 0; ; i++ {
		if i == burst {
			interval = c.config.SyncInterval
		}
		if err := c.SendTimeSync(c.sync.LocalMicros()); err != nil {
			if ctx.Err() == nil {
				log.Printf("Time sync send failed: %v", err)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		if q := c.sync.CheckQuality(); q == clock.QualityLost && i > burst {
			log.Printf("Time sync lost")
		}
	}
}

func (c *Client) send(typ string, payload interface{}) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(protocol.Message{Type: typ, Payload: payload})
}

// SendState sends a player/update message
func (c *Client) SendState(state protocol.ClientState) error {
	return c.send(protocol.TypePlayerUpdate, state)
}

// SendTimeSync sends a client/time message
func (c *Client) SendTimeSync(t1 int64) error {
	return c.send(protocol.TypeClientTime, protocol.ClientTime{ClientTransmitted: t1})
}

// Close closes the connection
func (c *Client) Close() {
	if c.connected.CompareAndSwap(true, false) {
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

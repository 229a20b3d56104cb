// ABOUTME: Player application orchestration
// ABOUTME: Wires source, queue, decoder, device, clock and loop, and exposes playback controls
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/avsync-go/internal/client"
	"github.com/Resonate-Protocol/avsync-go/internal/config"
	"github.com/Resonate-Protocol/avsync-go/internal/demux"
	"github.com/Resonate-Protocol/avsync-go/internal/discovery"
	"github.com/Resonate-Protocol/avsync-go/internal/metrics"
	"github.com/Resonate-Protocol/avsync-go/internal/player"
	"github.com/Resonate-Protocol/avsync-go/internal/protocol"
	"github.com/Resonate-Protocol/avsync-go/internal/queue"
	"github.com/Resonate-Protocol/avsync-go/internal/version"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/avsync-go/pkg/audio/output"
	"github.com/Resonate-Protocol/avsync-go/pkg/clock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// ErrSeekUnsupported is returned by Seek while following a network stream
var ErrSeekUnsupported = errors.New("app: seek is not supported for network streams")

// Device is an output the application can open and control
type Device interface {
	output.Output
	Open(format audio.Format) error
	SetVolume(v float64)
	SetMuted(m bool)
	SetSpeed(s float64)
	Close() error
}

// Option customizes an App
type Option func(*App)

// WithDevice replaces the oto device. A nil device plays without output.
func WithDevice(d Device) Option {
	return func(a *App) {
		a.device = d
		a.deviceSet = true
	}
}

// WithRegistry registers metrics on reg instead of a private registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// WithSleeper passes a sleeper to every loop, used by tests
func WithSleeper(s player.Sleeper) Option {
	return func(a *App) { a.sleeper = s }
}

// App is the player application
type App struct {
	cfg       *config.Config
	clock     *clock.Clock
	queue     *queue.PacketQueue
	sync      *clock.Sync
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	device    Device
	deviceSet bool
	sleeper   player.Sleeper

	mu      sync.Mutex
	loop    *player.Loop
	demuxer *demux.Demuxer
	client  *client.Client
	paused  bool
	cancel  context.CancelFunc
}

// New creates the application from a validated configuration
func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:   cfg,
		clock: clock.New(cfg.ClockType()),
		queue: queue.New(cfg.Playback.QueueCapacity),
		sync:  clock.NewSync(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	a.metrics = metrics.New(a.registry)

	if !a.deviceSet && cfg.Playback.Output {
		a.device = output.NewOto()
	}
	if a.device != nil {
		a.device.SetVolume(cfg.Playback.Volume)
		a.device.SetMuted(cfg.Playback.Muted)
		a.device.SetSpeed(cfg.Playback.Speed)
	}
	return a
}

func (a *App) isNetwork() bool {
	return a.cfg.Source.File == "" && (a.cfg.Source.Server != "" || a.cfg.Source.Discover)
}

// Run plays until the source ends, Stop is called or ctx ends
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	if addr := a.cfg.Metrics.Address; addr != "" {
		g.Go(func() error { return metrics.Serve(gctx, addr, a.registry) })
	}
	g.Go(func() error {
		defer cancel()
		if a.isNetwork() {
			return a.runNetwork(gctx)
		}
		return a.runLocal(gctx)
	})

	err := g.Wait()
	if a.device != nil {
		a.device.Close()
	}
	return err
}

// runLocal plays a file or the test tone
func (a *App) runLocal(ctx context.Context) error {
	src, err := a.openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	dmx, err := demux.New(src, a.queue, demux.Config{
		Codec:          a.cfg.Source.Codec,
		BitDepth:       a.cfg.Source.BitDepth,
		PacketDuration: a.cfg.Playback.PacketDuration,
	})
	if err != nil {
		return err
	}

	dec, err := decode.New(dmx.Format())
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	defer dec.Close()

	a.clock.Reset()
	a.openDevice(dec)
	loop := a.newLoop(dec)

	a.mu.Lock()
	a.demuxer = dmx
	a.mu.Unlock()

	lctx, lcancel := context.WithCancel(ctx)
	defer lcancel()
	g, gctx := errgroup.WithContext(lctx)
	g.Go(func() error { return dmx.Run(gctx) })
	g.Go(func() error {
		defer lcancel()
		return loop.Run(gctx)
	})
	return g.Wait()
}

func (a *App) openSource() (demux.Source, error) {
	s := a.cfg.Source
	if s.File != "" {
		return demux.Open(s.File)
	}
	log.Printf("No file given, playing %.0fHz test tone", s.ToneFrequency)
	return demux.NewToneSource(s.ToneFrequency, s.SampleRate, s.Channels, s.ToneDuration), nil
}

// runNetwork follows a stream server, rebuilding the pipeline on every
// stream start
func (a *App) runNetwork(ctx context.Context) error {
	addr := a.cfg.Source.Server
	if addr == "" {
		mgr := discovery.NewManager(discovery.Config{ServiceName: a.playerName()})
		server, err := mgr.Discover(ctx, a.cfg.Source.GetDiscoveryTimeout())
		mgr.Stop()
		if err != nil {
			return fmt.Errorf("server discovery: %w", err)
		}
		addr = server.Addr()
	}

	if port := a.cfg.Source.AdvertisePort; port > 0 {
		adv := discovery.NewManager(discovery.Config{ServiceName: a.playerName(), Port: port})
		if err := adv.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
		defer adv.Stop()
	}

	if a.clock.Type() != clock.External {
		log.Printf("Network streams follow the server clock, switching to external")
		a.clock.SetType(clock.External)
	}
	a.clock.SetReference(a.sync.ServerSeconds)

	c := client.NewClient(client.Config{
		ServerAddr: addr,
		ClientID:   uuid.New().String(),
		Name:       a.playerName(),
		Version:    1,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
		PlayerSupport: protocol.PlayerSupport{
			SupportFormats: []protocol.AudioFormat{
				{Codec: "opus", Channels: 2, SampleRate: 48000, BitDepth: 16},
				{Codec: "pcm", Channels: 2, SampleRate: 48000, BitDepth: 16},
				{Codec: "pcm", Channels: 2, SampleRate: 48000, BitDepth: 24},
			},
			BufferCapacity:    a.cfg.Playback.QueueCapacity,
			SupportedCommands: []string{"volume", "mute", "pause", "resume", "speed"},
		},
	}, a.queue, a.sync, a.metrics)

	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	log.Printf("Connected to server: %s", addr)

	a.mu.Lock()
	a.client = c
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(gctx) })
	g.Go(func() error { return a.followStreams(gctx, c) })
	return g.Wait()
}

// followStreams runs one loop per stream/start
func (a *App) followStreams(ctx context.Context, c *client.Client) error {
	var (
		wg      sync.WaitGroup
		current *player.Loop
		dec     decode.Decoder
	)
	stop := func() {
		if current != nil {
			current.Stop()
			wg.Wait()
			dec.Close()
			current = nil
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case format := <-c.StreamStart:
			stop()

			d, err := decode.New(format)
			if err != nil {
				log.Printf("Cannot play stream %s: %v", format, err)
				continue
			}
			dec = d
			a.openDevice(dec)
			current = a.newLoop(dec)

			wg.Add(1)
			go func(l *player.Loop) {
				defer wg.Done()
				l.Run(ctx)
			}(current)
			a.sendState(c)

		case cmd := <-c.Commands:
			a.applyCommand(cmd)
			a.sendState(c)
		}
	}
}

func (a *App) applyCommand(cmd protocol.ServerCommand) {
	switch cmd.Command {
	case "volume":
		a.SetVolume(cmd.Volume)
	case "mute":
		a.SetMuted(cmd.Mute)
	case "pause":
		a.Pause()
	case "resume":
		a.Resume()
	case "speed":
		a.SetSpeed(cmd.Speed)
	default:
		log.Printf("Ignoring server command: %s", cmd.Command)
	}
}

func (a *App) sendState(c *client.Client) {
	state := protocol.ClientState{State: "playing"}
	a.mu.Lock()
	if a.paused {
		state.State = "paused"
	}
	a.mu.Unlock()
	if a.device != nil {
		state.Volume = a.device.Volume()
		state.Muted = a.device.IsMuted()
	}
	if err := c.SendState(state); err != nil {
		log.Printf("Failed to send state: %v", err)
	}
}

// newLoop builds a loop for dec and makes it the controlled loop
func (a *App) newLoop(dec decode.Decoder) *player.Loop {
	opts := []player.Option{player.WithMetrics(a.metrics)}
	if a.sleeper != nil {
		opts = append(opts, player.WithSleeper(a.sleeper))
	}

	var out output.Output
	if a.device != nil {
		out = a.device
	}
	l := player.New(a.cfg.Loop(), a.queue, dec, out, a.clock, opts...)

	a.mu.Lock()
	a.loop = l
	if a.paused {
		l.Pause()
	}
	a.mu.Unlock()
	return l
}

// openDevice opens the output for the decoder's format and points the
// decoder's resampler at it, so the first chunk is already converted.
// A failure leaves the loop pacing by sleep.
func (a *App) openDevice(dec decode.Decoder) {
	if a.device == nil {
		return
	}
	rs := dec.Resampler()
	format := deviceFormat(rs.InFormat(), a.cfg.Playback.SampleFormat)
	if err := a.device.Open(format); err != nil {
		log.Printf("Audio output unavailable, continuing without it: %v", err)
		return
	}

	rs.SetOutFormat(a.device.Format())
	rs.SetSpeed(a.device.Speed())
	if err := rs.Prepare(); err != nil {
		log.Printf("Cannot convert %s for the device: %v", rs.InFormat(), err)
	}
}

// deviceFormat picks the layout the device is opened with
func deviceFormat(in audio.Format, override string) audio.Format {
	out := audio.Format{SampleRate: in.SampleRate, Channels: in.Channels}
	if sf, err := audio.ParseSampleFormat(override); err == nil && override != "" {
		out.SampleFormat = sf
		return out
	}
	switch in.SampleFormat.Packed() {
	case audio.SampleFormatU8, audio.SampleFormatS16, audio.SampleFormatFloat:
		out.SampleFormat = in.SampleFormat.Packed()
	default:
		out.SampleFormat = audio.SampleFormatFloat
	}
	return out
}

func (a *App) playerName() string {
	if a.cfg.Source.Name != "" {
		return a.cfg.Source.Name
	}
	return version.Product
}

// Pause stops playback before the next packet and freezes the clock
func (a *App) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = true
	a.clock.Pause(true)
	if a.loop != nil {
		a.loop.Pause()
	}
}

// Resume continues playback
func (a *App) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = false
	a.clock.Pause(false)
	if a.loop != nil {
		a.loop.Resume()
	}
}

// Seek continues a local source from t seconds
func (a *App) Seek(t float64) error {
	a.mu.Lock()
	dmx := a.demuxer
	network := a.client != nil
	a.mu.Unlock()

	if network {
		return ErrSeekUnsupported
	}
	if dmx == nil {
		return fmt.Errorf("app: nothing to seek")
	}
	if err := dmx.Seek(t); err != nil {
		return err
	}
	a.clock.Seek(t)
	return nil
}

// SetVolume sets the linear gain
func (a *App) SetVolume(v float64) {
	if a.device != nil {
		a.device.SetVolume(v)
	}
}

// SetMuted mutes or unmutes the device
func (a *App) SetMuted(m bool) {
	if a.device != nil {
		a.device.SetMuted(m)
	}
}

// SetSpeed changes playback speed. The loop picks it up on its next cycles.
func (a *App) SetSpeed(s float64) {
	if a.device != nil {
		a.device.SetSpeed(s)
	}
}

// Stop ends Run
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loop != nil {
		a.loop.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
}

// State reports the current loop state
func (a *App) State() player.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loop == nil {
		return player.StateStopped
	}
	return a.loop.State()
}

// Stats returns the current loop statistics
func (a *App) Stats() player.LoopStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loop == nil {
		return player.LoopStats{}
	}
	return a.loop.Stats()
}

// Clock returns the presentation clock
func (a *App) Clock() *clock.Clock {
	return a.clock
}

// Registry returns the metrics registry
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

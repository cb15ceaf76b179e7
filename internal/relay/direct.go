package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/observability"
	"github.com/rs/zerolog"
)

const (
	maxDatagramSize = 64 * 1024
	DefaultWarmup   = 5 * time.Second
)

var DefaultRemote = Endpoint{Host: "127.0.0.1", Port: 9000}

type DirectConfig struct {
	Host   string
	Port   uint16
	Warmup time.Duration
}

// Direct owns one UDP socket: it receives from the peer on it and sends to
// the remote control endpoint held in the registry.
type Direct struct {
	cfg       DirectConfig
	conn      net.PacketConn
	endpoints *Endpoints
	handlers  *Handlers
	logger    zerolog.Logger

	closeOnce sync.Once
}

var _ Transport = (*Direct)(nil)

// NewDirect binds the socket right away so the local port is known before
// Run. Port 0 asks for an ephemeral port.
func NewDirect(cfg DirectConfig, endpoints *Endpoints, handlers *Handlers, logger zerolog.Logger) (*Direct, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Warmup < 0 {
		cfg.Warmup = 0
	}
	if endpoints == nil {
		endpoints = NewEndpoints()
	}
	if handlers == nil {
		handlers = NewHandlers(logger)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: bind %s: %w", ErrTransportFatal, addr, err)
	}

	if udpAddr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		endpoints.SetLocalPort(uint16(udpAddr.Port))
	}
	if _, ok := endpoints.Remote(); !ok {
		endpoints.SetRemote(DefaultRemote)
	}

	return &Direct{
		cfg:       cfg,
		conn:      conn,
		endpoints: endpoints,
		handlers:  handlers,
		logger:    logger.With().Str("transport", ModeDirect).Logger(),
	}, nil
}

func (d *Direct) LocalPort() (uint16, bool) {
	return d.endpoints.LocalPort()
}

func (d *Direct) MetadataBaseURL() (string, bool) {
	return d.endpoints.MetadataBaseURL()
}

// Run waits out the warm-up, starts the handlers and then reads until ctx is
// done. A socket error returns ErrTransportFatal.
func (d *Direct) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = d.Close() })
	defer stop()

	port, _ := d.LocalPort()
	d.logger.Info().Uint16("port", port).Dur("warmup", d.cfg.Warmup).Msg("osc socket bound")

	if d.cfg.Warmup > 0 {
		timer := time.NewTimer(d.cfg.Warmup)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}

	d.handlers.Start(ctx)

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := d.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: receive: %w", ErrTransportFatal, err)
		}

		messages, err := Decode(buf[:n])
		if err != nil {
			observability.RecordDecodeFailure(ModeDirect)
			d.logger.Warn().Err(err).Stringer("from", from).Int("bytes", n).Msg("dropping undecodable datagram")
			continue
		}

		for _, msg := range messages {
			observability.RecordPacket(ModeDirect)
			d.handlers.Dispatch(ctx, msg)
		}
	}
}

func (d *Direct) Send(ctx context.Context, msg domain.Message) error {
	data, err := Encode(msg)
	if err != nil {
		observability.RecordSend(msg.Address, false)
		return err
	}

	if err := d.SendRaw(ctx, data); err != nil {
		observability.RecordSend(msg.Address, false)
		return fmt.Errorf("send %s: %w", msg.Address, err)
	}

	observability.RecordSend(msg.Address, true)
	return nil
}

// SendRaw writes an already encoded packet to the remote control endpoint.
func (d *Direct) SendRaw(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	remote, ok := d.endpoints.Remote()
	if !ok {
		return ErrNoRemote
	}

	addr, err := net.ResolveUDPAddr("udp", remote.String())
	if err != nil {
		return fmt.Errorf("resolve %s: %w", remote, err)
	}

	if _, err := d.conn.WriteTo(data, addr); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

func (d *Direct) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.conn.Close()
	})
	return err
}

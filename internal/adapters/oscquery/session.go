package oscquery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/observability"
	"github.com/bnema/gestation-osc/internal/relay"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultQueryInterval = 2 * time.Second

var (
	ErrNotRegistered = errors.New("session is not registered")
	ErrNoService     = errors.New("no matching osc service")
)

type SessionConfig struct {
	BindHost      string
	AdvertiseIP   net.IP
	QueryInterval time.Duration
}

// Session implements relay.Session over mDNS and OSCQuery: it advertises an
// OSC receiver plus its description, and browses for peer services.
type Session struct {
	cfg    SessionConfig
	agent  *Agent
	logger zerolog.Logger

	mu       sync.RWMutex
	conn     net.PacketConn
	port     uint16
	instance string

	failed chan error
}

var _ relay.Session = (*Session)(nil)

func NewSession(cfg SessionConfig, agent *Agent, logger zerolog.Logger) *Session {
	if cfg.BindHost == "" {
		cfg.BindHost = "0.0.0.0"
	}
	if cfg.QueryInterval <= 0 {
		cfg.QueryInterval = DefaultQueryInterval
	}
	if cfg.AdvertiseIP == nil {
		cfg.AdvertiseIP = advertiseIP(cfg.BindHost)
	}

	return &Session{
		cfg:    cfg,
		agent:  agent,
		logger: logger.With().Str("component", "oscquery_session").Logger(),
		failed: make(chan error, 1),
	}
}

func (s *Session) Failed() <-chan error {
	return s.failed
}

func (s *Session) OnConnect(fn func(relay.ServiceEvent)) {
	s.agent.OnFound(func(svc Service) {
		kind, ok := svc.Kind()
		if !ok {
			return
		}
		fn(relay.ServiceEvent{Kind: kind, Name: svc.Instance, Endpoint: svc.Endpoint()})
	})
}

// Register binds the OSC receiver, starts the OSCQuery host and advertises
// both. Background work stops when ctx is done.
func (s *Session) Register(ctx context.Context, name string, caps relay.Capabilities, handle func(domain.Message)) error {
	conn, port, err := s.bindOSC()
	if err != nil {
		return err
	}

	instance := InstanceName(name)
	s.mu.Lock()
	s.instance = instance
	s.mu.Unlock()

	httpPort, err := Publish(ctx, s.agent, instance, s.cfg.BindHost, s.cfg.AdvertiseIP, port, caps, s.logger)
	if err != nil {
		_ = conn.Close()
		return err
	}

	context.AfterFunc(ctx, func() { _ = conn.Close() })

	go func() {
		if err := s.agent.Run(ctx); err != nil {
			s.logger.Error().Err(err).Msg("mdns agent stopped")
		}
	}()
	go s.browse(ctx)
	go s.receive(ctx, conn, handle)

	s.logger.Info().
		Str("instance", instance).
		Uint16("osc_port", port).
		Uint16("oscquery_port", httpPort).
		Msg("advertised services")
	return nil
}

// Publish serves the OSCQuery description of an OSC receiver on an
// ephemeral port and advertises both over mDNS. The host stops with ctx.
func Publish(ctx context.Context, agent *Agent, instance, bindHost string, ip net.IP, oscPort uint16, caps relay.Capabilities, logger zerolog.Logger) (uint16, error) {
	host := NewHost(instance, relay.Endpoint{Host: ip.String(), Port: oscPort}, caps, logger)
	httpPort, err := host.Listen(net.JoinHostPort(bindHost, "0"))
	if err != nil {
		return 0, err
	}

	hostname := instance + ".local."
	err = agent.Advertise(
		Service{Instance: instance, Type: TypeOSC, Host: hostname, Addr: ip, Port: oscPort},
		Service{Instance: instance, Type: TypeOSCQuery, Host: hostname, Addr: ip, Port: httpPort},
	)
	if err != nil {
		logger.Warn().Err(err).Msg("initial announcement failed")
	}

	go func() {
		if err := host.Serve(ctx); err != nil {
			logger.Error().Err(err).Msg("oscquery host stopped")
		}
	}()
	return httpPort, nil
}

// AdvertiseIP picks the address to announce for a socket bound to bindHost.
func AdvertiseIP(bindHost string) net.IP {
	return advertiseIP(bindHost)
}

// Send delivers msg to every found OSC service whose instance name
// matches pattern.
func (s *Session) Send(ctx context.Context, msg domain.Message, pattern string) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotRegistered
	}

	data, err := relay.Encode(msg)
	if err != nil {
		return err
	}

	var targets []Service
	for _, svc := range s.agent.Services(TypeOSC) {
		if ok, _ := path.Match(pattern, svc.Instance); ok {
			targets = append(targets, svc)
		}
	}
	if len(targets) == 0 {
		return fmt.Errorf("%w: %q", ErrNoService, pattern)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	var errs []error
	for _, svc := range targets {
		addr := &net.UDPAddr{IP: svc.Addr, Port: int(svc.Port)}
		if _, err := conn.WriteTo(data, addr); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", svc.Instance, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) LocalPort() (uint16, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port, s.conn != nil
}

func (s *Session) Instance() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instance
}

func (s *Session) bindOSC() (net.PacketConn, uint16, error) {
	conn, err := net.ListenPacket("udp4", net.JoinHostPort(s.cfg.BindHost, "0"))
	if err != nil {
		return nil, 0, fmt.Errorf("bind osc receiver: %w", err)
	}
	port := uint16(conn.LocalAddr().(*net.UDPAddr).Port)

	s.mu.Lock()
	s.conn = conn
	s.port = port
	s.mu.Unlock()
	return conn, port, nil
}

func (s *Session) browse(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.QueryInterval)
	defer ticker.Stop()

	for {
		if err := s.agent.Query(TypeOSC, TypeOSCQuery); err != nil {
			s.logger.Debug().Err(err).Msg("mdns query failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Session) receive(ctx context.Context, conn net.PacketConn, handle func(domain.Message)) {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error().Err(err).Msg("osc receive failed")
				select {
				case s.failed <- fmt.Errorf("read osc socket: %w", err):
				default:
				}
			}
			return
		}

		messages, err := relay.Decode(buf[:n])
		if err != nil {
			observability.RecordDecodeFailure(relay.ModeManaged)
			s.logger.Debug().Err(err).Msg("dropping undecodable packet")
			continue
		}
		for _, msg := range messages {
			handle(msg)
		}
	}
}

// InstanceName makes a unique DNS-SD instance label out of a display name.
func InstanceName(name string) string {
	label := strings.Join(strings.Fields(name), "-")
	if label == "" {
		label = "gestation"
	}
	return label + "-" + uuid.NewString()[:8]
}

func advertiseIP(bindHost string) net.IP {
	if ip := net.ParseIP(bindHost); ip != nil && !ip.IsUnspecified() {
		return ip
	}

	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
				continue
			}
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}
			for _, addr := range addrs {
				if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
					return ipnet.IP.To4()
				}
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}

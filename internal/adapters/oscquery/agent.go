package oscquery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"
)

var mdnsGroup = &net.UDPAddr{IP: net.IPv4(224, 0, 0, 251), Port: 5353}

// Conn is an IPv4 mDNS socket joined to the multicast group on every
// multicast-capable interface.
type Conn struct {
	udp  *net.UDPConn
	pc   *ipv4.PacketConn
	dest *net.UDPAddr
}

func Listen() (*Conn, error) {
	udp, err := net.ListenMulticastUDP("udp4", nil, mdnsGroup)
	if err != nil {
		return nil, fmt.Errorf("listen mdns: %w", err)
	}

	pc := ipv4.NewPacketConn(udp)
	if ifaces, err := net.Interfaces(); err == nil {
		for i := range ifaces {
			iface := ifaces[i]
			if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
				continue
			}
			// Already joined on the default interface.
			_ = pc.JoinGroup(&iface, mdnsGroup)
		}
	}
	_ = pc.SetMulticastLoopback(true)
	_ = pc.SetMulticastTTL(255)

	return &Conn{udp: udp, pc: pc, dest: mdnsGroup}, nil
}

func (c *Conn) Send(msg *dns.Msg) error {
	packed, err := msg.Pack()
	if err != nil {
		return fmt.Errorf("pack mdns message: %w", err)
	}
	if _, err := c.udp.WriteToUDP(packed, c.dest); err != nil {
		return fmt.Errorf("write mdns message: %w", err)
	}
	return nil
}

func (c *Conn) Read(buf []byte) (*dns.Msg, *net.UDPAddr, error) {
	n, from, err := c.udp.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(buf[:n]); err != nil {
		return nil, from, fmt.Errorf("unpack mdns message: %w", err)
	}
	return msg, from, nil
}

func (c *Conn) Close() error {
	return c.udp.Close()
}

// Agent answers queries for the services it advertises and records the
// services other hosts announce.
type Agent struct {
	conn   *Conn
	logger zerolog.Logger

	mu         sync.RWMutex
	advertised []Service
	found      map[string]Service
	listeners  []func(Service)
}

func NewAgent(conn *Conn, logger zerolog.Logger) *Agent {
	return &Agent{
		conn:   conn,
		logger: logger.With().Str("component", "mdns").Logger(),
		found:  map[string]Service{},
	}
}

// OnFound registers fn for every new or changed service. Listeners are
// called on the agent's read goroutine.
func (a *Agent) OnFound(fn func(Service)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Advertise adds services to the answered set and announces them once.
func (a *Agent) Advertise(services ...Service) error {
	a.mu.Lock()
	a.advertised = append(a.advertised, services...)
	a.mu.Unlock()

	if a.conn == nil {
		return nil
	}
	return a.conn.Send(BuildAnnouncement(services))
}

func (a *Agent) Query(types ...string) error {
	if a.conn == nil {
		return errors.New("mdns agent has no connection")
	}
	return a.conn.Send(BuildQuery(types...))
}

// Services lists found services of the given type, sorted by instance.
func (a *Agent) Services(typ string) []Service {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Service, 0, len(a.found))
	for _, svc := range a.found {
		if strings.EqualFold(svc.Type, typ) {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}

// Run reads the socket until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	if a.conn == nil {
		return errors.New("mdns agent has no connection")
	}

	stop := context.AfterFunc(ctx, func() { _ = a.conn.Close() })
	defer stop()

	buf := make([]byte, 65536)
	for {
		msg, from, err := a.conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			a.logger.Debug().Err(err).Msg("dropping mdns packet")
			continue
		}

		a.handle(msg, from)
	}
}

func (a *Agent) handle(msg *dns.Msg, from *net.UDPAddr) {
	if !msg.Response {
		a.mu.RLock()
		answer := BuildAnswer(msg, a.advertised)
		a.mu.RUnlock()
		if answer != nil && a.conn != nil {
			if err := a.conn.Send(answer); err != nil {
				a.logger.Debug().Err(err).Msg("answer mdns query")
			}
		}
		return
	}

	var ip net.IP
	if from != nil {
		ip = from.IP
	}
	for _, svc := range ParseServices(msg, ip) {
		a.record(svc)
	}
}

func (a *Agent) record(svc Service) {
	key := strings.ToLower(svc.FQDN())

	a.mu.Lock()
	for _, own := range a.advertised {
		if strings.EqualFold(own.FQDN(), svc.FQDN()) {
			a.mu.Unlock()
			return
		}
	}
	prev, seen := a.found[key]
	if seen && prev.Port == svc.Port && prev.Addr.Equal(svc.Addr) {
		a.mu.Unlock()
		return
	}
	a.found[key] = svc
	listeners := append([]func(Service){}, a.listeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(svc)
	}
}

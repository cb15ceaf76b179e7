package relay

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/observability"
	"github.com/rs/zerolog"
)

const (
	DefaultServiceName   = "Gestation OSC"
	DefaultClientPattern = "VRChat-Client-*"
	managedSendTimeout   = 5 * time.Second
)

type ManagedConfig struct {
	ServiceName   string
	ClientPattern string
	Capabilities  Capabilities
}

// Managed delegates discovery, registration and delivery to a Session. The
// only registry write it makes is the metadata endpoint of a found
// OSCQuery service.
type Managed struct {
	cfg       ManagedConfig
	session   Session
	endpoints *Endpoints
	handlers  *Handlers
	logger    zerolog.Logger

	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
}

var _ Transport = (*Managed)(nil)

func NewManaged(cfg ManagedConfig, session Session, endpoints *Endpoints, handlers *Handlers, logger zerolog.Logger) *Managed {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.ClientPattern == "" {
		cfg.ClientPattern = DefaultClientPattern
	}
	if len(cfg.Capabilities) == 0 {
		cfg.Capabilities = AvatarCapabilities()
	}
	if endpoints == nil {
		endpoints = NewEndpoints()
	}
	if handlers == nil {
		handlers = NewHandlers(logger)
	}

	return &Managed{
		cfg:       cfg,
		session:   session,
		endpoints: endpoints,
		handlers:  handlers,
		logger:    logger.With().Str("transport", ModeManaged).Logger(),
	}
}

func (m *Managed) LocalPort() (uint16, bool) {
	return m.session.LocalPort()
}

func (m *Managed) MetadataBaseURL() (string, bool) {
	return m.endpoints.MetadataBaseURL()
}

func (m *Managed) Run(ctx context.Context) error {
	m.session.OnConnect(m.onServiceEvent)

	m.handlers.Start(ctx)

	err := m.session.Register(ctx, m.cfg.ServiceName, m.cfg.Capabilities, func(msg domain.Message) {
		observability.RecordPacket(ModeManaged)
		m.handlers.Dispatch(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("%w: register %q: %w", ErrTransportFatal, m.cfg.ServiceName, err)
	}

	if port, ok := m.session.LocalPort(); ok {
		m.endpoints.SetLocalPort(port)
	}
	m.logger.Info().Str("service", m.cfg.ServiceName).Msg("registered with session")

	select {
	case <-ctx.Done():
	case failure := <-m.session.Failed():
		err = fmt.Errorf("%w: receive: %w", ErrTransportFatal, failure)
	}

	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	m.inflight.Wait()
	return err
}

// Send hands msg to the session on its own goroutine and returns nil at
// once. Failures are logged and counted, never retried.
func (m *Managed) Send(ctx context.Context, msg domain.Message) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		observability.RecordSend(msg.Address, false)
		m.logger.Debug().Str("address", msg.Address).Msg("dropping send after shutdown")
		return nil
	}
	m.inflight.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.inflight.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), managedSendTimeout)
		defer cancel()

		if err := m.session.Send(sendCtx, msg, m.cfg.ClientPattern); err != nil {
			observability.RecordSend(msg.Address, false)
			m.logger.Warn().Err(fmt.Errorf("%w: %w", ErrSendFailed, err)).Str("address", msg.Address).Msg("managed send failed")
			return
		}
		observability.RecordSend(msg.Address, true)
	}()
	return nil
}

// Wait blocks until every send started so far has finished.
func (m *Managed) Wait() {
	m.inflight.Wait()
}

func (m *Managed) onServiceEvent(event ServiceEvent) {
	switch event.Kind {
	case ServiceOSC:
		m.logger.Info().Str("name", event.Name).Str("endpoint", event.Endpoint.String()).Msg("found osc service")
	case ServiceOSCQuery:
		if ok, _ := path.Match(m.cfg.ClientPattern, event.Name); !ok {
			m.logger.Debug().Str("name", event.Name).Msg("ignoring oscquery service")
			return
		}
		m.endpoints.SetMetadata(event.Endpoint)
		m.logger.Info().Str("name", event.Name).Str("endpoint", event.Endpoint.String()).Msg("found oscquery service")
	}
}

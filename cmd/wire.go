package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/bnema/gestation-osc/internal/adapters/httpapi"
	"github.com/bnema/gestation-osc/internal/adapters/oscquery"
	"github.com/bnema/gestation-osc/internal/adapters/store/jsonfile"
	"github.com/bnema/gestation-osc/internal/adapters/store/sqlite"
	"github.com/bnema/gestation-osc/internal/application"
	"github.com/bnema/gestation-osc/internal/config"
	"github.com/bnema/gestation-osc/internal/metacache"
	"github.com/bnema/gestation-osc/internal/ports"
	"github.com/bnema/gestation-osc/internal/relay"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// daemon is the fully wired relay process.
type daemon struct {
	cfg    config.Config
	logger zerolog.Logger

	store       ports.SaveStore
	closeStore  func() error
	endpoints   *relay.Endpoints
	handlers    *relay.Handlers
	transport   relay.Transport
	cache       *metacache.Cache
	service     *application.Service
	broadcaster *application.Broadcaster
	api         *httpapi.Server

	// Direct mode discovery; nil unless enabled.
	agent      *oscquery.Agent
	discoverer *oscquery.Discoverer
	closeMDNS  func() error
}

func wireDaemon(cfg config.Config, logger zerolog.Logger) (*daemon, error) {
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	d := &daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		closeStore: closeStore,
		endpoints:  relay.NewEndpoints(),
		handlers:   relay.NewHandlers(logger),
	}

	if err := d.wireTransport(); err != nil {
		_ = d.close()
		return nil, err
	}

	executor := metacache.Executor(metacache.Inline{})
	if cfg.Metadata.Workers > 0 {
		executor = metacache.NewOffload(cfg.Metadata.Workers)
	}
	d.cache = metacache.New(
		metacache.Config{TTL: cfg.Metadata.TTL, ClearDebounce: cfg.Metadata.ClearDebounce},
		oscquery.NewClient(&http.Client{Timeout: cfg.Metadata.Timeout}, cfg.Metadata.Timeout, logger),
		d.metadataBaseURL,
		executor,
		ports.SystemClock{},
		logger.With().Str("component", "metacache").Logger(),
	)

	d.service = application.NewService(store, d.cache, d.transport, ports.SystemClock{}, logger.With().Str("component", "service").Logger())
	d.handlers.Add(d.service)
	d.broadcaster = application.NewBroadcaster(d.service, cfg.Broadcast.Interval, logger)

	if cfg.API.Enabled {
		d.api = httpapi.NewServer(httpapi.ServerConfig{Addr: cfg.API.Addr, CORSOrigins: cfg.API.CORSOrigins}, d.service, logger)
	}

	return d, nil
}

func (d *daemon) wireTransport() error {
	cfg := d.cfg

	switch cfg.Transport.Mode {
	case config.ModeManaged:
		agent, closeMDNS, err := openMDNS(d.logger)
		if err != nil {
			return err
		}
		d.closeMDNS = closeMDNS

		session := oscquery.NewSession(oscquery.SessionConfig{
			BindHost:      cfg.Transport.Host,
			QueryInterval: cfg.Discovery.Interval,
		}, agent, d.logger)
		d.transport = relay.NewManaged(relay.ManagedConfig{
			ServiceName:   cfg.Discovery.ServiceName,
			ClientPattern: cfg.Discovery.ClientPattern,
		}, session, d.endpoints, d.handlers, d.logger)
		return nil

	default:
		if cfg.Transport.Remote != "" {
			remote, err := relay.ParseEndpoint(cfg.Transport.Remote)
			if err != nil {
				return err
			}
			d.endpoints.SetRemote(remote)
		}

		direct, err := relay.NewDirect(relay.DirectConfig{
			Host:   cfg.Transport.Host,
			Port:   uint16(cfg.Transport.Port),
			Warmup: cfg.Transport.Warmup,
		}, d.endpoints, d.handlers, d.logger)
		if err != nil {
			return err
		}
		d.transport = direct

		if cfg.Discovery.Enabled {
			agent, closeMDNS, err := openMDNS(d.logger)
			if err != nil {
				_ = direct.Close()
				return err
			}
			d.agent = agent
			d.closeMDNS = closeMDNS
			d.discoverer = oscquery.NewDiscoverer(agent, d.endpoints, cfg.Discovery.ClientPattern, cfg.Discovery.Interval, d.logger)
		}
		return nil
	}
}

func (d *daemon) metadataBaseURL() (string, bool) {
	if d.cfg.Metadata.URL != "" {
		return d.cfg.Metadata.URL, true
	}
	return d.transport.MetadataBaseURL()
}

// run drives every component until ctx is done or one of them fails.
func (d *daemon) run(ctx context.Context) error {
	defer func() {
		if err := d.close(); err != nil {
			d.logger.Warn().Err(err).Msg("shutdown")
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.transport.Run(ctx) })
	g.Go(func() error { return d.broadcaster.Run(ctx) })
	if d.api != nil {
		g.Go(func() error { return d.api.Run(ctx) })
	}
	if d.discoverer != nil {
		g.Go(func() error { return d.agent.Run(ctx) })
		g.Go(func() error { return d.discoverer.Run(ctx) })
		g.Go(func() error { return d.advertiseDirect(ctx) })
	}

	return g.Wait()
}

// advertiseDirect publishes the direct socket over OSCQuery so the peer
// sends to it without manual setup.
func (d *daemon) advertiseDirect(ctx context.Context) error {
	port, ok := d.transport.LocalPort()
	if !ok {
		return nil
	}

	instance := oscquery.InstanceName(d.cfg.Discovery.ServiceName)
	ip := oscquery.AdvertiseIP(d.cfg.Transport.Host)
	if _, err := oscquery.Publish(ctx, d.agent, instance, d.cfg.Transport.Host, ip, port, relay.AvatarCapabilities(), d.logger); err != nil {
		d.logger.Warn().Err(err).Msg("advertise direct receiver")
	}
	return nil
}

func (d *daemon) close() error {
	var errs []error
	if d.closeMDNS != nil {
		if err := d.closeMDNS(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if direct, ok := d.transport.(*relay.Direct); ok {
		errs = append(errs, direct.Close())
	}
	if d.closeStore != nil {
		errs = append(errs, d.closeStore())
	}
	return errors.Join(errs...)
}

func openStore(cfg config.StoreConfig) (ports.SaveStore, func() error, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := jsonfile.NewStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open json store: %w", err)
		}
		return store, func() error { return nil }, nil
	}
}

// openMDNS is swapped out in tests that must not touch the multicast group.
var openMDNS = listenMDNS

func listenMDNS(logger zerolog.Logger) (*oscquery.Agent, func() error, error) {
	conn, err := oscquery.Listen()
	if err != nil {
		return nil, nil, err
	}
	return oscquery.NewAgent(conn, logger), conn.Close, nil
}

package oscquery

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/bnema/gestation-osc/internal/relay"
	"github.com/rs/zerolog"
)

// Discoverer fills the direct transport's registry from mDNS: the first
// matching OSC service becomes the remote control endpoint and the first
// matching OSCQuery service the metadata endpoint.
type Discoverer struct {
	agent     *Agent
	endpoints *relay.Endpoints
	pattern   string
	interval  time.Duration
	logger    zerolog.Logger

	mu           sync.Mutex
	haveRemote   bool
	haveMetadata bool
	done         chan struct{}
}

func NewDiscoverer(agent *Agent, endpoints *relay.Endpoints, pattern string, interval time.Duration, logger zerolog.Logger) *Discoverer {
	if pattern == "" {
		pattern = relay.DefaultClientPattern
	}
	if interval <= 0 {
		interval = DefaultQueryInterval
	}

	d := &Discoverer{
		agent:     agent,
		endpoints: endpoints,
		pattern:   pattern,
		interval:  interval,
		logger:    logger.With().Str("component", "discovery").Logger(),
		done:      make(chan struct{}),
	}
	agent.OnFound(d.onFound)
	return d
}

// Run queries until both endpoints are known or ctx is done. Later
// announcements still update the registry through the agent.
func (d *Discoverer) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.agent.Query(TypeOSC, TypeOSCQuery); err != nil {
			d.logger.Debug().Err(err).Msg("mdns query failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-d.done:
			d.logger.Info().Msg("discovery complete")
			return nil
		case <-ticker.C:
			d.logger.Info().Dur("retry_in", d.interval).Msg("peer services not found yet, retrying")
		}
	}
}

func (d *Discoverer) Found() (remote, metadata bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.haveRemote, d.haveMetadata
}

func (d *Discoverer) onFound(svc Service) {
	if ok, _ := path.Match(d.pattern, svc.Instance); !ok {
		return
	}
	kind, ok := svc.Kind()
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch kind {
	case relay.ServiceOSC:
		d.endpoints.SetRemote(svc.Endpoint())
		d.haveRemote = true
	case relay.ServiceOSCQuery:
		d.endpoints.SetMetadata(svc.Endpoint())
		d.haveMetadata = true
	}
	d.logger.Info().Str("instance", svc.Instance).Stringer("kind", kind).Str("endpoint", svc.Endpoint().String()).Msg("found peer service")

	if d.haveRemote && d.haveMetadata {
		select {
		case <-d.done:
		default:
			close(d.done)
		}
	}
}

package application

import (
	"context"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/rs/zerolog"
)

const DefaultBroadcastInterval = 5 * time.Second

// Broadcaster pushes the gestation progress to the peer on a fixed interval
// while an avatar with children is active.
type Broadcaster struct {
	service  *Service
	interval time.Duration
	logger   zerolog.Logger
}

func NewBroadcaster(service *Service, interval time.Duration, logger zerolog.Logger) *Broadcaster {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	return &Broadcaster{service: service, interval: interval, logger: logger}
}

// Run ticks immediately and then every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		b.Tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick sends one progress update and reports whether it did.
func (b *Broadcaster) Tick(ctx context.Context) bool {
	snapshot := b.service.Snapshot(ctx)
	if !snapshot.Active() || snapshot.Record == nil || snapshot.Record.ChildCount == 0 {
		return false
	}

	b.service.send(ctx, domain.NewMessage(AddressPregnancySave, snapshot.Progress))
	b.logger.Debug().Float64("progress", snapshot.Progress).Msg("broadcast progress")
	return true
}

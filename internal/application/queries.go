package application

import (
	"context"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
)

// Snapshot is a consistent read of the active state plus values derived
// from it at At.
type Snapshot struct {
	Phase               Phase
	AvatarID            domain.AvatarID
	Record              *domain.ChildRecord
	Progress            float64
	EstimatedCompletion *time.Time
	Remaining           time.Duration
	At                  time.Time
}

func (s Snapshot) Active() bool {
	return s.Phase == PhaseActive
}

func (s *Service) Snapshot(_ context.Context) Snapshot {
	now := s.clock.Now()

	id, record, ok := s.state.load()
	if !ok {
		return Snapshot{Phase: PhaseInactive, At: now}
	}

	snapshot := Snapshot{
		Phase:     PhaseActive,
		AvatarID:  id,
		Record:    &record,
		Progress:  record.Progress(now),
		Remaining: record.Remaining(now),
		At:        now,
	}
	if record.ConceptionTime != nil {
		completion := record.EstimatedCompletion(now)
		snapshot.EstimatedCompletion = &completion
	}
	return snapshot
}

package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/observability"
	"github.com/bnema/gestation-osc/internal/ports"
	"github.com/rs/zerolog"
)

// Service is the dispatch logic: it detects avatars carrying the gestation
// system, applies inbound parameter changes and user edits, and keeps the
// save store and the peer in sync.
type Service struct {
	store    ports.SaveStore
	metadata ports.AvatarMetadata
	sender   ports.Sender
	clock    ports.Clock
	logger   zerolog.Logger

	state ActiveState
	// persistMu serializes the whole-store read-modify-write.
	persistMu sync.Mutex
}

func NewService(store ports.SaveStore, metadata ports.AvatarMetadata, sender ports.Sender, clock ports.Clock, logger zerolog.Logger) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		store:    store,
		metadata: metadata,
		sender:   sender,
		clock:    clock,
		logger:   logger,
	}
}

// Start runs the first avatar check once the transport is ready.
func (s *Service) Start(ctx context.Context) {
	if err := s.RecheckAvatar(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial avatar check")
	}
}

// Handle applies one inbound message. Parameter messages are ignored while
// inactive; unparsable arguments are logged and dropped.
func (s *Service) Handle(ctx context.Context, msg domain.Message) {
	switch msg.Address {
	case AddressChildcountIn:
		count, ok := msg.IntArg(0)
		if !ok {
			s.ignore(msg)
			return
		}
		s.applyInbound(ctx, msg, func(record *domain.ChildRecord) (bool, error) {
			return record.ObserveChildCount(count, s.clock.Now()), nil
		})
	case AddressGestationTime:
		value, ok := msg.FloatArg(0)
		if !ok {
			s.ignore(msg)
			return
		}
		s.applyInbound(ctx, msg, func(record *domain.ChildRecord) (bool, error) {
			if err := record.SetGestationTime(value); err != nil {
				s.logger.Debug().Float64("value", value).Msg("ignoring non-positive gestation time")
				return false, nil
			}
			return true, nil
		})
	case AddressGestation:
		raw, ok := msg.IntArg(0)
		if !ok {
			s.ignore(msg)
			return
		}
		s.applyInbound(ctx, msg, func(record *domain.ChildRecord) (bool, error) {
			unit := domain.UnitFromWire(raw)
			changed := record.Unit != unit
			record.Unit = unit
			return changed, nil
		})
	case AddressAvatarChange:
		if err := s.RecheckAvatar(ctx); err != nil {
			s.logger.Error().Err(err).Msg("avatar change")
		}
	}
}

func (s *Service) applyInbound(
	ctx context.Context,
	msg domain.Message,
	mutate func(*domain.ChildRecord) (bool, error),
) {
	s.persistMu.Lock()
	id, record, _, err := s.state.update(mutate)
	if errors.Is(err, ErrInactive) {
		s.persistMu.Unlock()
		return
	}
	persistErr := s.persistLocked(ctx, id, record)
	s.persistMu.Unlock()

	if persistErr != nil {
		s.logger.Error().Err(persistErr).Str("address", msg.Address).Msg("keeping in-memory state")
	}
}

// RecheckAvatar re-runs avatar detection: it clears the avatar cache,
// inspects the parameter tree and activates the avatar's record when the
// gestation system is present.
func (s *Service) RecheckAvatar(ctx context.Context) error {
	s.metadata.ClearAvatar()

	tree := s.metadata.ParameterTree(ctx)
	if !tree.Has(PregnancySavePointer) {
		s.state.deactivate()
		s.logger.Info().Msg("gestation system not found on avatar")
		return nil
	}

	id, ok := s.metadata.AvatarID(ctx)
	if !ok {
		s.state.deactivate()
		s.logger.Warn().Msg("gestation system found but avatar id is unknown")
		return nil
	}

	s.persistMu.Lock()
	data, err := s.store.Load(ctx)
	if err != nil {
		s.persistMu.Unlock()
		s.state.deactivate()
		return fmt.Errorf("%w: load: %w", ErrPersist, err)
	}

	record, created := data.RecordOrDefault(id)
	s.state.activate(id, record)
	storeErr := s.store.Store(ctx, data)
	observability.RecordStoreWrite(storeErr == nil)
	s.persistMu.Unlock()

	s.logger.Info().
		Str("avatar_id", string(id)).
		Bool("new_record", created).
		Uint8("child_count", record.ChildCount).
		Msg("gestation system found on avatar")

	for _, out := range entryMessages(record) {
		s.send(ctx, out)
	}

	if storeErr != nil {
		return fmt.Errorf("%w: %w", ErrPersist, storeErr)
	}
	return nil
}

func entryMessages(record domain.ChildRecord) []domain.Message {
	messages := []domain.Message{
		domain.NewMessage(AddressGestationTime, record.GestationTime),
		domain.NewMessage(AddressGestation, int(record.Unit)),
	}
	if record.ChildCount > 0 {
		messages = append(messages,
			domain.NewMessage(AddressChildCountOut, int(record.ChildCount)),
			domain.NewMessage(AddressIsPregnant, true),
		)
	}
	return messages
}

// SaveAndMutate applies a user edit to the active record, persists it and
// pushes the changed values to the peer. A persistence failure returns an
// error wrapping ErrPersist; the edit stays applied in memory.
func (s *Service) SaveAndMutate(ctx context.Context, mutation Mutation) (Snapshot, error) {
	now := s.clock.Now()

	s.persistMu.Lock()
	id, record, changed, err := s.state.update(func(record *domain.ChildRecord) (bool, error) {
		return mutation.apply(record, now)
	})
	if err != nil {
		s.persistMu.Unlock()
		return s.Snapshot(ctx), fmt.Errorf("apply %s: %w", mutation.Kind, err)
	}
	persistErr := s.persistLocked(ctx, id, record)
	s.persistMu.Unlock()

	if changed {
		for _, out := range mutation.resync(record) {
			s.send(ctx, out)
		}
	}

	if persistErr != nil {
		return s.Snapshot(ctx), persistErr
	}
	return s.Snapshot(ctx), nil
}

// persistLocked writes record under id. persistMu must be held.
func (s *Service) persistLocked(ctx context.Context, id domain.AvatarID, record domain.ChildRecord) error {
	data, err := s.store.Load(ctx)
	if err != nil {
		observability.RecordStoreWrite(false)
		return fmt.Errorf("%w: load: %w", ErrPersist, err)
	}

	data.Put(id, record)
	if err := s.store.Store(ctx, data); err != nil {
		observability.RecordStoreWrite(false)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	observability.RecordStoreWrite(true)
	return nil
}

func (s *Service) send(ctx context.Context, msg domain.Message) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Str("address", msg.Address).Msg("send to peer")
	}
}

func (s *Service) ignore(msg domain.Message) {
	s.logger.Warn().Str("address", msg.Address).Interface("args", msg.Args).Msg("ignoring message with unusable argument")
}

package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/ports/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterTickSendsProgressWhileExpecting(t *testing.T) {
	sender := mocks.NewMockSender(t)
	service := NewService(newMemStore(), nil, sender, fixedClock{now: testNow}, zerolog.Nop())
	broadcaster := NewBroadcaster(service, time.Second, zerolog.Nop())

	assert.False(t, broadcaster.Tick(context.Background()), "inactive")

	service.state.activate("avtr_1", domain.DefaultChildRecord())
	assert.False(t, broadcaster.Tick(context.Background()), "no children")

	conceived := testNow.Add(-6 * time.Hour)
	service.state.activate("avtr_1", domain.ChildRecord{ConceptionTime: &conceived, GestationTime: 8, Unit: domain.UnitHours, ChildCount: 1})
	sender.EXPECT().Send(mockAnyContext(), domain.NewMessage(AddressPregnancySave, 0.75)).Return(nil).Once()

	assert.True(t, broadcaster.Tick(context.Background()))
}

func TestBroadcasterRunTicksUntilCanceled(t *testing.T) {
	sender := mocks.NewMockSender(t)
	service := NewService(newMemStore(), nil, sender, fixedClock{now: testNow}, zerolog.Nop())
	service.state.activate("avtr_1", domain.ChildRecord{ConceptionTime: &testNow, GestationTime: 8, Unit: domain.UnitHours, ChildCount: 2})

	ticks := make(chan struct{}, 8)
	sender.EXPECT().Send(mockAnyContext(), mock.Anything).RunAndReturn(func(context.Context, domain.Message) error {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewBroadcaster(service, 10*time.Millisecond, zerolog.Nop()).Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("broadcaster did not tick")
		}
	}

	cancel()
	require.NoError(t, <-done)
}

func TestNewBroadcasterDefaultsInterval(t *testing.T) {
	broadcaster := NewBroadcaster(nil, 0, zerolog.Nop())
	assert.Equal(t, DefaultBroadcastInterval, broadcaster.interval)
}

package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/ports/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

func mockAnyContext() any {
	return mock.MatchedBy(func(context.Context) bool { return true })
}

func treeWithGestation(t *testing.T) domain.ParameterTree {
	t.Helper()
	tree, err := domain.ParseParameterTree([]byte(`{"CONTENTS":{"PregnancySave":{"TYPE":"f"},"Childcount":{"TYPE":"i"}}}`))
	require.NoError(t, err)
	return tree
}

func treeWithoutGestation(t *testing.T) domain.ParameterTree {
	t.Helper()
	tree, err := domain.ParseParameterTree([]byte(`{"CONTENTS":{"VelocityX":{"TYPE":"f"}}}`))
	require.NoError(t, err)
	return tree
}

type recordedSends struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (r *recordedSends) capture(_ context.Context, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordedSends) all() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.msgs...)
}

func TestRecheckAvatarWithoutGestationSystemGoesInactive(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	metadata := mocks.NewMockAvatarMetadata(t)
	sender := mocks.NewMockSender(t)
	service := NewService(store, metadata, sender, fixedClock{now: testNow}, zerolog.Nop())
	service.state.activate("avtr_old", domain.DefaultChildRecord())

	metadata.EXPECT().ClearAvatar().Return()
	metadata.EXPECT().ParameterTree(mockAnyContext()).Return(treeWithoutGestation(t))

	service.Handle(context.Background(), domain.NewMessage(AddressAvatarChange, "avtr_new"))

	snapshot := service.Snapshot(context.Background())
	assert.Equal(t, PhaseInactive, snapshot.Phase)
	assert.Nil(t, snapshot.Record)
	assert.Empty(t, snapshot.AvatarID)
}

func TestRecheckAvatarActivatesStoredRecordAndSendsEntryMessages(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	metadata := mocks.NewMockAvatarMetadata(t)
	sender := mocks.NewMockSender(t)
	service := NewService(store, metadata, sender, fixedClock{now: testNow}, zerolog.Nop())

	conceived := testNow.Add(-2 * time.Hour)
	stored := domain.ChildRecord{ConceptionTime: &conceived, GestationTime: 8, Unit: domain.UnitHours, ChildCount: 2}
	data := domain.NewSaveData()
	data.Put("avtr_1", stored)

	metadata.EXPECT().ClearAvatar().Return()
	metadata.EXPECT().ParameterTree(mockAnyContext()).Return(treeWithGestation(t))
	metadata.EXPECT().AvatarID(mockAnyContext()).Return(domain.AvatarID("avtr_1"), true)
	store.EXPECT().Load(mockAnyContext()).Return(data, nil)
	store.EXPECT().Store(mockAnyContext(), data).Return(nil)

	var sent recordedSends
	sender.EXPECT().Send(mockAnyContext(), mock.Anything).RunAndReturn(sent.capture).Times(4)

	service.Handle(context.Background(), domain.NewMessage(AddressAvatarChange, "avtr_1"))

	assert.Equal(t, []domain.Message{
		domain.NewMessage(AddressGestationTime, 8.0),
		domain.NewMessage(AddressGestation, 0),
		domain.NewMessage(AddressChildCountOut, 2),
		domain.NewMessage(AddressIsPregnant, true),
	}, sent.all())

	snapshot := service.Snapshot(context.Background())
	require.True(t, snapshot.Active())
	assert.Equal(t, domain.AvatarID("avtr_1"), snapshot.AvatarID)
	assert.Equal(t, stored, *snapshot.Record)
	assert.InDelta(t, 0.25, snapshot.Progress, 1e-9)
	require.NotNil(t, snapshot.EstimatedCompletion)
	assert.Equal(t, conceived.Add(8*time.Hour), *snapshot.EstimatedCompletion)
}

func TestRecheckAvatarCreatesDefaultRecordForNewAvatar(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	metadata := mocks.NewMockAvatarMetadata(t)
	sender := mocks.NewMockSender(t)
	service := NewService(store, metadata, sender, fixedClock{now: testNow}, zerolog.Nop())

	metadata.EXPECT().ClearAvatar().Return()
	metadata.EXPECT().ParameterTree(mockAnyContext()).Return(treeWithGestation(t))
	metadata.EXPECT().AvatarID(mockAnyContext()).Return(domain.AvatarID("avtr_new"), true)
	store.EXPECT().Load(mockAnyContext()).Return(domain.NewSaveData(), nil)
	store.EXPECT().Store(mockAnyContext(), mock.MatchedBy(func(data domain.SaveData) bool {
		record, ok := data.Record("avtr_new")
		return ok && record == domain.DefaultChildRecord()
	})).Return(nil)

	var sent recordedSends
	sender.EXPECT().Send(mockAnyContext(), mock.Anything).RunAndReturn(sent.capture).Times(2)

	require.NoError(t, service.RecheckAvatar(context.Background()))

	assert.Equal(t, []domain.Message{
		domain.NewMessage(AddressGestationTime, 8.0),
		domain.NewMessage(AddressGestation, 0),
	}, sent.all())
}

func TestRecheckAvatarWithUnknownAvatarIDGoesInactive(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	metadata := mocks.NewMockAvatarMetadata(t)
	service := NewService(store, metadata, mocks.NewMockSender(t), fixedClock{now: testNow}, zerolog.Nop())

	metadata.EXPECT().ClearAvatar().Return()
	metadata.EXPECT().ParameterTree(mockAnyContext()).Return(treeWithGestation(t))
	metadata.EXPECT().AvatarID(mockAnyContext()).Return(domain.AvatarID(""), false)

	require.NoError(t, service.RecheckAvatar(context.Background()))
	assert.Equal(t, PhaseInactive, service.state.Phase())
}

func TestRecheckAvatarLoadFailureIsPersistError(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	metadata := mocks.NewMockAvatarMetadata(t)
	service := NewService(store, metadata, mocks.NewMockSender(t), fixedClock{now: testNow}, zerolog.Nop())

	metadata.EXPECT().ClearAvatar().Return()
	metadata.EXPECT().ParameterTree(mockAnyContext()).Return(treeWithGestation(t))
	metadata.EXPECT().AvatarID(mockAnyContext()).Return(domain.AvatarID("avtr_1"), true)
	store.EXPECT().Load(mockAnyContext()).Return(domain.SaveData{}, errors.New("disk gone"))

	err := service.RecheckAvatar(context.Background())
	require.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, PhaseInactive, service.state.Phase())
}

func TestChildcountIncreaseStampsConceptionAndPersists(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	sender := mocks.NewMockSender(t)
	service := NewService(store, mocks.NewMockAvatarMetadata(t), sender, fixedClock{now: testNow}, zerolog.Nop())

	previous := domain.ChildRecord{GestationTime: 8, Unit: domain.UnitHours, ChildCount: 2}
	service.state.activate("avtr_1", previous)

	data := domain.NewSaveData()
	data.Put("avtr_1", previous)
	store.EXPECT().Load(mockAnyContext()).Return(data, nil)

	var persisted domain.SaveData
	store.EXPECT().Store(mockAnyContext(), mock.Anything).RunAndReturn(func(_ context.Context, saved domain.SaveData) error {
		persisted = saved
		return nil
	})

	service.Handle(context.Background(), domain.NewMessage(AddressChildcountIn, int32(3)))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	snapshot := service.Snapshot(context.Background())
	require.NotNil(t, snapshot.Record)
	assert.Equal(t, uint8(3), snapshot.Record.ChildCount)
	require.NotNil(t, snapshot.Record.ConceptionTime)
	assert.Equal(t, testNow, *snapshot.Record.ConceptionTime)

	saved, ok := persisted.Record("avtr_1")
	require.True(t, ok)
	assert.Equal(t, *snapshot.Record, saved)
}

func TestChildcountDecreaseIsIgnoredButPersisted(t *testing.T) {
	store := newMemStore()
	conceived := testNow.Add(-time.Hour)
	record := domain.ChildRecord{ConceptionTime: &conceived, GestationTime: 8, Unit: domain.UnitHours, ChildCount: 3}
	service := NewService(store, nil, mocks.NewMockSender(t), fixedClock{now: testNow}, zerolog.Nop())
	service.state.activate("avtr_1", record)

	service.Handle(context.Background(), domain.NewMessage(AddressChildcountIn, int32(1)))

	snapshot := service.Snapshot(context.Background())
	assert.Equal(t, record, *snapshot.Record)
	assert.Equal(t, 1, store.writes())
}

func TestParameterMessagesIgnoredWhileInactive(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	service := NewService(store, mocks.NewMockAvatarMetadata(t), mocks.NewMockSender(t), fixedClock{now: testNow}, zerolog.Nop())

	service.Handle(context.Background(), domain.NewMessage(AddressChildcountIn, int32(3)))
	service.Handle(context.Background(), domain.NewMessage(AddressGestationTime, float32(4)))
	service.Handle(context.Background(), domain.NewMessage(AddressGestation, int32(2)))
	service.Handle(context.Background(), domain.NewMessage("/avatar/parameters/Unrelated", int32(1)))

	assert.False(t, service.Snapshot(context.Background()).Active())
}

func TestGestationMessagesOverwriteDurationAndUnit(t *testing.T) {
	tests := []struct {
		name     string
		msg      domain.Message
		wantTime float64
		wantUnit domain.GestationUnit
	}{
		{name: "duration", msg: domain.NewMessage(AddressGestationTime, float32(12.5)), wantTime: 12.5, wantUnit: domain.UnitHours},
		{name: "non-positive duration", msg: domain.NewMessage(AddressGestationTime, float32(-1)), wantTime: 8, wantUnit: domain.UnitHours},
		{name: "integer duration", msg: domain.NewMessage(AddressGestationTime, int32(3)), wantTime: 3, wantUnit: domain.UnitHours},
		{name: "unit", msg: domain.NewMessage(AddressGestation, int32(2)), wantTime: 8, wantUnit: domain.UnitWeeks},
		{name: "minutes unit", msg: domain.NewMessage(AddressGestation, int32(4)), wantTime: 8, wantUnit: domain.UnitMinutes},
		{name: "invalid unit", msg: domain.NewMessage(AddressGestation, int32(9)), wantTime: 8, wantUnit: domain.UnitHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			service := NewService(store, nil, mocks.NewMockSender(t), fixedClock{now: testNow}, zerolog.Nop())
			start := domain.DefaultChildRecord()
			if tt.msg.Address == AddressGestation {
				start.Unit = domain.UnitDays
			}
			service.state.activate("avtr_1", start)

			service.Handle(context.Background(), tt.msg)

			snapshot := service.Snapshot(context.Background())
			assert.Equal(t, tt.wantTime, snapshot.Record.GestationTime)
			assert.Equal(t, tt.wantUnit, snapshot.Record.Unit)
			assert.Equal(t, 1, store.writes())

			saved, ok := store.current().Record("avtr_1")
			require.True(t, ok)
			assert.Equal(t, *snapshot.Record, saved)
		})
	}
}

func TestUnparsableArgumentIsIgnored(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	service := NewService(store, nil, mocks.NewMockSender(t), fixedClock{now: testNow}, zerolog.Nop())
	service.state.activate("avtr_1", domain.DefaultChildRecord())

	service.Handle(context.Background(), domain.NewMessage(AddressChildcountIn, "three"))
	service.Handle(context.Background(), domain.NewMessage(AddressGestationTime))

	assert.Equal(t, domain.DefaultChildRecord(), *service.Snapshot(context.Background()).Record)
}

func TestInboundPersistFailureKeepsInMemoryState(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	sender := mocks.NewMockSender(t)
	service := NewService(store, nil, sender, fixedClock{now: testNow}, zerolog.Nop())
	service.state.activate("avtr_1", domain.DefaultChildRecord())

	store.EXPECT().Load(mockAnyContext()).Return(domain.SaveData{}, errors.New("read-only filesystem"))

	service.Handle(context.Background(), domain.NewMessage(AddressChildcountIn, int32(1)))

	assert.Equal(t, uint8(1), service.Snapshot(context.Background()).Record.ChildCount)
}

func TestSaveAndMutateAddAndRemoveChild(t *testing.T) {
	store := newMemStore()
	sender := mocks.NewMockSender(t)
	service := NewService(store, nil, sender, fixedClock{now: testNow}, zerolog.Nop())
	service.state.activate("avtr_1", domain.DefaultChildRecord())

	var sent recordedSends
	sender.EXPECT().Send(mockAnyContext(), mock.Anything).RunAndReturn(sent.capture)

	snapshot, err := service.SaveAndMutate(context.Background(), AddChild())
	require.NoError(t, err)
	assert.Equal(t, uint8(1), snapshot.Record.ChildCount)
	assert.Equal(t, testNow, *snapshot.Record.ConceptionTime)

	snapshot, err = service.SaveAndMutate(context.Background(), RemoveChild())
	require.NoError(t, err)
	assert.Zero(t, snapshot.Record.ChildCount)
	assert.Nil(t, snapshot.Record.ConceptionTime)

	assert.Equal(t, []domain.Message{
		domain.NewMessage(AddressChildCountOut, 1),
		domain.NewMessage(AddressIsPregnant, true),
		domain.NewMessage(AddressChildCountOut, 0),
		domain.NewMessage(AddressIsPregnant, false),
	}, sent.all())
	assert.Equal(t, 2, store.writes())

	saved, ok := store.current().Record("avtr_1")
	require.True(t, ok)
	assert.Equal(t, domain.DefaultChildRecord(), saved)
}

func TestSaveAndMutateUnitChangePreservesTotal(t *testing.T) {
	store := newMemStore()
	sender := mocks.NewMockSender(t)
	service := NewService(store, nil, sender, fixedClock{now: testNow}, zerolog.Nop())
	service.state.activate("avtr_1", domain.ChildRecord{GestationTime: 48, Unit: domain.UnitHours})

	var sent recordedSends
	sender.EXPECT().Send(mockAnyContext(), mock.Anything).RunAndReturn(sent.capture)

	snapshot, err := service.SaveAndMutate(context.Background(), SetGestationUnit(domain.UnitDays))
	require.NoError(t, err)
	assert.Equal(t, domain.UnitDays, snapshot.Record.Unit)
	assert.InDelta(t, 2.0, snapshot.Record.GestationTime, 1e-9)
	assert.Equal(t, []domain.Message{
		domain.NewMessage(AddressGestationTime, 2.0),
		domain.NewMessage(AddressGestation, int(domain.UnitDays)),
	}, sent.all())
}

func TestSaveAndMutateRejectsInvalidInput(t *testing.T) {
	service := NewService(newMemStore(), nil, mocks.NewMockSender(t), fixedClock{now: testNow}, zerolog.Nop())

	_, err := service.SaveAndMutate(context.Background(), AddChild())
	require.ErrorIs(t, err, ErrInactive)

	service.state.activate("avtr_1", domain.DefaultChildRecord())

	_, err = service.SaveAndMutate(context.Background(), SetGestationTime(0))
	require.ErrorIs(t, err, domain.ErrInvalidGestationTime)

	_, err = service.SaveAndMutate(context.Background(), Mutation{Kind: "explode"})
	require.ErrorIs(t, err, ErrUnknownMutation)
}

func TestSaveAndMutatePersistFailureKeepsEdit(t *testing.T) {
	store := mocks.NewMockSaveStore(t)
	sender := mocks.NewMockSender(t)
	service := NewService(store, nil, sender, fixedClock{now: testNow}, zerolog.Nop())
	service.state.activate("avtr_1", domain.ChildRecord{GestationTime: 8, Unit: domain.UnitHours, ChildCount: 1, ConceptionTime: &testNow})

	store.EXPECT().Load(mockAnyContext()).Return(domain.NewSaveData(), nil)
	store.EXPECT().Store(mockAnyContext(), mock.Anything).Return(errors.New("disk full"))
	sender.EXPECT().Send(mockAnyContext(), domain.NewMessage(AddressGestationTime, 10.0)).Return(nil)

	snapshot, err := service.SaveAndMutate(context.Background(), SetGestationTime(10))
	require.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 10.0, snapshot.Record.GestationTime)
}

func TestResetConceptionRequiresChildren(t *testing.T) {
	later := testNow.Add(time.Hour)
	store := newMemStore()
	service := NewService(store, nil, mocks.NewMockSender(t), fixedClock{now: later}, zerolog.Nop())
	service.state.activate("avtr_1", domain.ChildRecord{GestationTime: 8, Unit: domain.UnitHours, ChildCount: 1, ConceptionTime: &testNow})

	snapshot, err := service.SaveAndMutate(context.Background(), ResetConception())
	require.NoError(t, err)
	assert.Equal(t, later, *snapshot.Record.ConceptionTime)
}

func TestParseMutationKind(t *testing.T) {
	kind, err := ParseMutationKind(" Add_Child ")
	require.NoError(t, err)
	assert.Equal(t, MutationAddChild, kind)

	_, err = ParseMutationKind("teleport")
	require.ErrorIs(t, err, ErrUnknownMutation)
}

func TestConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	store := newMemStore()
	sender := mocks.NewMockSender(t)
	sender.EXPECT().Send(mockAnyContext(), mock.Anything).Return(nil).Maybe()
	service := NewService(store, nil, sender, fixedClock{now: testNow}, zerolog.Nop())
	service.state.activate("avtr_1", domain.DefaultChildRecord())

	var wg sync.WaitGroup
	for i := 0; i < domain.MaxChildCount; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = service.SaveAndMutate(context.Background(), AddChild())
		}()
		go func(i int) {
			defer wg.Done()
			service.Handle(context.Background(), domain.NewMessage(AddressGestationTime, float32(i+1)))
		}(i)
	}
	wg.Wait()

	snapshot := service.Snapshot(context.Background())
	saved, ok := store.current().Record("avtr_1")
	require.True(t, ok)
	assert.Equal(t, *snapshot.Record, saved)
	assert.Equal(t, uint8(domain.MaxChildCount), saved.ChildCount)
}

type memStore struct {
	mu     sync.Mutex
	data   domain.SaveData
	stored int
}

func newMemStore() *memStore {
	return &memStore{data: domain.NewSaveData()}
}

func (m *memStore) Load(context.Context) (domain.SaveData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSaveData(m.data), nil
}

func (m *memStore) Store(_ context.Context, data domain.SaveData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = cloneSaveData(data)
	m.stored++
	return nil
}

func (m *memStore) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored
}

func (m *memStore) current() domain.SaveData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSaveData(m.data)
}

func cloneSaveData(data domain.SaveData) domain.SaveData {
	out := domain.NewSaveData()
	for id, record := range data.Avatars {
		out.Put(id, record)
	}
	return out
}

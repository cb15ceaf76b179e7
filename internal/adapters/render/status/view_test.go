package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/gestation-osc/internal/application"
	"github.com/bnema/gestation-osc/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pregnantSnapshot() application.Snapshot {
	conceived := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completion := conceived.Add(8 * time.Hour)
	return application.Snapshot{
		Phase:    application.PhaseActive,
		AvatarID: "avtr_1",
		Record: &domain.ChildRecord{
			ConceptionTime: &conceived,
			GestationTime:  8,
			Unit:           domain.UnitHours,
			ChildCount:     2,
		},
		Progress:            0.25,
		EstimatedCompletion: &completion,
		Remaining:           6*time.Hour + 30*time.Minute,
		At:                  conceived.Add(2 * time.Hour),
	}
}

func TestRenderInactive(t *testing.T) {
	output, err := Render(application.Snapshot{Phase: application.PhaseInactive}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "status: inactive")
	assert.Contains(t, output, "No gestation system")
	assert.Contains(t, output, "gestation recheck")
	assert.NotContains(t, output, "progress:")
}

func TestRenderPregnant(t *testing.T) {
	output, err := Render(pregnantSnapshot(), RenderOptions{Location: time.UTC})

	require.NoError(t, err)
	assert.Contains(t, output, "status: active")
	assert.Contains(t, output, "Avatar: avtr_1")
	assert.Contains(t, output, "2 / 12")
	assert.Contains(t, output, "8 hours")
	assert.Contains(t, output, "25%")
	assert.Contains(t, output, "6 hours, 30 minutes")
	assert.Contains(t, output, "Sun 01 Mar 2026 10:00")
	assert.Contains(t, output, "Sun 01 Mar 2026 18:00")
	assert.NotContains(t, output, "Gestation complete.")
}

func TestRenderActiveWithoutChildren(t *testing.T) {
	snapshot := application.Snapshot{
		Phase:    application.PhaseActive,
		AvatarID: "avtr_2",
		Record:   &domain.ChildRecord{GestationTime: 1.5, Unit: domain.UnitDays},
	}

	output, err := Render(snapshot, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "1.5 days")
	assert.Contains(t, output, "Not pregnant.")
	assert.NotContains(t, output, "remaining:")
	assert.NotContains(t, output, "Gestation complete.")
}

func TestCardIgnoresUnrelatedMessages(t *testing.T) {
	c := card{snapshot: pregnantSnapshot(), styles: newStyles()}

	next, cmd := c.Update(tea.WindowSizeMsg{Width: 80})
	assert.Nil(t, cmd)
	assert.False(t, next.(card).drawn)

	next, cmd = next.Update(c.Init()())
	require.NotNil(t, cmd)
	assert.True(t, next.(card).drawn)
	assert.Contains(t, next.View(), "Avatar: avtr_1")
}

func TestRenderDueNow(t *testing.T) {
	snapshot := pregnantSnapshot()
	snapshot.Progress = 1
	snapshot.Remaining = 0

	output, err := Render(snapshot, RenderOptions{Location: time.UTC})

	require.NoError(t, err)
	assert.Contains(t, output, "100%")
	assert.Contains(t, output, "due now")
	assert.Contains(t, output, "Gestation complete.")
}

func TestRenderProgressBar(t *testing.T) {
	s := newStyles()

	half := renderProgressBar(0.5, 10, s)
	assert.Contains(t, half, "=====")
	assert.Contains(t, half, "-----")
	assert.NotContains(t, half, "======")

	assert.NotContains(t, renderProgressBar(-1, 10, s), "=")
	assert.NotContains(t, renderProgressBar(2, 10, s), "-")
	assert.Empty(t, renderProgressBar(0.5, 0, s))
}

type fakeController struct {
	snapshot  application.Snapshot
	err       error
	mutations []application.Mutation
	rechecks  int
}

func (f *fakeController) State(context.Context) (application.Snapshot, error) {
	return f.snapshot, f.err
}

func (f *fakeController) Recheck(context.Context) (application.Snapshot, error) {
	f.rechecks++
	return f.snapshot, f.err
}

func (f *fakeController) Mutate(_ context.Context, m application.Mutation) (application.Snapshot, error) {
	f.mutations = append(f.mutations, m)
	return f.snapshot, f.err
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(t *testing.T, m Monitor, r rune) Monitor {
	t.Helper()
	next, cmd := m.Update(runeKey(r))
	monitor := next.(Monitor)
	if cmd == nil {
		return monitor
	}
	next, _ = monitor.Update(cmd())
	return next.(Monitor)
}

func loadedMonitor(t *testing.T, ctrl *fakeController) Monitor {
	t.Helper()
	m := NewMonitor(ctrl, time.Hour, RenderOptions{Location: time.UTC})
	next, _ := m.Update(m.Init()())
	return next.(Monitor)
}

func TestMonitorKeysDriveMutations(t *testing.T) {
	ctrl := &fakeController{snapshot: pregnantSnapshot()}
	m := loadedMonitor(t, ctrl)

	m = press(t, m, '+')
	m = press(t, m, '-')
	m = press(t, m, 'n')
	m = press(t, m, 'u')
	m = press(t, m, ']')
	m = press(t, m, '[')
	m = press(t, m, 'r')

	assert.Equal(t, []application.Mutation{
		application.AddChild(),
		application.RemoveChild(),
		application.ResetConception(),
		application.SetGestationUnit(domain.UnitDays),
		application.SetGestationTime(9),
		application.SetGestationTime(7),
	}, ctrl.mutations)
	assert.Equal(t, 1, ctrl.rechecks)
	assert.Contains(t, m.View(), "avatar rechecked")
}

func TestMonitorWontShortenBelowOneStep(t *testing.T) {
	snapshot := pregnantSnapshot()
	snapshot.Record.GestationTime = 1
	ctrl := &fakeController{snapshot: snapshot}
	m := loadedMonitor(t, ctrl)

	_, cmd := m.Update(runeKey('['))
	assert.Nil(t, cmd)
	assert.Empty(t, ctrl.mutations)
}

func TestMonitorShowsErrors(t *testing.T) {
	ctrl := &fakeController{err: errors.New("connection refused")}
	m := loadedMonitor(t, ctrl)

	assert.Contains(t, m.View(), "error: connection refused")
}

func TestMonitorQuits(t *testing.T) {
	m := loadedMonitor(t, &fakeController{snapshot: pregnantSnapshot()})

	_, cmd := m.Update(runeKey('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestMonitorViewBeforeFirstFetch(t *testing.T) {
	m := NewMonitor(&fakeController{}, 0, RenderOptions{})
	assert.Contains(t, m.View(), "Connecting")
}

package status

import (
	"context"
	"time"

	"github.com/bnema/gestation-osc/internal/application"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	DefaultRefresh = time.Second
	requestTimeout = 5 * time.Second
	timeStep       = 1.0
)

// Controller is what the monitor drives; the daemon's API client
// satisfies it through a thin adapter.
type Controller interface {
	State(ctx context.Context) (application.Snapshot, error)
	Recheck(ctx context.Context) (application.Snapshot, error)
	Mutate(ctx context.Context, mutation application.Mutation) (application.Snapshot, error)
}

type snapshotMsg struct {
	snapshot application.Snapshot
	err      error
	action   string
}

type refreshMsg struct{}

// Monitor is the interactive bubbletea model.
type Monitor struct {
	ctrl    Controller
	keys    KeyMap
	help    help.Model
	styles  styles
	opts    RenderOptions
	refresh time.Duration

	snapshot application.Snapshot
	loaded   bool
	notice   string
	err      error
}

func NewMonitor(ctrl Controller, refresh time.Duration, opts RenderOptions) Monitor {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return Monitor{
		ctrl:    ctrl,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		styles:  newStyles(),
		opts:    opts,
		refresh: refresh,
	}
}

func (m Monitor) Init() tea.Cmd {
	return m.fetch("")
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.loaded = true
			m.snapshot = msg.snapshot
		}
		if msg.action != "" {
			m.notice = msg.action
		}
		if msg.action == "" {
			return m, m.scheduleRefresh()
		}
		return m, nil
	case refreshMsg:
		return m, m.fetch("")
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Monitor) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Recheck):
		return m, m.recheck()
	case key.Matches(msg, m.keys.AddChild):
		return m, m.mutate(application.AddChild(), "child added")
	case key.Matches(msg, m.keys.RemoveChild):
		return m, m.mutate(application.RemoveChild(), "child removed")
	case key.Matches(msg, m.keys.ResetTime):
		return m, m.mutate(application.ResetConception(), "conception time reset")
	}

	record := m.snapshot.Record
	if record == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.CycleUnit):
		next := record.Unit.Next()
		return m, m.mutate(application.SetGestationUnit(next), "unit set to "+next.String())
	case key.Matches(msg, m.keys.LongerTime):
		return m, m.mutate(application.SetGestationTime(record.GestationTime+timeStep), "gestation lengthened")
	case key.Matches(msg, m.keys.ShorterTime):
		if record.GestationTime-timeStep <= 0 {
			return m, nil
		}
		return m, m.mutate(application.SetGestationTime(record.GestationTime-timeStep), "gestation shortened")
	}
	return m, nil
}

func (m Monitor) View() string {
	if !m.loaded && m.err == nil {
		return m.styles.empty.Render("Connecting to daemon...")
	}

	parts := []string{renderView(m.snapshot, m.opts, m.styles)}
	if m.err != nil {
		parts = append(parts, m.styles.section.Render(m.styles.warning.Render("error: "+m.err.Error())))
	} else if m.notice != "" {
		parts = append(parts, m.styles.section.Render(m.styles.meta.Render(m.notice)))
	}
	parts = append(parts, m.styles.section.Render(m.help.View(m.keys)))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Monitor) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m Monitor) fetch(action string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		snapshot, err := ctrl.State(ctx)
		return snapshotMsg{snapshot: snapshot, err: err, action: action}
	}
}

func (m Monitor) recheck() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		snapshot, err := ctrl.Recheck(ctx)
		return snapshotMsg{snapshot: snapshot, err: err, action: "avatar rechecked"}
	}
}

func (m Monitor) mutate(mutation application.Mutation, action string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		snapshot, err := ctrl.Mutate(ctx, mutation)
		return snapshotMsg{snapshot: snapshot, err: err, action: action}
	}
}

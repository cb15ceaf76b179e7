package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/gestation-osc/internal/adapters/httpapi"
	"github.com/bnema/gestation-osc/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type rechecker interface {
	Recheck(ctx context.Context) (httpapi.StateResponse, error)
}

// recheckDoneMsg carries the daemon's state once detection finished.
type recheckDoneMsg struct {
	state httpapi.StateResponse
	err   error
}

var (
	foundStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type recheckModel struct {
	spinner spinner.Model
	request tea.Cmd

	state httpapi.StateResponse
	err   error
	done  bool
}

func newRecheckModel(ctx context.Context, client rechecker) recheckModel {
	return recheckModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("176"))),
		),
		request: func() tea.Msg {
			state, err := client.Recheck(ctx)
			return recheckDoneMsg{state: state, err: err}
		},
	}
}

func (m recheckModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.request)
}

func (m recheckModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recheckDoneMsg:
		m.state, m.err, m.done = msg.state, msg.err, true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View leaves a one-line verdict behind once the daemon answered.
func (m recheckModel) View() string {
	switch {
	case !m.done:
		return m.spinner.View() + " Looking for the gestation system on the current avatar..."
	case m.err != nil:
		return ""
	case m.state.Phase == application.PhaseActive.String():
		return foundStyle.Render(fmt.Sprintf("Gestation system found on %s.", m.state.AvatarID)) + "\n"
	default:
		return missingStyle.Render("No gestation system on the current avatar.") + "\n"
	}
}

// recheckWithProgress asks the daemon to re-run avatar detection while a
// spinner runs on output.
func recheckWithProgress(ctx context.Context, output io.Writer, client rechecker) (httpapi.StateResponse, error) {
	p := tea.NewProgram(
		newRecheckModel(ctx, client),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		return httpapi.StateResponse{}, err
	}

	m, ok := final.(recheckModel)
	if !ok {
		return httpapi.StateResponse{}, fmt.Errorf("unexpected final recheck model %T", final)
	}
	return m.state, m.err
}

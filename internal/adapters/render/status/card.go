package status

import (
	"errors"
	"io"

	"github.com/bnema/gestation-osc/internal/application"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var ErrNotDrawn = errors.New("status card quit before drawing a snapshot")

// card is the one-shot status view. It consumes the same snapshotMsg as
// the monitor, lays out a footer for the phase it was given and quits.
type card struct {
	snapshot application.Snapshot
	opts     RenderOptions
	styles   styles

	text  string
	drawn bool
}

func (c card) Init() tea.Cmd {
	snapshot := c.snapshot
	return func() tea.Msg { return snapshotMsg{snapshot: snapshot} }
}

func (c card) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	got, ok := msg.(snapshotMsg)
	if !ok {
		return c, nil
	}
	c.text = lipgloss.JoinVertical(lipgloss.Left, c.body(got.snapshot)...)
	c.drawn = true
	return c, tea.Quit
}

func (c card) View() string {
	return c.text
}

func (c card) body(snapshot application.Snapshot) []string {
	parts := []string{renderView(snapshot, c.opts, c.styles)}

	switch {
	case !snapshot.Active():
		parts = append(parts, c.styles.section.Render(
			c.styles.meta.Render("Load an avatar with the gestation system, then run `gestation recheck`."),
		))
	case snapshot.Record != nil && snapshot.Record.ChildCount > 0 && snapshot.Remaining <= 0:
		parts = append(parts, c.styles.section.Render(c.styles.warning.Render("Gestation complete.")))
	}
	return parts
}

// Render draws snapshot once and returns the text.
func Render(snapshot application.Snapshot, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		card{snapshot: snapshot, opts: opts, styles: newStyles()},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := p.Run()
	if err != nil {
		return "", err
	}
	if c, ok := final.(card); ok && c.drawn {
		return c.View(), nil
	}
	return "", ErrNotDrawn
}

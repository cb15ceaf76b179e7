package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/gestation-osc/internal/application"
	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 24

type RenderOptions struct {
	// Location formats the completion date; nil means time.Local.
	Location *time.Location
}

func renderView(snapshot application.Snapshot, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Gestation")}

	if !snapshot.Active() || snapshot.Record == nil {
		lines = append(lines,
			s.header.Render("status: inactive"),
			s.empty.Render("No gestation system on the current avatar."),
		)
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	record := *snapshot.Record
	lines = append(lines,
		s.header.Render("status: active"),
		s.section.Render(s.avatar.Render(fmt.Sprintf("Avatar: %s", snapshot.AvatarID))),
		field(s, "children", fmt.Sprintf("%d / %d", record.ChildCount, domain.MaxChildCount)),
		field(s, "gestation", gestationLabel(record)),
	)

	if record.ChildCount == 0 {
		lines = append(lines, s.empty.Render("Not pregnant."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines,
		lipgloss.JoinHorizontal(lipgloss.Top,
			s.label.Render("progress:"),
			" ",
			renderProgressBar(snapshot.Progress, barWidth, s),
			" ",
			progressStyle(snapshot.Progress).Render(fmt.Sprintf("%3.0f%%", clamp01(snapshot.Progress)*100)),
		),
		field(s, "remaining", remainingLabel(snapshot.Remaining)),
	)
	if record.ConceptionTime != nil {
		lines = append(lines, field(s, "conceived", formatDate(*record.ConceptionTime, opts)))
	}
	if snapshot.EstimatedCompletion != nil {
		lines = append(lines, field(s, "due", formatDate(*snapshot.EstimatedCompletion, opts)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func field(s styles, label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(label+":"), " ", s.detail.Render(value))
}

func gestationLabel(record domain.ChildRecord) string {
	value := fmt.Sprintf("%.2f", record.GestationTime)
	value = strings.TrimRight(strings.TrimRight(value, "0"), ".")
	return fmt.Sprintf("%s %s", value, strings.ToLower(record.Unit.String()))
}

func remainingLabel(remaining time.Duration) string {
	if remaining <= 0 {
		return "due now"
	}
	return domain.HumanDuration(remaining)
}

func formatDate(t time.Time, opts RenderOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("Mon 02 Jan 2006 15:04")
}

func renderProgressBar(progress float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clamp01(progress)))
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// progressStyle brightens from grey towards white as the due date nears.
func progressStyle(progress float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(interpolateColor(clamp01(progress), 0, 1))
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp.
	base, target := 240.0, 255.0
	return lipgloss.Color(fmt.Sprintf("%d", int(base+(target-base)*normalized)))
}

package status

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the monitor's bindings.
type KeyMap struct {
	AddChild    key.Binding
	RemoveChild key.Binding
	Recheck     key.Binding
	ResetTime   key.Binding
	CycleUnit   key.Binding
	ShorterTime key.Binding
	LongerTime  key.Binding
	Quit        key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		AddChild: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "add child"),
		),
		RemoveChild: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "remove child"),
		),
		Recheck: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "recheck avatar"),
		),
		ResetTime: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "conceive now"),
		),
		CycleUnit: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "next unit"),
		),
		ShorterTime: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "shorter"),
		),
		LongerTime: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "longer"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.AddChild, k.RemoveChild, k.Recheck, k.ResetTime, k.CycleUnit, k.ShorterTime, k.LongerTime, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

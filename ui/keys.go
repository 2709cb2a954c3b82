package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle      key.Binding
	Stop        key.Binding
	Next        key.Binding
	Previous    key.Binding
	AutoAdvance key.Binding
	Language    key.Binding
	Mute        key.Binding
	VolumeUp    key.Binding
	VolumeDown  key.Binding
	Copy        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Stop:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Next:        key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next step")),
		Previous:    key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "previous step")),
		AutoAdvance: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto-advance")),
		Language:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "language")),
		Mute:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute ambient")),
		VolumeUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "ambient louder")),
		VolumeDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "ambient quieter")),
		Copy:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy step")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Previous, k.Language, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Stop, k.Next, k.Previous},
		{k.AutoAdvance, k.Language, k.Copy},
		{k.Mute, k.VolumeUp, k.VolumeDown},
		{k.Help, k.Quit},
	}
}

package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/osvaldoandrade/taskdeck/internal/dashboard"
)

type keyMap struct {
	Open    key.Binding
	Compose key.Binding
	Cancel  key.Binding
	Back    key.Binding
	Submit  key.Binding
	Asset   key.Binding
	Quit    key.Binding
	ForceQ  key.Binding

	mode    dashboard.Mode
	loading bool
}

func newKeyMap() keyMap {
	return keyMap{
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Compose: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new execution")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Back:    key.NewBinding(key.WithKeys("esc", "backspace", "b"), key.WithHelp("b", "back")),
		Submit:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		Asset:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open result")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		ForceQ:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// forMode returns a copy whose help reflects the keys live in m.
func (k keyMap) forMode(m dashboard.Mode) keyMap {
	k.mode = m
	return k
}

func (k keyMap) ShortHelp() []key.Binding {
	if k.loading {
		return []key.Binding{k.Back, k.Quit}
	}
	switch k.mode {
	case dashboard.AwaitingToken:
		return []key.Binding{withHelp(k.Open, "enter", "submit token"), k.ForceQ}
	case dashboard.ListView:
		return []key.Binding{k.Open, k.Quit}
	case dashboard.DetailView:
		return []key.Binding{k.Compose, k.Asset, k.Back, k.Quit}
	case dashboard.Composing:
		return []key.Binding{k.Submit, k.Cancel, k.ForceQ}
	}
	return []key.Binding{k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func withHelp(b key.Binding, keys, desc string) key.Binding {
	b.SetHelp(keys, desc)
	return b
}

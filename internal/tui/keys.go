package tui

import (
	"github.com/calvinwijaya/blackjack-3d/internal/game"
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Chip  key.Binding
	AllIn key.Binding
	Clear key.Binding
	Deal  key.Binding
	Hit   key.Binding
	Stand key.Binding
	Next  key.Binding
	Reset key.Binding
	Quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Chip:  key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "bet chip")),
		AllIn: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all in")),
		Clear: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear bet")),
		Deal:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "deal")),
		Hit:   key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hit")),
		Stand: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stand")),
		Next:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next round")),
		Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset balance")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Chip, k.AllIn, k.Clear, k.Deal, k.Hit, k.Stand, k.Next, k.Reset, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Chip, k.AllIn, k.Clear, k.Deal},
		{k.Hit, k.Stand},
		{k.Next, k.Reset, k.Quit},
	}
}

// available returns a copy with only the bindings that do something in
// the given state enabled. It drives the help line; every key still reaches
// the session so rejected commands explain themselves.
func (k keyMap) available(snap game.Snapshot) keyMap {
	betting := snap.AcceptingBets()
	k.Chip.SetEnabled(betting)
	k.AllIn.SetEnabled(betting)
	k.Clear.SetEnabled(betting && snap.CurrentBet > 0)
	k.Deal.SetEnabled(betting && snap.CurrentBet > 0)
	k.Hit.SetEnabled(snap.Phase == game.Playing)
	k.Stand.SetEnabled(snap.Phase == game.Playing)
	k.Next.SetEnabled(snap.Phase == game.GameOver)
	return k
}

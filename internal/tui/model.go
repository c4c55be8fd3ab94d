package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/calvinwijaya/blackjack-3d/internal/game"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

const maxLogEntries = 8

// EventMsg carries a session event into the bubbletea program
type EventMsg struct {
	Event game.Event
}

type logEntry struct {
	text  string
	style lipgloss.Style
}

// Model is the bubbletea model for a local blackjack table
type Model struct {
	session *game.Session
	chips   []int
	logger  *log.Logger

	keys keyMap
	help help.Model

	snap     game.Snapshot
	history  []logEntry
	width    int
	quitting bool
}

// NewModel creates a model driving session. chips are the bet chips bound
// to keys 1-4.
func NewModel(session *game.Session, chips []int, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if len(chips) == 0 {
		chips = game.DefaultBetChips
	}
	if len(chips) > 4 {
		chips = chips[:4]
	}

	return &Model{
		session: session,
		chips:   chips,
		logger:  logger.WithPrefix("tui"),
		keys:    newKeyMap(),
		help:    help.New(),
		snap:    session.Snapshot(),
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		m.snap = m.session.Snapshot()
		m.record(msg.Event)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		m.handleKey(msg)
		m.snap = m.session.Snapshot()
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Chip):
		i := int(msg.String()[0] - '1')
		if i < 0 || i >= len(m.chips) {
			return
		}
		m.session.PlaceBet(m.chips[i])
	case key.Matches(msg, m.keys.AllIn):
		m.session.AllIn()
	case key.Matches(msg, m.keys.Clear):
		m.session.ClearBet()
	case key.Matches(msg, m.keys.Deal):
		m.session.StartNewGame()
	case key.Matches(msg, m.keys.Hit):
		m.session.Hit()
	case key.Matches(msg, m.keys.Stand):
		m.session.Stand()
	case key.Matches(msg, m.keys.Next):
		m.session.NextRound()
	case key.Matches(msg, m.keys.Reset):
		m.session.ResetBalance()
	default:
		m.logger.Debug("Unbound key", "key", msg.String())
	}
}

// record appends a line describing e to the table log
func (m *Model) record(e game.Event) {
	snap := e.Snapshot
	entry := logEntry{text: snap.Message, style: InfoStyle}

	switch e.Type {
	case game.EventRoundStarted:
		entry.text = fmt.Sprintf("Round %d: you hold %s (%d), dealer shows %s",
			snap.Round, cardList(snap.PlayerHand), snap.PlayerScore, snap.DealerHand[0])
	case game.EventCardDealt:
		last := snap.PlayerHand[len(snap.PlayerHand)-1]
		entry.text = fmt.Sprintf("You draw %s (%d)", last, snap.PlayerScore)
	case game.EventDealerRevealed:
		entry.text = fmt.Sprintf("Dealer reveals %s (%d)", cardList(snap.DealerHand), snap.DealerScore)
	case game.EventRoundSettled:
		switch {
		case e.Outcome.IsWin():
			entry.style = SuccessStyle
		case e.Outcome.IsPush():
			entry.style = WarningStyle
		default:
			entry.style = ErrorStyle
		}
	case game.EventRejected, game.EventBankrupt:
		entry.style = ErrorStyle
	}

	m.history = append(m.history, entry)
	if len(m.history) > maxLogEntries {
		m.history = m.history[len(m.history)-maxLogEntries:]
	}
}

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var table strings.Builder
	snap := m.snap

	dealerScore := "-"
	if len(snap.DealerHand) > 0 {
		dealerScore = fmt.Sprint(snap.DealerScore)
	}
	playerScore := "-"
	if len(snap.PlayerHand) > 0 {
		playerScore = fmt.Sprint(snap.PlayerScore)
	}

	table.WriteString(LabelStyle.Render(fmt.Sprintf("Dealer (%s)", dealerScore)))
	table.WriteString("  ")
	table.WriteString(renderDealerHand(snap))
	table.WriteString("\n\n")
	table.WriteString(LabelStyle.Render(fmt.Sprintf("You    (%s)", playerScore)))
	table.WriteString("  ")
	table.WriteString(renderHand(snap.PlayerHand))
	table.WriteString("\n\n")
	table.WriteString(fmt.Sprintf("Balance: %s  Bet: %s", dollars(snap.Balance), dollars(snap.CurrentBet)))
	if snap.CurrentBet > 0 {
		table.WriteString(InfoStyle.Render("  " + chipPile(snap.CurrentBet)))
	}
	table.WriteString("\n")
	table.WriteString(MessageStyle.Render(snap.Message))

	var logLines []string
	for _, entry := range m.history {
		logLines = append(logLines, entry.style.Render(entry.text))
	}
	if len(logLines) == 0 {
		logLines = append(logLines, InfoStyle.Render("No hands played yet"))
	}

	header := HeaderStyle.Render("BLACKJACK")
	if snap.Round > 0 {
		header += InfoStyle.Render(fmt.Sprintf("  Round %d", snap.Round))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		TableStyle.Render(table.String()),
		LogStyle.Render(strings.Join(logLines, "\n")),
		m.help.View(m.keys.available(snap)),
	)
}

func renderCard(c game.Card) string {
	if c.Suit.IsRed() {
		return RedCardStyle.Render(c.String())
	}
	return BlackCardStyle.Render(c.String())
}

func renderHand(hand []game.Card) string {
	if len(hand) == 0 {
		return InfoStyle.Render("no cards")
	}
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = renderCard(c)
	}
	return strings.Join(parts, " ")
}

// renderDealerHand shows the hole card face down until the dealer reveals
func renderDealerHand(snap game.Snapshot) string {
	visible := snap.VisibleDealerHand()
	out := renderHand(visible)
	for range len(snap.DealerHand) - len(visible) {
		out += " " + HiddenCardStyle.Render("??")
	}
	return out
}

func cardList(hand []game.Card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// chipPile summarises the chips making up amount, largest first
func chipPile(amount int) string {
	chips := game.AmountToChips(amount)
	var parts []string
	for i := 0; i < len(chips); {
		j := i
		for j < len(chips) && chips[j] == chips[i] {
			j++
		}
		parts = append(parts, fmt.Sprintf("%dx%s", j-i, humanize.Comma(int64(chips[i]))))
		i = j
	}
	return strings.Join(parts, " ")
}

func dollars(amount int) string {
	return "$" + humanize.Comma(int64(amount))
}

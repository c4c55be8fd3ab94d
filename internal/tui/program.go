package tui

import (
	"context"
	"errors"
	"sync"

	"github.com/calvinwijaya/blackjack-3d/internal/game"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

const eventBuffer = 64

// Sender is the part of *tea.Program that events are forwarded to
type Sender interface {
	Send(msg tea.Msg)
}

type forwarder struct {
	mu     sync.Mutex
	events chan game.Event
	closed bool
	logger *log.Logger
}

func (f *forwarder) listen(e game.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.events <- e:
	default:
		f.logger.Warn("Event buffer full, dropping event", "type", e.Type)
	}
}

func (f *forwarder) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
}

// Forward subscribes to session and hands every event to p as an EventMsg,
// in order. Session commands issued from Update publish on the Update
// goroutine, so events are queued and sent from a separate goroutine.
// The returned func stops forwarding.
func Forward(p Sender, session *game.Session, logger *log.Logger) (stop func()) {
	f := &forwarder{
		events: make(chan game.Event, eventBuffer),
		logger: logger.WithPrefix("tui"),
	}
	unsubscribe := session.Subscribe(f.listen)

	go func() {
		for e := range f.events {
			p.Send(EventMsg{Event: e})
		}
	}()

	return func() {
		unsubscribe()
		f.close()
	}
}

// Run plays session in the terminal until the player quits or ctx is done
func Run(ctx context.Context, session *game.Session, chips []int, logger *log.Logger) error {
	model := NewModel(session, chips, logger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	stop := Forward(p, session, logger)
	defer stop()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

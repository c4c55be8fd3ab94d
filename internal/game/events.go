package game

import (
	"sync"
	"time"
)

// EventType names a change published by a session
type EventType string

const (
	EventBetChanged     EventType = "bet_changed"
	EventRoundStarted   EventType = "round_started"
	EventCardDealt      EventType = "card_dealt"
	EventDealerRevealed EventType = "dealer_revealed"
	EventRoundSettled   EventType = "round_settled"
	EventRoundCleared   EventType = "round_cleared"
	EventBankrupt       EventType = "bankrupt"
	EventBalanceReset   EventType = "balance_reset"
	EventRejected       EventType = "rejected"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is published after a session changes. Snapshot is the state right
// after the change.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Snapshot  Snapshot  `json:"snapshot"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	// Bet is the stake that was settled; only set on EventRoundSettled
	Bet       int       `json:"bet,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives session events
type Listener func(Event)

type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) publish(events []Event) {
	if len(events) == 0 {
		return
	}

	l.mu.Lock()
	fns := make([]Listener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, e := range events {
		for _, fn := range fns {
			fn(e)
		}
	}
}

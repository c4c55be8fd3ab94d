package game

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

type Phase string

const (
	Idle       Phase = "idle"        // Between rounds, bets accepted
	Playing    Phase = "playing"     // Player's turn
	DealerTurn Phase = "dealer-turn" // Player stood, dealer resolving
	GameOver   Phase = "game-over"   // Round settled
)

const (
	DefaultStartingBalance = 10000
	DefaultMaxBet          = 10000
	DefaultDealerDelay     = 500 * time.Millisecond
	DefaultBankruptcyDelay = time.Second
)

const (
	msgPlaceBet      = "Place your bet to start"
	msgHitOrStand    = "Hit or Stand?"
	msgDealerTurn    = "Dealer's turn"
	msgBankrupt      = "You're out of money! Reset your balance to keep playing."
	msgBetsClosed    = "Bets can only be changed between rounds"
	msgInsufficient  = "Insufficient balance"
	msgDeckExhausted = "The deck ran out of cards. Deal again"
)

// Config holds the table limits and timings of a session
type Config struct {
	StartingBalance int
	MaxBet          int
	// DealerDelay is the pause between the reveal and the dealer drawing
	DealerDelay time.Duration
	// BankruptcyDelay is the pause before the out-of-money notice
	BankruptcyDelay time.Duration
}

// DefaultConfig returns the standard table configuration
func DefaultConfig() Config {
	return Config{
		StartingBalance: DefaultStartingBalance,
		MaxBet:          DefaultMaxBet,
		DealerDelay:     DefaultDealerDelay,
		BankruptcyDelay: DefaultBankruptcyDelay,
	}
}

// Option customizes a session
type Option func(*Session)

// WithClock sets the clock used to schedule the dealer turn and the
// bankruptcy notice
func WithClock(clock quartz.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithLogger sets the session logger
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger.WithPrefix("session")
		}
	}
}

// WithRand shuffles every deck with rng
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		s.newDeck = func() *Deck { return NewDeck(rng) }
	}
}

// WithDeckFactory replaces deck construction, e.g. to replay a known deal
func WithDeckFactory(factory func() *Deck) Option {
	return func(s *Session) { s.newDeck = factory }
}

// WithID sets the session identifier
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// Snapshot is a read-only copy of a session's state
type Snapshot struct {
	Phase         Phase     `json:"phase"`
	PlayerHand    []Card    `json:"playerHand"`
	DealerHand    []Card    `json:"dealerHand"`
	PlayerScore   int       `json:"playerScore"`
	DealerScore   int       `json:"dealerScore"`
	DealerShowAll bool      `json:"dealerShowAll"`
	Balance       int       `json:"balance"`
	CurrentBet    int       `json:"currentBet"`
	MaxBet        int       `json:"maxBet"`
	Message       string    `json:"message"`
	Outcome       Outcome   `json:"outcome,omitempty"`
	Round         int       `json:"round"`
	// Seq increases with every published change; a lower Seq is stale
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Bankrupt reports an empty balance
func (s Snapshot) Bankrupt() bool {
	return s.Balance == 0
}

// AcceptingBets reports whether chips can be added to the bet
func (s Snapshot) AcceptingBets() bool {
	return s.Phase == Idle
}

// VisibleDealerHand returns the dealer cards the player may see
func (s Snapshot) VisibleDealerHand() []Card {
	if s.DealerShowAll || len(s.DealerHand) < 2 {
		return s.DealerHand
	}
	return s.DealerHand[:1]
}

// Session is a single-player blackjack table: one deck, one player hand,
// one dealer hand and the player's bankroll. All commands are safe to call
// from multiple goroutines; each runs atomically.
type Session struct {
	ID        string
	CreatedAt time.Time

	cfg       Config
	clock     quartz.Clock
	logger    *log.Logger
	newDeck   func() *Deck
	listeners listeners

	mu            sync.Mutex
	deck          *Deck
	playerHand    []Card
	dealerHand    []Card
	phase         Phase
	balance       int
	bet           int
	playerScore   int
	dealerScore   int
	dealerShowAll bool
	message       string
	outcome       Outcome
	round         int
	seq           uint64
	updatedAt     time.Time
	pending       []Event
}

// NewSession creates a session in the betting phase with the starting balance
func NewSession(cfg Config, opts ...Option) *Session {
	s := &Session{
		ID:      uuid.New().String(),
		cfg:     cfg,
		clock:   quartz.NewReal(),
		logger:  log.New(io.Discard),
		newDeck: func() *Deck { return NewDeck(nil) },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.CreatedAt = s.clock.Now()
	s.updatedAt = s.CreatedAt
	s.phase = Idle
	s.balance = cfg.StartingBalance
	s.playerHand = []Card{}
	s.dealerHand = []Card{}
	s.message = msgPlaceBet

	return s
}

// Config returns the table configuration
func (s *Session) Config() Config {
	return s.cfg
}

// Subscribe registers fn for every event published after a change.
// The returned func removes the subscription.
func (s *Session) Subscribe(fn Listener) func() {
	return s.listeners.add(fn)
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// PlaceBet adds amount to the current bet
func (s *Session) PlaceBet(amount int) {
	s.do(func() {
		switch {
		case s.phase != Idle:
			s.reject(msgBetsClosed)
		case amount <= 0:
			s.reject("Bet amount must be positive")
		case amount > s.balance-s.bet:
			s.reject(msgInsufficient)
		case amount > s.cfg.MaxBet-s.bet:
			s.reject(fmt.Sprintf("Maximum bet is %s", dollars(s.cfg.MaxBet)))
		default:
			s.bet += amount
			s.message = fmt.Sprintf("Current bet: %s", dollars(s.bet))
			s.logger.Debug("Bet placed", "amount", amount, "bet", s.bet, "balance", s.balance)
			s.emit(EventBetChanged)
		}
	})
}

// AllIn raises the bet to everything the player may stake
func (s *Session) AllIn() {
	s.do(func() {
		if s.phase != Idle {
			s.reject(msgBetsClosed)
			return
		}

		target := min(s.balance, s.cfg.MaxBet)
		if target <= 0 {
			s.reject(msgInsufficient)
			return
		}

		s.bet = target
		s.message = fmt.Sprintf("All in: %s", dollars(s.bet))
		s.logger.Debug("All in", "bet", s.bet, "balance", s.balance)
		s.emit(EventBetChanged)
	})
}

// ClearBet resets the current bet to zero
func (s *Session) ClearBet() {
	s.do(func() {
		if s.phase != Idle {
			s.reject(msgBetsClosed)
			return
		}

		s.bet = 0
		s.message = msgPlaceBet
		s.emit(EventBetChanged)
	})
}

// StartNewGame shuffles a fresh deck and deals the opening hands
func (s *Session) StartNewGame() {
	s.do(func() {
		switch {
		case s.phase == Playing || s.phase == DealerTurn:
			s.reject("Round already in progress")
			return
		case s.bet <= 0:
			s.reject("Place a bet first")
			return
		case s.bet > s.balance:
			s.reject(msgInsufficient)
			return
		}

		// Player, dealer, player, dealer; the dealer's second card is the hole card.
		// Nothing changes unless all four cards come out.
		deck := s.newDeck()
		player, dealer := []Card{}, []Card{}
		for i := 0; i < 4; i++ {
			card, ok := deck.Draw()
			if !ok {
				s.logger.Error("Deck exhausted during the deal", "dealt", i)
				s.reject(msgDeckExhausted)
				return
			}
			if i%2 == 0 {
				player = append(player, card)
			} else {
				dealer = append(dealer, card)
			}
		}

		s.deck = deck
		s.playerHand = player
		s.dealerHand = dealer
		s.outcome = OutcomeNone
		s.round++
		s.phase = Playing
		s.dealerShowAll = false
		s.playerScore = HandValue(s.playerHand)
		s.dealerScore = HandValue(s.dealerHand[:1])
		s.message = msgHitOrStand

		s.logger.Info("Round started",
			"round", s.round,
			"bet", s.bet,
			"player", handString(s.playerHand),
			"upcard", s.dealerHand[0].String())
		s.emit(EventRoundStarted)
	})
}

// Hit deals one card to the player. A bust settles the round at once.
func (s *Session) Hit() {
	s.do(func() {
		if s.phase != Playing {
			return
		}
		if !s.dealTo(&s.playerHand) {
			return
		}

		s.playerScore = HandValue(s.playerHand)
		if !IsBust(s.playerHand) {
			s.emit(EventCardDealt)
			return
		}

		s.revealLocked()
		s.phase = GameOver
		s.outcome = OutcomePlayerBust
		lost := s.bet
		s.balance -= lost
		s.bet = 0
		s.message = fmt.Sprintf("%s You lost %s", OutcomePlayerBust.Message(), dollars(lost))

		s.logger.Info("Player bust", "round", s.round, "player", handString(s.playerHand), "lost", lost, "balance", s.balance)
		s.emitSettled(lost)
		s.checkBankruptLocked()
	})
}

// Stand ends the player's turn. The dealer plays after the dealer delay.
func (s *Session) Stand() {
	s.do(func() {
		if s.phase != Playing {
			return
		}

		s.phase = DealerTurn
		s.revealLocked()
		s.message = msgDealerTurn
		s.emit(EventDealerRevealed)

		round := s.round
		s.clock.AfterFunc(s.cfg.DealerDelay, func() {
			s.do(func() { s.playDealerTurnLocked(round) })
		})
	})
}

// PlayDealerTurn resolves the dealer's hand and settles the bet. It does
// nothing unless the player has stood and the dealer has not played yet.
func (s *Session) PlayDealerTurn() {
	s.do(func() { s.playDealerTurnLocked(s.round) })
}

func (s *Session) playDealerTurnLocked(round int) {
	if s.phase != DealerTurn || s.round != round {
		s.logger.Debug("Ignoring stale dealer turn", "round", round, "current", s.round, "phase", s.phase)
		return
	}

	for ShouldDealerHit(s.dealerHand) {
		if !s.dealTo(&s.dealerHand) {
			break
		}
	}

	s.dealerScore = HandValue(s.dealerHand)
	s.outcome = DetermineOutcome(s.playerHand, s.dealerHand)
	s.phase = GameOver
	s.message = s.outcome.Message()
	s.settleBetLocked()
}

// settleBetLocked pays out the current bet according to the outcome
func (s *Session) settleBetLocked() {
	bet := s.bet
	payout := s.outcome.Payout(bet)
	s.balance = s.balance - bet + payout
	s.bet = 0

	switch net := payout - bet; {
	case net > 0:
		s.message = fmt.Sprintf("%s You won %s", s.outcome.Message(), dollars(net))
	case net < 0:
		s.message = fmt.Sprintf("%s You lost %s", s.outcome.Message(), dollars(-net))
	default:
		s.message = fmt.Sprintf("%s Your %s bet is returned", s.outcome.Message(), dollars(bet))
	}

	s.logger.Info("Round settled",
		"round", s.round,
		"outcome", s.outcome,
		"player", handString(s.playerHand),
		"dealer", handString(s.dealerHand),
		"bet", bet,
		"payout", payout,
		"balance", s.balance)
	s.emitSettled(bet)
	s.checkBankruptLocked()
}

// checkBankruptLocked schedules the out-of-money notice once the balance is gone
func (s *Session) checkBankruptLocked() {
	if s.balance != 0 {
		return
	}

	round := s.round
	s.clock.AfterFunc(s.cfg.BankruptcyDelay, func() {
		s.do(func() {
			// A reset or a later round makes the notice moot
			if s.balance != 0 || s.round != round {
				return
			}
			s.message = msgBankrupt
			s.logger.Warn("Player is out of money", "round", s.round)
			s.emit(EventBankrupt)
		})
	})
}

// NextRound clears the settled hands and reopens betting
func (s *Session) NextRound() {
	s.do(func() {
		if s.phase != GameOver {
			return
		}

		s.clearTableLocked()
		s.message = msgPlaceBet
		s.emit(EventRoundCleared)
	})
}

// ResetBalance restores the starting balance and abandons any round in play
func (s *Session) ResetBalance() {
	s.do(func() {
		s.clearTableLocked()
		s.balance = s.cfg.StartingBalance
		s.bet = 0
		s.message = fmt.Sprintf("Balance reset to %s. %s", dollars(s.balance), msgPlaceBet)
		s.logger.Info("Balance reset", "balance", s.balance)
		s.emit(EventBalanceReset)
	})
}

func (s *Session) clearTableLocked() {
	s.deck = nil
	s.playerHand = []Card{}
	s.dealerHand = []Card{}
	s.playerScore = 0
	s.dealerScore = 0
	s.dealerShowAll = false
	s.outcome = OutcomeNone
	s.phase = Idle
}

func (s *Session) revealLocked() {
	s.dealerShowAll = true
	s.dealerScore = HandValue(s.dealerHand)
}

// dealTo moves the top card of the deck onto hand
func (s *Session) dealTo(hand *[]Card) bool {
	if s.deck == nil {
		s.logger.Error("No deck to deal from", "round", s.round)
		return false
	}
	card, ok := s.deck.Draw()
	if !ok {
		s.logger.Error("Deck exhausted", "round", s.round)
		return false
	}
	*hand = append(*hand, card)
	return true
}

func (s *Session) reject(message string) {
	s.message = message
	s.logger.Debug("Command rejected", "reason", message, "phase", s.phase)
	s.emit(EventRejected)
}

func (s *Session) emit(t EventType) {
	s.seq++
	s.updatedAt = s.clock.Now()
	s.pending = append(s.pending, Event{
		Type:      t,
		SessionID: s.ID,
		Snapshot:  s.snapshotLocked(),
		Outcome:   s.outcome,
		Timestamp: s.updatedAt,
	})
}

func (s *Session) emitSettled(bet int) {
	s.emit(EventRoundSettled)
	s.pending[len(s.pending)-1].Bet = bet
}

// do runs fn under the session lock and then publishes whatever it emitted.
// Publishing happens outside the lock, so events from concurrent commands
// may reach listeners out of order; Snapshot.Seq orders them.
func (s *Session) do(fn func()) {
	s.mu.Lock()
	fn()
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.listeners.publish(events)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:         s.phase,
		PlayerHand:    append([]Card{}, s.playerHand...),
		DealerHand:    append([]Card{}, s.dealerHand...),
		PlayerScore:   s.playerScore,
		DealerScore:   s.dealerScore,
		DealerShowAll: s.dealerShowAll,
		Balance:       s.balance,
		CurrentBet:    s.bet,
		MaxBet:        s.cfg.MaxBet,
		Message:       s.message,
		Outcome:       s.outcome,
		Round:         s.round,
		Seq:           s.seq,
		UpdatedAt:     s.updatedAt,
	}
}

func handString(hand []Card) string {
	out := ""
	for i, c := range hand {
		if i > 0 {
			out += " "
		}
		out += c.String()
	}
	return out
}

func dollars(amount int) string {
	return "$" + humanize.Comma(int64(amount))
}

package api

import (
	"time"

	"github.com/calvinwijaya/blackjack-3d/internal/game"
)

// CardView is a card as sent to clients. A face-down card carries only its ID.
type CardView struct {
	ID     string    `json:"id"`
	Suit   game.Suit `json:"suit,omitempty"`
	Rank   game.Rank `json:"rank,omitempty"`
	FaceUp bool      `json:"faceUp"`
}

// SessionView is the sanitized session state sent to clients
type SessionView struct {
	ID            string       `json:"id"`
	Phase         game.Phase   `json:"phase"`
	PlayerHand    []CardView   `json:"playerHand"`
	DealerHand    []CardView   `json:"dealerHand"`
	PlayerScore   int          `json:"playerScore"`
	DealerScore   int          `json:"dealerScore"`
	DealerShowAll bool         `json:"dealerShowAll"`
	Balance       int          `json:"balance"`
	CurrentBet    int          `json:"currentBet"`
	MaxBet        int          `json:"maxBet"`
	Message       string       `json:"message"`
	Outcome       game.Outcome `json:"outcome,omitempty"`
	Round         int          `json:"round"`
	Bankrupt      bool         `json:"bankrupt"`
	BetChips      []int        `json:"betChips"`
	PlayerPile    []int        `json:"playerPile"`
	BetPile       []int        `json:"betPile"`
	Seq           uint64       `json:"seq"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// NewSessionView builds the client view of a snapshot. The dealer's hole
// card stays face down until the dealer reveals.
func NewSessionView(id string, snap game.Snapshot, betChips []int) SessionView {
	view := SessionView{
		ID:            id,
		Phase:         snap.Phase,
		PlayerHand:    make([]CardView, len(snap.PlayerHand)),
		DealerHand:    make([]CardView, len(snap.DealerHand)),
		PlayerScore:   snap.PlayerScore,
		DealerScore:   snap.DealerScore,
		DealerShowAll: snap.DealerShowAll,
		Balance:       snap.Balance,
		CurrentBet:    snap.CurrentBet,
		MaxBet:        snap.MaxBet,
		Message:       snap.Message,
		Outcome:       snap.Outcome,
		Round:         snap.Round,
		Bankrupt:      snap.Bankrupt(),
		BetChips:      betChips,
		PlayerPile:    game.AmountToChips(snap.Balance - snap.CurrentBet),
		BetPile:       game.AmountToChips(snap.CurrentBet),
		Seq:           snap.Seq,
		UpdatedAt:     snap.UpdatedAt,
	}

	for i, c := range snap.PlayerHand {
		view.PlayerHand[i] = CardView{ID: c.ID, Suit: c.Suit, Rank: c.Rank, FaceUp: true}
	}

	visible := len(snap.VisibleDealerHand())
	for i, c := range snap.DealerHand {
		if i >= visible {
			view.DealerHand[i] = CardView{ID: c.ID}
			continue
		}
		view.DealerHand[i] = CardView{ID: c.ID, Suit: c.Suit, Rank: c.Rank, FaceUp: true}
	}

	return view
}

// SessionSummary is one entry of the session list
type SessionSummary struct {
	ID        string     `json:"id"`
	Phase     game.Phase `json:"phase"`
	Balance   int        `json:"balance"`
	Round     int        `json:"round"`
	Watchers  int        `json:"watchers"`
	CreatedAt time.Time  `json:"createdAt"`
}

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hand(ranks ...Rank) []Card {
	cards := make([]Card, len(ranks))
	for i, r := range ranks {
		cards[i] = NewCard(Suits[i%len(Suits)], r)
	}
	return cards
}

func TestCardValue(t *testing.T) {
	assert.Equal(t, 11, CardValue(NewCard(Spades, Ace)))
	assert.Equal(t, 10, CardValue(NewCard(Hearts, King)))
	assert.Equal(t, 10, CardValue(NewCard(Hearts, Queen)))
	assert.Equal(t, 10, CardValue(NewCard(Hearts, Jack)))
	assert.Equal(t, 10, CardValue(NewCard(Clubs, Ten)))
	assert.Equal(t, 2, CardValue(NewCard(Diamonds, Two)))
	assert.Equal(t, 9, CardValue(NewCard(Diamonds, Nine)))
}

func TestHandValue(t *testing.T) {
	tests := []struct {
		name     string
		cards    []Card
		expected int
		soft     bool
	}{
		{"empty hand", hand(), 0, false},
		{"simple hand", hand(Ten, Five), 15, false},
		{"face cards", hand(King, Queen), 20, false},
		{"ace as 11", hand(Ace, Nine), 20, true},
		{"ace as 1", hand(Ace, Nine, Two), 12, false},
		{"two aces", hand(Ace, Ace), 12, true},
		{"two aces and nine", hand(Ace, Ace, Nine), 21, true},
		{"three aces", hand(Ace, Ace, Ace), 13, true},
		{"four aces and seven", hand(Ace, Ace, Ace, Ace, Seven), 21, true},
		{"all aces hard", hand(Ace, Ace, King, Nine), 21, false},
		{"bust with aces", hand(Ace, King, Queen, Two), 23, false},
		{"plain bust", hand(King, Queen, Five), 25, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HandValue(tt.cards))
			assert.Equal(t, tt.soft, IsSoft(tt.cards))
		})
	}
}

func TestHandValueNeverReducesBelowNeed(t *testing.T) {
	// Any hand with aces left at 11 must be at most 21
	for aces := 1; aces <= 4; aces++ {
		for extra := 2; extra <= 10; extra++ {
			ranks := []Rank{}
			for i := 0; i < aces; i++ {
				ranks = append(ranks, Ace)
			}
			ranks = append(ranks, Ranks[extra-2])
			cards := hand(ranks...)

			raw := aces*11 + extra
			value := HandValue(cards)
			if IsSoft(cards) {
				assert.LessOrEqual(t, value, 21)
			}
			assert.Equal(t, 0, (raw-value)%10, "reductions come in steps of ten")
		}
	}
}

func TestIsBlackjack(t *testing.T) {
	assert.True(t, IsBlackjack(hand(Ace, King)))
	assert.True(t, IsBlackjack(hand(Ten, Ace)))
	assert.False(t, IsBlackjack(hand(Ace, Nine)))
	assert.False(t, IsBlackjack(hand(Seven, Seven, Seven)), "three-card 21 is not blackjack")
	assert.False(t, IsBlackjack(hand(Ace)))
}

func TestIsBust(t *testing.T) {
	assert.True(t, IsBust(hand(King, Queen, Two)))
	assert.False(t, IsBust(hand(King, Queen, Ace)))
	assert.False(t, IsBust(hand(Ace, Ace, Ace, Ace)))
}

func TestDetermineOutcome(t *testing.T) {
	tests := []struct {
		name     string
		player   []Card
		dealer   []Card
		expected Outcome
	}{
		{"player blackjack", hand(Ace, King), hand(Ten, Nine), OutcomePlayerBlackjack},
		{"player blackjack beats dealer 21", hand(Ace, King), hand(Seven, Seven, Seven), OutcomePlayerBlackjack},
		{"dealer blackjack", hand(Ten, Nine), hand(Ace, Queen), OutcomeDealerBlackjack},
		{"dealer blackjack beats player 21", hand(Seven, Seven, Seven), hand(Ace, Queen), OutcomeDealerBlackjack},
		{"both blackjack", hand(Ace, King), hand(Ace, Jack), OutcomeBothBlackjack},
		{"player bust", hand(King, Queen, Five), hand(Ten, Six), OutcomePlayerBust},
		{"player bust even if dealer busts", hand(King, Queen, Five), hand(Ten, Six, King), OutcomePlayerBust},
		{"dealer bust", hand(Ten, Two), hand(Ten, Six, King), OutcomeDealerBust},
		{"player higher", hand(Ten, Nine), hand(Ten, Seven), OutcomePlayerWins},
		{"dealer higher", hand(Ten, Seven), hand(Ten, Nine), OutcomeDealerWins},
		{"push", hand(Ten, Eight), hand(Nine, Nine), OutcomePush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineOutcome(tt.player, tt.dealer))
		})
	}
}

func TestOutcomePayout(t *testing.T) {
	tests := []struct {
		outcome Outcome
		bet     int
		payout  int
	}{
		{OutcomePlayerBlackjack, 200, 500},
		{OutcomePlayerBlackjack, 101, 252},
		{OutcomeDealerBust, 500, 1000},
		{OutcomePlayerWins, 500, 1000},
		{OutcomeBothBlackjack, 500, 500},
		{OutcomePush, 500, 500},
		{OutcomeDealerBlackjack, 500, 0},
		{OutcomeDealerWins, 500, 0},
		{OutcomePlayerBust, 500, 0},
		{OutcomeNone, 500, 0},
		{OutcomePlayerWins, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			assert.Equal(t, tt.payout, tt.outcome.Payout(tt.bet))
		})
	}
}

func TestOutcomeMessage(t *testing.T) {
	assert.Equal(t, "Blackjack! You win!", OutcomePlayerBlackjack.Message())
	assert.Equal(t, "Dealer wins.", OutcomeDealerWins.Message())
	assert.Equal(t, "Push (Tie)", OutcomePush.Message())
	assert.Empty(t, OutcomeNone.Message())

	assert.True(t, OutcomeDealerBust.IsWin())
	assert.False(t, OutcomePush.IsWin())
	assert.True(t, OutcomeBothBlackjack.IsPush())
}

func TestShouldDealerHit(t *testing.T) {
	assert.True(t, ShouldDealerHit(hand(Ten, Six)))
	assert.True(t, ShouldDealerHit(hand(Two, Three)))
	assert.False(t, ShouldDealerHit(hand(Ten, Seven)))
	assert.False(t, ShouldDealerHit(hand(Ace, Six)), "soft 17 stands")
	assert.False(t, ShouldDealerHit(hand(Ten, Six, King)))
}

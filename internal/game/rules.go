package game

import "github.com/shopspring/decimal"

// Outcome classifies how a round ended for the player
type Outcome string

const (
	OutcomeNone            Outcome = ""
	OutcomePlayerBlackjack Outcome = "player_blackjack"
	OutcomeDealerBlackjack Outcome = "dealer_blackjack"
	OutcomeBothBlackjack   Outcome = "both_blackjack"
	OutcomePlayerBust      Outcome = "player_bust"
	OutcomeDealerBust      Outcome = "dealer_bust"
	OutcomePlayerWins      Outcome = "player_wins"
	OutcomeDealerWins      Outcome = "dealer_wins"
	OutcomePush            Outcome = "push"
)

// Returned amount per unit of bet, stake included
var payoutMultipliers = map[Outcome]decimal.Decimal{
	OutcomePlayerBlackjack: decimal.RequireFromString("2.5"),
	OutcomeDealerBust:      decimal.NewFromInt(2),
	OutcomePlayerWins:      decimal.NewFromInt(2),
	OutcomeBothBlackjack:   decimal.NewFromInt(1),
	OutcomePush:            decimal.NewFromInt(1),
	OutcomeDealerBlackjack: decimal.Zero,
	OutcomePlayerBust:      decimal.Zero,
	OutcomeDealerWins:      decimal.Zero,
}

// String returns the string representation of the outcome
func (o Outcome) String() string {
	return string(o)
}

// Message returns the text shown to the player for the outcome
func (o Outcome) Message() string {
	switch o {
	case OutcomePlayerBlackjack:
		return "Blackjack! You win!"
	case OutcomeDealerBlackjack:
		return "Dealer has Blackjack!"
	case OutcomeBothBlackjack:
		return "Push - Both have Blackjack"
	case OutcomePlayerBust:
		return "Bust! You lose."
	case OutcomeDealerBust:
		return "Dealer busts! You win!"
	case OutcomePlayerWins:
		return "You win!"
	case OutcomeDealerWins:
		return "Dealer wins."
	case OutcomePush:
		return "Push (Tie)"
	default:
		return ""
	}
}

// Payout returns the amount handed back to the player for a bet,
// stake included. Fractions of a unit are truncated.
func (o Outcome) Payout(bet int) int {
	m, ok := payoutMultipliers[o]
	if !ok || bet <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(bet)).Mul(m).IntPart())
}

// IsWin reports whether the player gained chips
func (o Outcome) IsWin() bool {
	return o == OutcomePlayerBlackjack || o == OutcomeDealerBust || o == OutcomePlayerWins
}

// IsPush reports whether the bet is returned unchanged
func (o Outcome) IsPush() bool {
	return o == OutcomeBothBlackjack || o == OutcomePush
}

// CardValue returns the blackjack value of a card, counting an ace as 11
func CardValue(card Card) int {
	return card.Rank.Value()
}

// handTotals returns the best total and how many aces are still counted as 11
func handTotals(hand []Card) (int, int) {
	total := 0
	softAces := 0

	for _, card := range hand {
		if card.Rank == Ace {
			softAces++
		}
		total += CardValue(card)
	}

	for total > 21 && softAces > 0 {
		total -= 10
		softAces--
	}

	return total, softAces
}

// HandValue returns the best value of a hand, demoting aces from 11 to 1
// while the hand would otherwise bust
func HandValue(hand []Card) int {
	total, _ := handTotals(hand)
	return total
}

// IsSoft reports whether at least one ace in the hand still counts as 11
func IsSoft(hand []Card) bool {
	_, softAces := handTotals(hand)
	return softAces > 0
}

// IsBlackjack reports a two-card 21
func IsBlackjack(hand []Card) bool {
	return len(hand) == 2 && HandValue(hand) == 21
}

// IsBust reports a hand over 21
func IsBust(hand []Card) bool {
	return HandValue(hand) > 21
}

// DetermineOutcome compares the player's hand against the dealer's.
// Blackjacks are checked first, then busts, then totals.
func DetermineOutcome(playerHand, dealerHand []Card) Outcome {
	playerBJ := IsBlackjack(playerHand)
	dealerBJ := IsBlackjack(dealerHand)

	switch {
	case playerBJ && !dealerBJ:
		return OutcomePlayerBlackjack
	case dealerBJ && !playerBJ:
		return OutcomeDealerBlackjack
	case playerBJ && dealerBJ:
		return OutcomeBothBlackjack
	}

	playerScore := HandValue(playerHand)
	dealerScore := HandValue(dealerHand)

	switch {
	case playerScore > 21:
		return OutcomePlayerBust
	case dealerScore > 21:
		return OutcomeDealerBust
	case playerScore > dealerScore:
		return OutcomePlayerWins
	case dealerScore > playerScore:
		return OutcomeDealerWins
	default:
		return OutcomePush
	}
}

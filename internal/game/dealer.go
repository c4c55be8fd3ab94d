package game

// DealerStandsOn is the total at which the dealer stops drawing
const DealerStandsOn = 17

// ShouldDealerHit reports whether the dealer draws another card.
// Soft 17 stands.
func ShouldDealerHit(hand []Card) bool {
	return HandValue(hand) < DealerStandsOn
}

package game

// ChipDenominations are the chip values used to draw a pile, largest first
var ChipDenominations = []int{5000, 1000, 500, 100, 25, 5, 1}

// DefaultBetChips are the chips offered on the betting panel
var DefaultBetChips = []int{100, 500, 1000, 5000}

// MaxPileChips caps the chips drawn for one pile
const MaxPileChips = 100

// AmountToChips breaks an amount into chips, largest denomination first.
// The pile stops at MaxPileChips chips.
func AmountToChips(amount int) []int {
	if amount <= 0 {
		return []int{}
	}

	chips := []int{}
	remaining := amount
	for _, denom := range ChipDenominations {
		n := min(remaining/denom, MaxPileChips-len(chips))
		for range n {
			chips = append(chips, denom)
		}
		remaining -= n * denom
		if len(chips) == MaxPileChips {
			break
		}
	}

	return chips
}

package game

import (
	"math/rand"
	"time"
)

// DeckSize is the number of cards in a fresh deck
const DeckSize = 52

// Deck is a stack of cards; Draw takes from the top (the end of Cards)
type Deck struct {
	Cards []Card
}

// NewDeck creates a standard 52-card deck shuffled with rng.
// A nil rng falls back to a time seeded source.
func NewDeck(rng *rand.Rand) *Deck {
	deck := &Deck{Cards: make([]Card, 0, DeckSize)}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck.Cards = append(deck.Cards, NewCard(suit, rank))
		}
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	deck.Shuffle(rng)

	return deck
}

// NewStackedDeck builds a deck whose draws return cards in the given order.
// Used to replay a known deal.
func NewStackedDeck(order ...Card) *Deck {
	cards := make([]Card, len(order))
	for i, c := range order {
		cards[len(order)-1-i] = c
	}
	return &Deck{Cards: cards}
}

// Shuffle randomizes the order of cards in the deck
func (d *Deck) Shuffle(rng *rand.Rand) {
	// Fisher-Yates
	for i := len(d.Cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	}
}

// Draw removes and returns the top card of the deck
func (d *Deck) Draw() (Card, bool) {
	if len(d.Cards) == 0 {
		return Card{}, false
	}

	top := len(d.Cards) - 1
	card := d.Cards[top]
	d.Cards = d.Cards[:top]
	return card, true
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.Cards)
}

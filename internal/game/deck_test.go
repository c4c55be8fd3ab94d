package game

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeck(t *testing.T) {
	deck := NewDeck(rand.New(rand.NewSource(0)))
	require.Equal(t, DeckSize, deck.Remaining())

	ids := make(map[string]bool)
	pairs := make(map[string]bool)
	for _, c := range deck.Cards {
		assert.NotEmpty(t, c.ID)
		assert.False(t, ids[c.ID], "duplicate card id %s", c.ID)
		ids[c.ID] = true

		key := string(c.Suit) + "/" + string(c.Rank)
		assert.False(t, pairs[key], "duplicate card %s", key)
		pairs[key] = true
	}
	assert.Len(t, pairs, 52)
}

func TestNewDeckIsShuffled(t *testing.T) {
	ordered := make([]string, 0, DeckSize)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			ordered = append(ordered, string(rank)+string(suit))
		}
	}

	rng := rand.New(rand.NewSource(42))
	identical := 0
	for trial := 0; trial < 20; trial++ {
		deck := NewDeck(rng)
		same := true
		for i, c := range deck.Cards {
			if string(c.Rank)+string(c.Suit) != ordered[i] {
				same = false
				break
			}
		}
		if same {
			identical++
		}
	}
	assert.Zero(t, identical)
}

func TestNewDeckNilRand(t *testing.T) {
	deck := NewDeck(nil)
	assert.Equal(t, DeckSize, deck.Remaining())
}

func TestDeckDraw(t *testing.T) {
	deck := NewDeck(rand.New(rand.NewSource(7)))
	top := deck.Cards[len(deck.Cards)-1]

	card, ok := deck.Draw()
	require.True(t, ok)
	assert.Equal(t, top, card, "draws come off the end of the stack")
	assert.Equal(t, DeckSize-1, deck.Remaining())

	dealt := 1
	for {
		if _, ok := deck.Draw(); !ok {
			break
		}
		dealt++
		assert.Equal(t, DeckSize, dealt+deck.Remaining())
	}
	assert.Equal(t, DeckSize, dealt)

	_, ok = deck.Draw()
	assert.False(t, ok)
}

func TestNewStackedDeck(t *testing.T) {
	first := NewCard(Spades, Ace)
	second := NewCard(Hearts, Two)
	deck := NewStackedDeck(first, second)

	c, ok := deck.Draw()
	require.True(t, ok)
	assert.Equal(t, first, c)

	c, ok = deck.Draw()
	require.True(t, ok)
	assert.Equal(t, second, c)
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "A♠", Card{Suit: Spades, Rank: Ace}.String())
	assert.Equal(t, "10♥", Card{Suit: Hearts, Rank: Ten}.String())
	assert.True(t, Diamonds.IsRed())
	assert.False(t, Clubs.IsRed())
}

func TestAmountToChips(t *testing.T) {
	assert.Empty(t, AmountToChips(0))
	assert.Empty(t, AmountToChips(-5))
	assert.Equal(t, []int{5000, 5000}, AmountToChips(10000))
	assert.Equal(t, []int{1000, 500, 100, 25, 5, 1, 1}, AmountToChips(1632))
	assert.Equal(t, []int{100, 100, 25, 25, 25, 5, 5}, AmountToChips(285))
}

func TestAmountToChipsIsBounded(t *testing.T) {
	chips := AmountToChips(math.MaxInt)
	require.Len(t, chips, MaxPileChips)
	assert.Equal(t, 5000, chips[0])
	assert.Equal(t, 5000, chips[MaxPileChips-1])

	chips = AmountToChips(99*5000 + 1000 + 500)
	require.Len(t, chips, MaxPileChips)
	assert.Equal(t, 1000, chips[MaxPileChips-1])
}

package cards

import (
	"errors"
	rand "math/rand/v2"
)

const SetSize = 52

var ErrEmptyDeck = errors.New("deck is empty")

// Deck is a stack of cards; the last element is the top.
type Deck struct {
	cards []Card
}

// NewDeck builds a deck in the given order. The last card is drawn first.
func NewDeck(cs ...Card) Deck {
	return Deck{cards: append([]Card(nil), cs...)}
}

// BuildDeck returns deckCount full 52-card sets shuffled together.
func BuildDeck(deckCount int, rng *rand.Rand) Deck {
	if deckCount < 1 {
		deckCount = 1
	}
	cs := make([]Card, 0, deckCount*SetSize)
	for range deckCount {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				cs = append(cs, Card{Rank: rank, Suit: suit})
			}
		}
	}
	shuffle(cs, rng)
	return Deck{cards: cs}
}

// shuffle is Fisher-Yates; j is drawn from [0, i] so every permutation is equally likely.
func shuffle(cs []Card, rng *rand.Rand) {
	for i := len(cs) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cs[i], cs[j] = cs[j], cs[i]
	}
}

func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}
	top := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return top, nil
}

func (d Deck) Len() int { return len(d.cards) }

// Cards returns a copy in stack order, top last.
func (d Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}

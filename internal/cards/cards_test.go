package cards

import (
	"encoding/json"
	"testing"

	"github.com/DoyleJ11/blackjack-backend/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(r Rank, s Suit) Card { return Card{Rank: r, Suit: s} }

func TestHandValue(t *testing.T) {
	cases := []struct {
		name string
		hand []Card
		want int
	}{
		{name: "empty", hand: nil, want: 0},
		{name: "pips", hand: []Card{c(Two, Clubs), c(Nine, Hearts)}, want: 11},
		{name: "faces are ten", hand: []Card{c(Jack, Spades), c(Queen, Hearts), c(King, Clubs)}, want: 30},
		{name: "blackjack", hand: []Card{c(Ace, Spades), c(King, Hearts)}, want: 21},
		{name: "pair of aces", hand: []Card{c(Ace, Spades), c(Ace, Hearts)}, want: 12},
		{name: "soft seventeen hardens", hand: []Card{c(Ace, Spades), c(Six, Hearts), c(Ten, Clubs)}, want: 17},
		{name: "four aces", hand: []Card{c(Ace, Spades), c(Ace, Hearts), c(Ace, Diamonds), c(Ace, Clubs)}, want: 14},
		{name: "bust with softened ace", hand: []Card{c(Ace, Spades), c(King, Hearts), c(Queen, Clubs), c(Five, Clubs)}, want: 26},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HandValue(tc.hand))
		})
	}
}

func TestHandValue_AddingAnAce(t *testing.T) {
	for total := 2; total <= 20; total++ {
		hand := handTotalling(total)
		require.Equal(t, total, HandValue(hand))

		withAce := append(append([]Card(nil), hand...), c(Ace, Diamonds))
		if total <= 10 {
			assert.Equal(t, total+11, HandValue(withAce), "total %d", total)
		} else {
			assert.Equal(t, total+1, HandValue(withAce), "total %d", total)
		}
	}
}

// handTotalling builds an ace-free hand summing to total (2..20).
func handTotalling(total int) []Card {
	var hand []Card
	for total > 10 {
		hand = append(hand, c(Ten, Spades))
		total -= 10
	}
	if total == 1 {
		// swap a ten for a nine and a two
		hand[len(hand)-1] = c(Nine, Spades)
		total = 2
	}
	if total >= 2 {
		hand = append(hand, c(Rank(total), Hearts))
	}
	return hand
}

func TestHandValue_NonAceHandsSumFaceValues(t *testing.T) {
	rng := randutil.New(7)
	for range 200 {
		d := BuildDeck(1, rng)
		var hand []Card
		want := 0
		for len(hand) < 5 {
			card, err := d.Draw()
			require.NoError(t, err)
			if card.Rank == Ace {
				continue
			}
			hand = append(hand, card)
			if card.Rank >= Jack {
				want += 10
			} else {
				want += int(card.Rank)
			}
		}
		assert.Equal(t, want, HandValue(hand))
	}
}

func TestCardJSON(t *testing.T) {
	b, err := json.Marshal(c(King, Clubs))
	require.NoError(t, err)
	assert.JSONEq(t, `{"rank":"K","suit":"♣"}`, string(b))

	var got Card
	require.NoError(t, json.Unmarshal([]byte(`{"rank":"10","suit":"♥"}`), &got))
	assert.Equal(t, c(Ten, Hearts), got)

	assert.Error(t, json.Unmarshal([]byte(`{"rank":"1","suit":"♥"}`), &got))
}

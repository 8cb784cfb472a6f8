package cards

import (
	"testing"

	"github.com/DoyleJ11/blackjack-backend/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeck_Composition(t *testing.T) {
	for _, n := range []int{1, 6} {
		d := BuildDeck(n, randutil.New(int64(n)))
		require.Equal(t, n*SetSize, d.Len())

		counts := map[Card]int{}
		for _, card := range d.Cards() {
			counts[card]++
		}
		require.Len(t, counts, SetSize)
		for card, got := range counts {
			assert.Equal(t, n, got, "card %s", card)
		}
	}
}

func TestBuildDeck_SameSeedSameOrder(t *testing.T) {
	a := BuildDeck(1, randutil.New(42))
	b := BuildDeck(1, randutil.New(42))
	assert.Equal(t, a.Cards(), b.Cards())
}

func TestDeck_DrawPopsTop(t *testing.T) {
	d := NewDeck(c(Ten, Spades), c(Seven, Hearts), c(Five, Diamonds), c(King, Clubs))

	var got []Card
	for d.Len() > 0 {
		card, err := d.Draw()
		require.NoError(t, err)
		got = append(got, card)
	}
	assert.Equal(t, []Card{c(King, Clubs), c(Five, Diamonds), c(Seven, Hearts), c(Ten, Spades)}, got)

	_, err := d.Draw()
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestDeck_ReadsOnValue(t *testing.T) {
	assert.Equal(t, SetSize, BuildDeck(1, randutil.New(3)).Len())
	assert.Equal(t, []Card{c(Ace, Spades)}, NewDeck(c(Ace, Spades)).Cards())
}

// Every card should land in every position with roughly equal frequency. With
// 52 cells per position the expected count is trials/52; a biased shuffle keeps
// cards near their starting slot and blows well past the tolerance.
func TestBuildDeck_ShuffleIsUniform(t *testing.T) {
	const trials = 52 * 400
	rng := randutil.New(1)

	positions := []int{0, 25, 51}
	counts := make(map[int]map[Card]int, len(positions))
	for _, p := range positions {
		counts[p] = map[Card]int{}
	}

	for range trials {
		cs := BuildDeck(1, rng).Cards()
		for _, p := range positions {
			counts[p][cs[p]]++
		}
	}

	expected := float64(trials) / SetSize
	for _, p := range positions {
		require.Len(t, counts[p], SetSize, "position %d never saw some cards", p)
		chi2 := 0.0
		for _, n := range counts[p] {
			diff := float64(n) - expected
			chi2 += diff * diff / expected
		}
		// 51 degrees of freedom; p < 1e-4 cutoff is about 98.
		assert.Less(t, chi2, 98.0, "position %d chi-squared %.1f", p, chi2)
	}
}

package cards

import (
	"fmt"
	"strings"
)

type Suit uint8

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var suitSymbols = [...]string{Spades: "♠", Hearts: "♥", Diamonds: "♦", Clubs: "♣"}

func (s Suit) String() string {
	if int(s) < len(suitSymbols) {
		return suitSymbols[s]
	}
	return "?"
}

func (s Suit) MarshalText() ([]byte, error) {
	if int(s) >= len(suitSymbols) {
		return nil, fmt.Errorf("invalid suit %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	for i, sym := range suitSymbols {
		if sym == string(b) {
			*s = Suit(i)
			return nil
		}
	}
	return fmt.Errorf("invalid suit %q", b)
}

// Rank values match their pip count for Two..Ten.
type Rank uint8

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

func (r Rank) String() string {
	switch {
	case r >= Two && r <= Ten:
		return fmt.Sprint(uint8(r))
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	}
	return "?"
}

func (r Rank) MarshalText() ([]byte, error) {
	if r < Two || r > Ace {
		return nil, fmt.Errorf("invalid rank %d", r)
	}
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	s := strings.ToUpper(string(b))
	for rank := Two; rank <= Ace; rank++ {
		if rank.String() == s {
			*r = rank
			return nil
		}
	}
	return fmt.Errorf("invalid rank %q", b)
}

// Points is the rank's value with aces counted high.
func (r Rank) Points() int {
	switch {
	case r == Ace:
		return 11
	case r >= Jack:
		return 10
	default:
		return int(r)
	}
}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string { return c.Rank.String() + c.Suit.String() }

// HandValue scores a hand, softening aces from 11 to 1 one at a time while the
// total is over 21.
func HandValue(hand []Card) int {
	total, aces := 0, 0
	for _, c := range hand {
		total += c.Rank.Points()
		if c.Rank == Ace {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func Busted(hand []Card) bool { return HandValue(hand) > 21 }

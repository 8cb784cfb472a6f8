package engine

import (
	"fmt"
	"strings"

	"github.com/DoyleJ11/blackjack-backend/internal/cards"
)

func (s *Session) advanceTurn() []Event {
	return s.advanceFrom(s.Cursor + 1)
}

// advanceFrom moves the cursor to the first eligible member at or after start,
// wrapping once around the table. With nobody left to act the round finishes.
func (s *Session) advanceFrom(start int) []Event {
	n := len(s.Members)
	for k := range n {
		i := (start + k) % n
		if s.Members[i].eligible() {
			s.Cursor = i
			return []Event{{Type: EvtTurnChanged, ActingPlayerID: s.Members[i].ID}}
		}
	}
	return []Event{s.finish()}
}

func (s *Session) finish() Event {
	s.Phase = PhaseFinished
	results, winners := s.computeOutcome()

	evt := Event{
		Type:    EvtRoundFinished,
		Results: results,
		Winners: winners,
		Summary: summarize(results, winners),
	}
	for _, p := range s.Members {
		evt.Hands = append(evt.Hands, handView(p))
	}
	return evt
}

// computeOutcome ranks every non-busted hand; all members sharing the best
// value win.
func (s *Session) computeOutcome() ([]Result, []string) {
	best := -1
	for _, p := range s.Members {
		if v := cards.HandValue(p.Hand); !p.Busted && v > best {
			best = v
		}
	}

	results := make([]Result, 0, len(s.Members))
	winners := []string{}
	for _, p := range s.Members {
		r := Result{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			Busted:      p.Busted,
			Value:       cards.HandValue(p.Hand),
		}
		if !p.Busted && r.Value == best {
			r.Winner = true
			winners = append(winners, p.ID)
		}
		results = append(results, r)
	}
	return results, winners
}

func summarize(results []Result, winners []string) string {
	if len(winners) == 0 {
		return "No winners, all busted."
	}
	var names []string
	value := 0
	for _, r := range results {
		if r.Winner {
			names = append(names, label(r.PlayerID, r.DisplayName))
			value = r.Value
		}
	}
	return fmt.Sprintf("Winner(s): %s with %d", strings.Join(names, ", "), value)
}

func label(id, name string) string {
	if name != "" {
		return name
	}
	if len(id) > 5 {
		return id[:5]
	}
	return id
}

package engine

import (
	"encoding/json"
	"errors"
	rand "math/rand/v2"

	"github.com/DoyleJ11/blackjack-backend/internal/cards"
)

const ReasonTurnTimeout = "turn_timeout"

var reasons = []struct {
	err    error
	reason string
}{
	{ErrNotFound, "not_found"},
	{ErrFull, "full"},
	{ErrAlreadyStarted, "already_started"},
	{ErrNotHost, "not_host"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrInvalidPhase, "invalid_phase"},
	{ErrDeckExhausted, "deck_exhausted"},
	{ErrUnknownPlayer, "unknown_player"},
	{ErrAlreadyJoined, "already_joined"},
	{ErrUnsupportedCommand, "unsupported"},
}

// Reason maps an engine error to its wire reason.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal"
}

// Rejection builds the requester-only reply for a failed command.
func Rejection(to string, cmd CommandType, err error) Event {
	typ := EvtActionRejected
	if cmd == CmdJoin {
		typ = EvtJoinRejected
	}
	return Event{Type: typ, To: to, Reason: Reason(err)}
}

// MarshalJSON emits every collection the event type carries, as [] when empty.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	switch e.Type {
	case EvtRoundFinished:
		return json.Marshal(struct {
			plain
			Hands   []HandView `json:"hands"`
			Results []Result   `json:"results"`
			Winners []string   `json:"winners"`
		}{plain(e), orEmpty(e.Hands), orEmpty(e.Results), orEmpty(e.Winners)})
	case EvtRoundStarted:
		return json.Marshal(struct {
			plain
			Hands []HandView `json:"hands"`
		}{plain(e), orEmpty(e.Hands)})
	case EvtJoined, EvtMembershipChanged:
		return json.Marshal(struct {
			plain
			Members []Member `json:"members"`
		}{plain(e), orEmpty(e.Members)})
	}
	return json.Marshal(plain(e))
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ViewFor projects e for one viewer. While a round is running other players'
// first card is withheld; busted hands are shown in full.
func (e Event) ViewFor(viewer string) Event {
	switch e.Type {
	case EvtRoundStarted:
		hands := make([]HandView, len(e.Hands))
		for i, h := range e.Hands {
			hands[i] = h.visibleTo(viewer)
		}
		e.Hands = hands
	case EvtHandUpdated:
		if e.Hand != nil {
			h := e.Hand.visibleTo(viewer)
			e.Hand = &h
		}
	}
	return e
}

func (h HandView) visibleTo(viewer string) HandView {
	if h.PlayerID == viewer || h.Busted || len(h.Cards) == 0 {
		return h
	}
	up := append([]cards.Card(nil), h.Cards[1:]...)
	h.Cards = up
	h.Value = cards.HandValue(up)
	h.Hidden = 1
	return h
}

func handView(p *Player) HandView {
	return HandView{
		PlayerID:    p.ID,
		Cards:       append([]cards.Card(nil), p.Hand...),
		Value:       cards.HandValue(p.Hand),
		Standing:    p.Standing,
		Busted:      p.Busted,
		ForcedStand: p.ForcedStand,
	}
}

func (s *Session) handEvent(p *Player) Event {
	h := handView(p)
	return Event{Type: EvtHandUpdated, PlayerID: p.ID, Hand: &h}
}

func (s *Session) membershipEvent() Event {
	evt := Event{Type: EvtMembershipChanged, HostID: s.HostID}
	for _, p := range s.Members {
		evt.Members = append(evt.Members, Member{ID: p.ID, DisplayName: p.DisplayName})
	}
	return evt
}

func (s *Session) Empty() bool { return len(s.Members) == 0 }

// Snapshot is a deep copy of a session for readers outside its owner.
type Snapshot struct {
	Code           string   `json:"code"`
	Phase          Phase    `json:"phase"`
	HostID         string   `json:"hostId"`
	ActingPlayerID string   `json:"actingPlayerId,omitempty"`
	DeckRemaining  int      `json:"deckRemaining"`
	Members        []Player `json:"members"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Code:          s.Code,
		Phase:         s.Phase,
		HostID:        s.HostID,
		DeckRemaining: s.Deck.Len(),
		Members:       make([]Player, 0, len(s.Members)),
	}
	if s.Phase == PhaseInProgress && s.Cursor < len(s.Members) {
		snap.ActingPlayerID = s.Members[s.Cursor].ID
	}
	for _, p := range s.Members {
		cp := *p
		cp.Hand = append([]cards.Card(nil), p.Hand...)
		snap.Members = append(snap.Members, cp)
	}
	return snap
}

// RandomDeck shuffles a fresh DeckCount-set deck from rng for every round.
func RandomDeck(rng *rand.Rand) DeckSource {
	return func() cards.Deck { return cards.BuildDeck(DeckCount, rng) }
}

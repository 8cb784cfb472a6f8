package engine

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/blackjack-backend/internal/cards"
)

var ErrNotFound = errors.New("session not found")
var ErrFull = errors.New("session is full")
var ErrAlreadyStarted = errors.New("session already started")
var ErrNotHost = errors.New("only the host can start the round")
var ErrNotYourTurn = errors.New("not your turn")
var ErrInvalidPhase = errors.New("action not valid in this phase")
var ErrDeckExhausted = errors.New("deck exhausted")
var ErrUnknownPlayer = errors.New("player not in session")
var ErrAlreadyJoined = errors.New("player already in session")
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	MaxMembers = 8
	DeckCount  = 1
)

type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

type Player struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"displayName,omitempty"`
	Hand        []cards.Card `json:"hand"`
	Standing    bool         `json:"standing"`
	Busted      bool         `json:"busted"`
	ForcedStand bool         `json:"forcedStand,omitempty"`
}

func (p *Player) eligible() bool { return !p.Standing && !p.Busted }

// DeckSource supplies the deck for each new round.
type DeckSource func() cards.Deck

type Session struct {
	Code    string
	Members []*Player // join order is turn order
	HostID  string
	Deck    cards.Deck
	Cursor  int
	Phase   Phase

	newDeck DeckSource
}

type CommandType string

const (
	CmdJoin           CommandType = "Join"
	CmdStart          CommandType = "Start"
	CmdHit            CommandType = "Hit"
	CmdStand          CommandType = "Stand"
	CmdLeave          CommandType = "Leave"
	CmdTimeoutAdvance CommandType = "TimeoutAdvance"
)

/*
	CmdJoin           -> EvtJoined (to joiner) -> EvtMembershipChanged
	CmdStart          -> EvtRoundStarted -> EvtTurnChanged
	CmdHit            -> EvtHandUpdated [-> EvtTurnChanged | EvtRoundFinished when the hit busts]
	CmdStand          -> EvtHandUpdated -> EvtTurnChanged | EvtRoundFinished
	CmdTimeoutAdvance -> same as CmdStand with forcedStand set
	CmdLeave          -> EvtMembershipChanged [-> EvtHostChanged] [-> EvtTurnChanged | EvtRoundFinished]
*/

type Command struct {
	Type        CommandType
	PlayerID    string
	DisplayName string
}

type EventType string

const (
	EvtSessionCreated    EventType = "session-created"
	EvtJoined            EventType = "joined"
	EvtJoinRejected      EventType = "join-rejected"
	EvtActionRejected    EventType = "action-rejected"
	EvtMembershipChanged EventType = "membership-changed"
	EvtHostChanged       EventType = "host-changed"
	EvtRoundStarted      EventType = "round-started"
	EvtTurnChanged       EventType = "turn-changed"
	EvtHandUpdated       EventType = "hand-updated"
	EvtRoundFinished     EventType = "round-finished"
)

// Event is an outbound notification. An empty To addresses the whole room.
type Event struct {
	Type           EventType  `json:"type"`
	To             string     `json:"-"`
	Code           string     `json:"code,omitempty"`
	PlayerID       string     `json:"playerId,omitempty"`
	HostID         string     `json:"hostId,omitempty"`
	ActingPlayerID string     `json:"actingPlayerId,omitempty"`
	Members        []Member   `json:"members,omitempty"`
	Hands          []HandView `json:"hands,omitempty"`
	Hand           *HandView  `json:"hand,omitempty"`
	Results        []Result   `json:"results,omitempty"`
	Winners        []string   `json:"winners,omitempty"`
	Summary        string     `json:"summaryText,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

type HandView struct {
	PlayerID    string       `json:"playerId"`
	Cards       []cards.Card `json:"hand"`
	Value       int          `json:"value"`
	Hidden      int          `json:"hidden,omitempty"`
	Standing    bool         `json:"standing"`
	Busted      bool         `json:"busted"`
	ForcedStand bool         `json:"forcedStand,omitempty"`
}

type Result struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName,omitempty"`
	Busted      bool   `json:"busted"`
	Value       int    `json:"value"`
	Winner      bool   `json:"winner"`
}

// NewSession creates a waiting session with host as its only member.
func NewSession(code string, host Player, newDeck DeckSource) (*Session, []Event) {
	s := &Session{
		Code:    code,
		HostID:  host.ID,
		Phase:   PhaseWaiting,
		newDeck: newDeck,
	}
	s.Members = append(s.Members, &Player{ID: host.ID, DisplayName: host.DisplayName})

	events := []Event{
		{Type: EvtSessionCreated, To: host.ID, Code: code, PlayerID: host.ID, HostID: host.ID},
		s.membershipEvent(),
	}
	return s, events
}

// Apply validates cmd against the current phase and turn, mutates the session
// and returns the events to deliver. On error the session is unchanged.
func (s *Session) Apply(cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdJoin:
		return s.join(cmd.PlayerID, cmd.DisplayName)
	case CmdStart:
		return s.start(cmd.PlayerID)
	case CmdHit:
		return s.hit(cmd.PlayerID)
	case CmdStand:
		return s.stand(cmd.PlayerID, false)
	case CmdTimeoutAdvance:
		return s.stand(cmd.PlayerID, true)
	case CmdLeave:
		return s.leave(cmd.PlayerID)
	default:
		return nil, ErrUnsupportedCommand
	}
}

func (s *Session) join(id, name string) ([]Event, error) {
	if s.indexOf(id) >= 0 {
		return nil, ErrAlreadyJoined
	}
	if s.Phase != PhaseWaiting {
		return nil, ErrAlreadyStarted
	}
	if len(s.Members) >= MaxMembers {
		return nil, ErrFull
	}

	s.Members = append(s.Members, &Player{ID: id, DisplayName: name})

	membership := s.membershipEvent()
	joined := Event{
		Type:     EvtJoined,
		To:       id,
		Code:     s.Code,
		PlayerID: id,
		HostID:   s.HostID,
		Members:  membership.Members,
	}
	return []Event{joined, membership}, nil
}

func (s *Session) start(id string) ([]Event, error) {
	if id != s.HostID {
		return nil, ErrNotHost
	}
	if s.Phase != PhaseWaiting {
		return nil, ErrInvalidPhase
	}

	deck := s.newDeck()
	if deck.Len() < 2*len(s.Members) {
		return nil, ErrDeckExhausted
	}

	for _, p := range s.Members {
		p.Hand = make([]cards.Card, 0, 2)
		p.Standing, p.Busted, p.ForcedStand = false, false, false
		for range 2 {
			card, _ := deck.Draw()
			p.Hand = append(p.Hand, card)
		}
	}
	s.Deck = deck
	s.Phase = PhaseInProgress
	s.Cursor = 0

	acting := s.Members[s.Cursor].ID
	started := Event{Type: EvtRoundStarted, ActingPlayerID: acting}
	for _, p := range s.Members {
		started.Hands = append(started.Hands, handView(p))
	}
	return []Event{started, {Type: EvtTurnChanged, ActingPlayerID: acting}}, nil
}

func (s *Session) hit(id string) ([]Event, error) {
	p, err := s.actor(id)
	if err != nil {
		return nil, err
	}

	card, err := s.Deck.Draw()
	if err != nil {
		// Nothing left to draw: the actor keeps their total and is stood.
		p.Standing, p.ForcedStand = true, true
		evt := s.handEvent(p)
		evt.Reason = Reason(ErrDeckExhausted)
		return append([]Event{evt}, s.advanceTurn()...), nil
	}

	p.Hand = append(p.Hand, card)
	if cards.Busted(p.Hand) {
		p.Busted, p.Standing = true, true
		return append([]Event{s.handEvent(p)}, s.advanceTurn()...), nil
	}
	return []Event{s.handEvent(p)}, nil
}

func (s *Session) stand(id string, forced bool) ([]Event, error) {
	p, err := s.actor(id)
	if err != nil {
		return nil, err
	}

	p.Standing = true
	p.ForcedStand = forced
	evt := s.handEvent(p)
	if forced {
		evt.Reason = ReasonTurnTimeout
	}
	return append([]Event{evt}, s.advanceTurn()...), nil
}

func (s *Session) leave(id string) ([]Event, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrUnknownPlayer
	}

	wasActing := s.Phase == PhaseInProgress && i == s.Cursor
	s.Members = slices.Delete(s.Members, i, i+1)
	if len(s.Members) == 0 {
		return nil, nil
	}

	events := []Event{s.membershipEvent()}
	if id == s.HostID {
		s.HostID = s.Members[0].ID
		events = append(events, Event{Type: EvtHostChanged, HostID: s.HostID})
	}

	if s.Phase == PhaseInProgress {
		switch {
		case wasActing:
			// The next member in turn order now sits at index i.
			events = append(events, s.advanceFrom(i)...)
		case i < s.Cursor:
			s.Cursor--
		}
	}
	return events, nil
}

// actor returns the member allowed to act, or why id may not.
func (s *Session) actor(id string) (*Player, error) {
	if s.Phase != PhaseInProgress {
		return nil, ErrInvalidPhase
	}
	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrUnknownPlayer
	}
	if i != s.Cursor {
		return nil, ErrNotYourTurn
	}
	return s.Members[i], nil
}

func (s *Session) indexOf(id string) int {
	return slices.IndexFunc(s.Members, func(p *Player) bool { return p.ID == id })
}

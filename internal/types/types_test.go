package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/blackjack-backend/internal/cards"
	"github.com/DoyleJ11/blackjack-backend/internal/engine"
)

func TestFromEvent_AllBustedKeepsWinners(t *testing.T) {
	deck := func() cards.Deck {
		return cards.NewDeck(
			cards.Card{Rank: cards.King, Suit: cards.Spades},
			cards.Card{Rank: cards.King, Suit: cards.Hearts},
			cards.Card{Rank: cards.King, Suit: cards.Diamonds},
		)
	}
	s, _ := engine.NewSession("SOLO01", engine.Player{ID: "solo"}, deck)
	_, err := s.Apply(engine.Command{Type: engine.CmdStart, PlayerID: "solo"})
	require.NoError(t, err)
	events, err := s.Apply(engine.Command{Type: engine.CmdHit, PlayerID: "solo"})
	require.NoError(t, err)

	finished := events[len(events)-1]
	require.Equal(t, engine.EvtRoundFinished, finished.Type)

	raw, err := json.Marshal(FromEvent(3, finished))
	require.NoError(t, err)

	var msg struct {
		Type    string `json:"type"`
		Version int    `json:"version"`
		Data    struct {
			Winners     *[]string       `json:"winners"`
			Results     []engine.Result `json:"results"`
			SummaryText string          `json:"summaryText"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "round-finished", msg.Type)
	assert.Equal(t, 3, msg.Version)
	require.NotNil(t, msg.Data.Winners, "winners must be present: %s", raw)
	assert.Empty(t, *msg.Data.Winners)
	require.Len(t, msg.Data.Results, 1)
	assert.True(t, msg.Data.Results[0].Busted)
	assert.Equal(t, 30, msg.Data.Results[0].Value)
	assert.Equal(t, "No winners, all busted.", msg.Data.SummaryText)
}

func TestFromEvent_DropsRecipient(t *testing.T) {
	evt := engine.Rejection("p1", engine.CmdHit, engine.ErrNotYourTurn)
	raw, err := json.Marshal(FromEvent(0, evt))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"action-rejected","data":{"type":"action-rejected","reason":"not_your_turn"}}`, string(raw))
}

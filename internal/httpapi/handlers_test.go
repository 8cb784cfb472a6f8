package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/blackjack-backend/internal/engine"
	"github.com/DoyleJ11/blackjack-backend/internal/history"
	"github.com/DoyleJ11/blackjack-backend/internal/hub"
	"github.com/DoyleJ11/blackjack-backend/internal/lobby"
)

type fakeRounds struct {
	code  string
	limit int
	err   error
	recs  []history.RoundRecord
}

func (f *fakeRounds) Recent(_ context.Context, code string, limit int) ([]history.RoundRecord, error) {
	f.code, f.limit = code, limit
	return f.recs, f.err
}

func newTestRouter(t *testing.T, rounds RoundLister) (http.Handler, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, hub.Options{Codes: func() (string, error) { return "LOBBY1", nil }})
	return SetupRoutes(h, zaptest.NewLogger(t), Options{Rounds: rounds}), h
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthz(t *testing.T) {
	router, h := newTestRouter(t, nil)

	rr := get(t, router, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","lobbies":0}`, rr.Body.String())

	_, err := h.Create(context.Background(), engine.Player{ID: "p1"}, make(chan lobby.Envelope, 4))
	require.NoError(t, err)

	rr = get(t, router, "/healthz")
	assert.JSONEq(t, `{"status":"ok","lobbies":1}`, rr.Body.String())
}

func TestGetLobby(t *testing.T) {
	router, h := newTestRouter(t, nil)
	_, err := h.Create(context.Background(), engine.Player{ID: "p1"}, make(chan lobby.Envelope, 4))
	require.NoError(t, err)

	rr := get(t, router, "/lobbies/lobby1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got lobbySummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, lobbySummary{Code: "LOBBY1", Phase: engine.PhaseWaiting, HostID: "p1", Members: 1}, got)
}

func TestGetLobby_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := get(t, router, "/lobbies/NOPE00")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListRounds(t *testing.T) {
	t.Run("not mounted without a store", func(t *testing.T) {
		router, _ := newTestRouter(t, nil)
		assert.Equal(t, http.StatusNotFound, get(t, router, "/lobbies/ABC123/rounds").Code)
	})

	t.Run("default limit and normalized code", func(t *testing.T) {
		rounds := &fakeRounds{recs: []history.RoundRecord{{Code: "ABC123", Summary: "No winners, all busted."}}}
		router, _ := newTestRouter(t, rounds)

		rr := get(t, router, "/lobbies/abc123/rounds")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ABC123", rounds.code)
		assert.Equal(t, defaultRoundLimit, rounds.limit)

		var got []history.RoundRecord
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "No winners, all busted.", got[0].Summary)
	})

	t.Run("limit is capped", func(t *testing.T) {
		rounds := &fakeRounds{}
		router, _ := newTestRouter(t, rounds)
		require.Equal(t, http.StatusOK, get(t, router, "/lobbies/ABC123/rounds?limit=500").Code)
		assert.Equal(t, maxRoundLimit, rounds.limit)
	})

	t.Run("bad limit", func(t *testing.T) {
		router, _ := newTestRouter(t, &fakeRounds{})
		assert.Equal(t, http.StatusBadRequest, get(t, router, "/lobbies/ABC123/rounds?limit=zero").Code)
	})

	t.Run("store failure", func(t *testing.T) {
		router, _ := newTestRouter(t, &fakeRounds{err: errors.New("db down")})
		assert.Equal(t, http.StatusInternalServerError, get(t, router, "/lobbies/ABC123/rounds").Code)
	})
}

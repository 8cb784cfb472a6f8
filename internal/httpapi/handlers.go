package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/blackjack-backend/internal/engine"
	"github.com/DoyleJ11/blackjack-backend/internal/history"
	"github.com/DoyleJ11/blackjack-backend/internal/hub"
)

const (
	lookupTimeout     = 2 * time.Second
	defaultRoundLimit = 20
	maxRoundLimit     = 100
)

type RoundLister interface {
	Recent(ctx context.Context, code string, limit int) ([]history.RoundRecord, error)
}

type lobbySummary struct {
	Code    string       `json:"code"`
	Phase   engine.Phase `json:"phase"`
	HostID  string       `json:"hostId"`
	Members int          `json:"members"`
}

// GetLobby reports a lobby's public state; hands are never exposed here.
func GetLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
		defer cancel()

		lb, err := h.Get(ctx, chi.URLParam(r, "code"))
		if err != nil {
			writeLookupError(w, err)
			return
		}
		view, err := lb.State(ctx)
		if err != nil {
			writeLookupError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, lobbySummary{
			Code:    view.Session.Code,
			Phase:   view.Session.Phase,
			HostID:  view.Session.HostID,
			Members: len(view.Session.Members),
		})
	}
}

func ListRounds(rounds RoundLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRoundLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxRoundLimit)
		}

		recs, err := rounds.Recent(r.Context(), hub.NormalizeCode(chi.URLParam(r, "code")), limit)
		if err != nil {
			http.Error(w, "failed to load rounds", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
		defer cancel()

		n, err := h.Count(ctx)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Status  string `json:"status"`
			Lobbies int    `json:"lobbies"`
		}{Status: "ok", Lobbies: n})
	}
}

// RequestLogger logs one line per request with zap.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrNotFound) {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	http.Error(w, "lookup failed", http.StatusServiceUnavailable)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/blackjack-backend/internal/hub"
	"github.com/DoyleJ11/blackjack-backend/internal/ws"
)

type Options struct {
	WS ws.Options
	// Rounds serves round history when set.
	Rounds RoundLister
}

func SetupRoutes(h *hub.Hub, log *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz(h))
	r.Get("/lobbies/{code}", GetLobby(h))
	if opts.Rounds != nil {
		r.Get("/lobbies/{code}/rounds", ListRounds(opts.Rounds))
	}
	r.Get("/ws", ws.Handler(h, log, opts.WS))
	return r
}

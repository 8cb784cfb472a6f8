package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/blackjack-backend/internal/config"
	"github.com/DoyleJ11/blackjack-backend/internal/history"
	"github.com/DoyleJ11/blackjack-backend/internal/httpapi"
	"github.com/DoyleJ11/blackjack-backend/internal/hub"
	"github.com/DoyleJ11/blackjack-backend/internal/lobby"
	"github.com/DoyleJ11/blackjack-backend/internal/randutil"
	"github.com/DoyleJ11/blackjack-backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed := cfg.Seed
	if seed == 0 {
		seed = randutil.Seed()
	} else {
		log.Info("using deterministic seed", zap.Int64("seed", seed))
	}

	var recorder history.Recorder = history.Nop{}
	var routeOpts httpapi.Options
	if cfg.DatabaseURL != "" {
		store, err := history.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
		routeOpts.Rounds = store
		log.Info("round history enabled")
	}
	routeOpts.WS = ws.Options{OriginPatterns: cfg.AllowedOrigins}

	h := hub.NewHub(ctx, hub.Options{
		Logger: log,
		Seed:   seed,
		Lobby: lobby.Options{
			TurnTimeout: cfg.TurnTimeout,
			Recorder:    recorder,
		},
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, log, routeOpts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Duration("turn_timeout", cfg.TurnTimeout))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

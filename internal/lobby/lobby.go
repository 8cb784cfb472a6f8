package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/DoyleJ11/blackjack-backend/internal/engine"
	"github.com/DoyleJ11/blackjack-backend/internal/history"
)

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	PlayerID string
	Cmd      engine.Command
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	Player engine.Player
	Outbox chan Envelope // where this player wants to receive events
	Reply  chan error
}

func (Join) isLobbyMsg() {}

type Leave struct{ PlayerID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type timerFired struct {
	gen      int
	playerID string
}

func (timerFired) isLobbyMsg() {}

// Envelope is one event as seen by one player.
type Envelope struct {
	Version int
	Event   engine.Event
}

type View struct {
	Version    int
	NumClients int
	Session    engine.Snapshot
}

type Options struct {
	Logger      *zap.Logger
	Clock       quartz.Clock
	TurnTimeout time.Duration // zero disables the turn deadline
	Recorder    history.Recorder
	NewDeck     engine.DeckSource
	// OnClose runs on the lobby goroutine once the last member has left.
	OnClose func(code string, l *Lobby)
}

type Lobby struct {
	code    string
	inbox   chan Msg
	session *engine.Session
	version int
	clients map[string]chan Envelope
	opts    Options
	log     *zap.Logger

	timer    *quartz.Timer
	timerGen int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLobby starts a lobby whose only member is host. host's outbox receives
// the session-created acknowledgment.
func NewLobby(parent context.Context, code string, host engine.Player, hostOut chan Envelope, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Recorder == nil {
		opts.Recorder = history.Nop{}
	}

	session, initial := engine.NewSession(code, host, opts.NewDeck)
	l := &Lobby{
		code:    code,
		inbox:   make(chan Msg, 64), // Small buffer
		session: session,
		clients: make(map[string]chan Envelope),
		opts:    opts,
		log:     opts.Logger.With(zap.String("code", code)),
		ctx:     ctx,
		cancel:  cancel,
	}

	if hostOut != nil {
		l.clients[host.ID] = hostOut
	}

	go l.loop(initial)
	return l
}

func (l *Lobby) Code() string { return l.code }

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped processing messages.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Send delivers msg unless the lobby has already stopped.
func (l *Lobby) Send(ctx context.Context, msg Msg) error {
	select {
	case l.inbox <- msg:
		return nil
	case <-l.ctx.Done():
		return engine.ErrNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinAs adds p to the session and registers out for its events.
func (l *Lobby) JoinAs(ctx context.Context, p engine.Player, out chan Envelope) error {
	reply := make(chan error, 1)
	if err := l.Send(ctx, Join{Player: p, Outbox: out, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-l.ctx.Done():
		return engine.ErrNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.Send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.ctx.Done():
		return View{}, engine.ErrNotFound
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (l *Lobby) loop(initial []engine.Event) {
	l.dispatch(initial)

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				events, err := l.session.Apply(engine.Command{
					Type:        engine.CmdJoin,
					PlayerID:    msg.Player.ID,
					DisplayName: msg.Player.DisplayName,
				})
				msg.Reply <- err
				if err != nil {
					l.log.Debug("join rejected", zap.String("player", msg.Player.ID), zap.Error(err))
					break
				}
				l.clients[msg.Player.ID] = msg.Outbox
				l.commit(events)

			case Leave:
				l.disconnect(msg.PlayerID)

			case FromClient:
				l.fromClient(msg)

			case timerFired:
				if msg.gen != l.timerGen {
					break // superseded by a later turn
				}
				l.timer = nil
				events, err := l.session.Apply(engine.Command{Type: engine.CmdTimeoutAdvance, PlayerID: msg.playerID})
				if err != nil {
					l.log.Debug("stale turn timeout", zap.String("player", msg.playerID), zap.Error(err))
					break
				}
				l.log.Info("turn timed out", zap.String("player", msg.playerID))
				l.commit(events)

			case GetState:
				// reflect internal state without data races
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Session:    l.session.Snapshot(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}

		if l.session.Empty() {
			l.log.Info("lobby drained")
			l.shutdown()
			if l.opts.OnClose != nil {
				l.opts.OnClose(l.code, l)
			}
			return
		}
	}
}

func (l *Lobby) fromClient(msg FromClient) {
	cmd := msg.Cmd
	cmd.PlayerID = msg.PlayerID

	var events []engine.Event
	var err error
	switch cmd.Type {
	case engine.CmdStart, engine.CmdHit, engine.CmdStand:
		events, err = l.session.Apply(cmd)
	default:
		err = engine.ErrUnsupportedCommand
	}

	switch {
	case errors.Is(err, engine.ErrNotHost):
		// Non-hosts learn nothing about the session from a stray start.
		l.log.Debug("start from non-host ignored", zap.String("player", cmd.PlayerID))
	case err != nil:
		l.log.Debug("command rejected",
			zap.String("player", cmd.PlayerID),
			zap.String("cmd", string(cmd.Type)),
			zap.Error(err))
		l.dispatch([]engine.Event{engine.Rejection(cmd.PlayerID, cmd.Type, err)})
	default:
		l.commit(events)
	}
}

func (l *Lobby) disconnect(id string) {
	if ch, ok := l.clients[id]; ok {
		close(ch)
		delete(l.clients, id)
	}
	events, err := l.session.Apply(engine.Command{Type: engine.CmdLeave, PlayerID: id})
	if err != nil {
		return
	}
	l.log.Info("player left", zap.String("player", id), zap.Int("members", len(l.session.Members)))
	l.commit(events)
}

// commit records a state change: bump the version, rearm the turn deadline,
// then deliver.
func (l *Lobby) commit(events []engine.Event) {
	l.version++
	for _, evt := range events {
		switch evt.Type {
		case engine.EvtTurnChanged:
			l.armTurnTimer(evt.ActingPlayerID)
		case engine.EvtRoundFinished:
			l.stopTurnTimer()
			l.record(evt)
		}
	}
	l.dispatch(events)
}

func (l *Lobby) dispatch(events []engine.Event) {
	var dropped []string
	for _, evt := range events {
		if evt.To != "" {
			dropped = append(dropped, l.deliver(evt.To, evt)...)
			continue
		}
		for id := range l.clients {
			dropped = append(dropped, l.deliver(id, evt.ViewFor(id))...)
		}
	}
	for _, id := range dropped {
		l.log.Warn("dropping slow client", zap.String("player", id))
		l.disconnect(id)
	}
}

func (l *Lobby) deliver(id string, evt engine.Event) []string {
	ch, ok := l.clients[id]
	if !ok {
		return nil
	}
	select {
	case ch <- Envelope{Version: l.version, Event: evt}:
		return nil
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(l.clients, id)
		return []string{id}
	}
}

func (l *Lobby) armTurnTimer(playerID string) {
	if l.opts.TurnTimeout <= 0 {
		return
	}
	l.stopTurnTimer()
	l.timerGen++
	gen := l.timerGen
	l.timer = l.opts.Clock.AfterFunc(l.opts.TurnTimeout, func() {
		select {
		case l.inbox <- timerFired{gen: gen, playerID: playerID}:
		case <-l.ctx.Done():
		}
	}, "lobby", "turn")
}

func (l *Lobby) stopTurnTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.timerGen++
}

func (l *Lobby) record(evt engine.Event) {
	round := history.Round{
		Code:       l.code,
		FinishedAt: l.opts.Clock.Now(),
		Summary:    evt.Summary,
		Results:    evt.Results,
	}
	rec := l.opts.Recorder
	log := l.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rec.RecordRound(ctx, round); err != nil {
			log.Error("failed to record round", zap.Error(err))
		}
	}()
}

func (l *Lobby) shutdown() {
	l.stopTurnTimer()
	for id, ch := range l.clients {
		close(ch) // Tell client no more events
		delete(l.clients, id)
	}
	l.cancel()
}

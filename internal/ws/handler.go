package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/blackjack-backend/internal/engine"
	"github.com/DoyleJ11/blackjack-backend/internal/hub"
	"github.com/DoyleJ11/blackjack-backend/internal/lobby"
	"github.com/DoyleJ11/blackjack-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	leaveTimeout = 2 * time.Second
	outboxSize   = 32
)

type Options struct {
	// OriginPatterns is passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string
}

func Handler(h *hub.Hub, log *zap.Logger, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// The connection gets a stable player id; the engine never sees the socket.
		c := &client{
			id:     uuid.NewString(),
			conn:   conn,
			hub:    h,
			out:    make(chan lobby.Envelope, outboxSize),
			direct: make(chan types.ServerMessage, 8),
		}
		c.log = log.With(zap.String("player", c.id))
		c.log.Debug("client connected")
		c.serve(r.Context())
		c.log.Debug("client disconnected")
	}
}

type client struct {
	id     string
	conn   *websocket.Conn
	hub    *hub.Hub
	log    *zap.Logger
	lobby  *lobby.Lobby // owned by the reader goroutine
	out    chan lobby.Envelope
	direct chan types.ServerMessage
}

func (c *client) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// The writer keeps the connection-scoped logger; the reader rebinds c.log.
	go c.writeLoop(ctx, cancel, c.log)
	defer c.leave()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					c.log.Debug("read failed", zap.Error(err))
				}
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			c.reply(ctx, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
			continue
		}
		c.handle(ctx, cm)
	}
}

func (c *client) handle(ctx context.Context, cm types.ClientMessage) {
	player := engine.Player{ID: c.id, DisplayName: cm.DisplayName}

	switch cm.Type {
	case types.MsgCreateSession:
		if c.lobby != nil {
			c.reject(ctx, engine.CmdJoin, engine.ErrAlreadyJoined)
			return
		}
		lb, err := c.hub.Create(ctx, player, c.out)
		if err != nil {
			c.log.Error("create session failed", zap.Error(err))
			c.reply(ctx, types.ServerMessage{Type: types.MsgError, Error: "could not create session"})
			return
		}
		c.lobby = lb
		c.log = c.log.With(zap.String("code", lb.Code()))

	case types.MsgJoinSession:
		if c.lobby != nil {
			c.reject(ctx, engine.CmdJoin, engine.ErrAlreadyJoined)
			return
		}
		lb, err := c.hub.Get(ctx, cm.Code)
		if err == nil {
			err = lb.JoinAs(ctx, player, c.out)
		}
		if err != nil {
			c.reject(ctx, engine.CmdJoin, err)
			return
		}
		c.lobby = lb
		c.log = c.log.With(zap.String("code", lb.Code()))

	case types.MsgStartSession, types.MsgHit, types.MsgStand:
		cmd := commandFor(cm.Type)
		if c.lobby == nil || (cm.Code != "" && hub.NormalizeCode(cm.Code) != c.lobby.Code()) {
			c.reject(ctx, cmd, engine.ErrNotFound)
			return
		}
		err := c.lobby.Send(ctx, lobby.FromClient{PlayerID: c.id, Cmd: engine.Command{Type: cmd}})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.reject(ctx, cmd, err)
		}

	default:
		c.reply(ctx, types.ServerMessage{Type: types.MsgError, Error: "unknown type"})
	}
}

func commandFor(msgType string) engine.CommandType {
	switch msgType {
	case types.MsgStartSession:
		return engine.CmdStart
	case types.MsgHit:
		return engine.CmdHit
	default:
		return engine.CmdStand
	}
}

func (c *client) reject(ctx context.Context, cmd engine.CommandType, err error) {
	evt := engine.Rejection(c.id, cmd, err)
	c.reply(ctx, types.FromEvent(0, evt))
}

func (c *client) reply(ctx context.Context, msg types.ServerMessage) {
	select {
	case c.direct <- msg:
	case <-ctx.Done():
	}
}

// writeLoop owns every write to the socket.
func (c *client) writeLoop(ctx context.Context, cancel context.CancelFunc, log *zap.Logger) {
	for {
		var msg types.ServerMessage
		select {
		case <-ctx.Done():
			return
		case env, ok := <-c.out:
			if !ok {
				// The lobby dropped us or shut down.
				cancel()
				return
			}
			msg = types.FromEvent(env.Version, env.Event)
		case msg = <-c.direct:
		}

		wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, c.conn, msg)
		wcancel()
		if err != nil {
			log.Debug("write failed", zap.Error(err))
			cancel()
			return
		}
	}
}

// leave maps a closed connection onto a disconnect.
func (c *client) leave() {
	if c.lobby == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if err := c.lobby.Send(ctx, lobby.Leave{PlayerID: c.id}); err != nil && !errors.Is(err, engine.ErrNotFound) {
		c.log.Warn("failed to deliver leave", zap.Error(err))
	}
}

package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/blackjack-backend/internal/engine"
	"github.com/DoyleJ11/blackjack-backend/internal/lobby"
	"github.com/DoyleJ11/blackjack-backend/internal/randutil"
)

const (
	CodeLength   = 6
	codeCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeTries = 100
)

var ErrNoFreeCode = errors.New("could not allocate a free lobby code")
var ErrStopped = errors.New("hub stopped")

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Host   engine.Player
	Outbox chan lobby.Envelope
	Reply  chan *lobby.Lobby // nil when no code could be allocated
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby forgets Code only while it still maps to Lobby.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type Options struct {
	Logger *zap.Logger
	// Lobby is the template for every lobby; OnClose is owned by the hub.
	Lobby lobby.Options
	// Seed drives every lobby's shuffle when Lobby.NewDeck is unset.
	Seed int64
	// Codes overrides code generation, mainly for tests.
	Codes func() (string, error)
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    Options
	rng     *mrand.Rand
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Codes == nil {
		opts.Codes = GenerateCode
	}
	if opts.Lobby.Logger == nil {
		opts.Lobby.Logger = opts.Logger
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		rng:     randutil.New(opts.Seed),
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// GenerateCode draws CodeLength characters from A-Z0-9 using crypto/rand.
func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode makes user-typed codes match generated ones.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			clear(h.lobbies)
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				msg.Reply <- h.create(msg.Host, msg.Outbox)

			case GetLobby:
				msg.Reply <- h.lobbies[NormalizeCode(msg.Code)] // May be nil

			case RemoveLobby:
				if h.lobbies[msg.Code] == msg.Lobby {
					delete(h.lobbies, msg.Code)
					h.log.Info("lobby removed", zap.String("code", msg.Code), zap.Int("live", len(h.lobbies)))
				}

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				clear(h.lobbies)
				h.cancel() // lobbies run under h.ctx and stop with it
				return
			}
		}
	}
}

func (h *Hub) create(host engine.Player, out chan lobby.Envelope) *lobby.Lobby {
	code, err := h.freeCode()
	if err != nil {
		h.log.Error("failed to allocate lobby code", zap.Error(err))
		return nil
	}

	opts := h.opts.Lobby
	if opts.NewDeck == nil {
		opts.NewDeck = engine.RandomDeck(randutil.New(h.rng.Int64()))
	}
	opts.OnClose = h.onLobbyClosed

	lb := lobby.NewLobby(h.ctx, code, host, out, opts)
	h.lobbies[code] = lb
	h.log.Info("lobby created", zap.String("code", code), zap.String("host", host.ID), zap.Int("live", len(h.lobbies)))
	return lb
}

func (h *Hub) freeCode() (string, error) {
	for range maxCodeTries {
		c, err := h.opts.Codes()
		if err != nil {
			return "", err
		}
		c = NormalizeCode(c)
		if h.lobbies[c] == nil {
			return c, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}
	return "", ErrNoFreeCode
}

// onLobbyClosed runs on the lobby's goroutine.
func (h *Hub) onLobbyClosed(code string, lb *lobby.Lobby) {
	select {
	case h.inbox <- RemoveLobby{Code: code, Lobby: lb}:
	case <-h.ctx.Done():
	}
}

// Create starts a lobby with host as its only member.
func (h *Hub) Create(ctx context.Context, host engine.Player, out chan lobby.Envelope) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, CreateLobby{Host: host, Outbox: out, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		if lb == nil {
			return nil, ErrNoFreeCode
		}
		return lb, nil
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get looks code up case-insensitively.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		if lb == nil {
			return nil, engine.ErrNotFound
		}
		return lb, nil
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountLobbies{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.ctx.Done():
		return 0, ErrStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) send(ctx context.Context, msg HubMsg) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-h.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

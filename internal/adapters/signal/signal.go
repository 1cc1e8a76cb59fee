package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkurin/huddle/internal/app"
	"github.com/dkurin/huddle/internal/auth"
	"github.com/dkurin/huddle/internal/core"
	"github.com/dkurin/huddle/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrAuthTimeout  = errors.New("authentication timed out")
	ErrUnknownUser  = errors.New("credential does not resolve to a known user")
)

// Verifier checks an inbound credential token.
type Verifier interface {
	Verify(raw string) (*auth.Claims, error)
}

// UserLookup resolves a verified credential to a stored identity.
type UserLookup interface {
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type Controller struct {
	Coord  *app.Coordinator
	Tokens Verifier
	Users  UserLookup

	HandshakeTimeout time.Duration
	ReadLimit        int64

	limiter *HandshakeLimiter
}

func NewController(coord *app.Coordinator, tokens Verifier, users UserLookup, handshakeTimeout time.Duration, readLimit int64) *Controller {
	return &Controller{
		Coord:            coord,
		Tokens:           tokens,
		Users:            users,
		HandshakeTimeout: handshakeTimeout,
		ReadLimit:        readLimit,
		limiter:          NewHandshakeLimiter(10, time.Minute),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the HTTP request and walks the connection through
// the handshake gate. No registry state exists until the credential checks
// out; a rejected or timed-out handshake leaves nothing to clean up.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	if !ctl.limiter.Allow(c.ClientIP()) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	connID := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, cancel, conn)

	user, err := ctl.handshake(ctx, conn)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("handshake rejected")
		ctl.sendJSON(conn, core.NewError("unauthorized"))
		conn.Close()
		cancel()
		return
	}

	ctl.sendJSON(conn, core.Envelope{Type: core.EventAuthenticated})
	ctl.Coord.OnAuthenticated(user.ID, connID, conn)
	log.Info().Str("module", "signal").Str("conn", string(connID)).Str("email", user.Email).Msg("socket authenticated")

	go ctl.readPump(ctx, cancel, connID, conn)
}

// handshake waits for a single authenticate frame within the timeout. The
// token must verify and decode to a user the directory knows.
func (ctl *Controller) handshake(ctx context.Context, c *WsSignalConn) (*domain.User, error) {
	deadline := time.Now().Add(ctl.HandshakeTimeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrAuthTimeout
		}
		return nil, err
	}

	var msg struct {
		Type  core.EventKind `json:"type"`
		Token string         `json:"token"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != core.EventAuthenticate || msg.Token == "" {
		return nil, errors.New("expected authenticate frame")
	}

	claims, err := ctl.Tokens.Verify(msg.Token)
	if err != nil {
		return nil, err
	}
	user, err := ctl.Users.FindByID(ctx, domain.UserID(claims.UserID))
	if err != nil {
		return nil, ErrUnknownUser
	}

	// Past the gate: disconnect, not a deadline, ends the connection now.
	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}
	return user, nil
}

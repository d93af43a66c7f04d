package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/JohnAlva/livekit-video-calls/internal/app"
	"github.com/JohnAlva/livekit-video-calls/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

const (
	defaultReadLimit  = 32 * 1024
	defaultPingPeriod = 54 * time.Second
	writeWait         = 5 * time.Second
)

// SignalWSController owns the websocket side of the relay: it accepts
// connections, wires them into the registry, and routes their messages.
type SignalWSController struct {
	Registry *app.Registry
	Rooms    *app.RoomTracker

	readLimit  int64
	pingPeriod time.Duration
	upgrader   websocket.Upgrader
}

func NewSignalWSController(reg *app.Registry, rooms *app.RoomTracker, readLimit int64, pingPeriod time.Duration, allowedOrigin string) *SignalWSController {
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	if pingPeriod <= 0 {
		pingPeriod = defaultPingPeriod
	}
	return &SignalWSController{
		Registry:   reg,
		Rooms:      rooms,
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigin),
		},
	}
}

func originChecker(allowed string) func(*http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
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

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(id)).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctl.Registry.Register(id, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, id, conn)
}

// onDisconnect runs the non-skippable teardown: registry first, then room
// membership, then the user-list broadcast if a bound name went away.
func (ctl *SignalWSController) onDisconnect(id core.ConnID) {
	hadName := ctl.Registry.Unregister(id)
	ctl.Rooms.RemoveConn(id)
	if hadName {
		ctl.broadcastUserList()
	}
}

// Package signal adapts gorilla/websocket connections to the router. Both
// server variants (the gin-integrated one and the standalone relay) attach
// their upgraded connections here, so the protocol behaves identically on
// either transport.
package signal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/oakstream/signaling/internal/app"
	"github.com/oakstream/signaling/internal/config"
	"github.com/oakstream/signaling/internal/core"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Conn wraps one websocket with a buffered outbound queue. TrySend never
// blocks: a full queue means the peer is too slow and reports backpressure.
type Conn struct {
	ws   *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	c.mu.Unlock()
}

// Controller owns the per-connection pumps and feeds frames to the router.
type Controller struct {
	Router *app.Router

	ReadLimit    int64
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func NewController(router *app.Router, cfg *config.Config) *Controller {
	return &Controller{
		Router:       router,
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		PongWait:     cfg.PongWait,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
	}
}

// Attach registers an upgraded websocket with the router and starts its
// read/write pumps. It returns immediately; cleanup runs when the connection
// dies or ctx is cancelled.
func (ctl *Controller) Attach(ctx context.Context, ws *websocket.Conn) {
	conn := &Conn{
		ws:   ws,
		send: make(chan core.Frame, ctl.SendBuffer),
	}

	sess := ctl.Router.HandleConnect(conn)
	log.Info().Str("module", "signal").Str("user", string(sess.ID)).
		Str("remote", ws.RemoteAddr().String()).Msg("new signaling connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, cancel, conn)
	go ctl.readPump(ctx, cancel, conn)
}

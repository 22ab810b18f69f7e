package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// writePump drains the outbound queue and probes liveness. A peer that stops
// answering pings trips the read deadline in readPump, which runs cleanup.
func (ctl *Controller) writePump(ctx context.Context, cancel context.CancelFunc, c *Conn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(ctl.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(ctl.WriteTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		}
	}
}

// readPump feeds inbound text frames to the router. Binary frames carry
// media between peers directly and are never interpreted here.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, c *Conn) {
	defer func() {
		cancel()
		ctl.Router.HandleDisconnect(c)
		c.Close()
		log.Info().Str("module", "signal").Msg("readPump closed")
	}()

	c.ws.SetReadLimit(ctl.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(ctl.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(ctl.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			msgType, data, err := c.ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Msg("readPump read error")
				}
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			ctl.Router.HandleMessage(c, data)
		}
	}
}

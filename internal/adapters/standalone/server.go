// Package standalone is the socket-server transport variant: a bare net/http
// listener whose only job is upgrading websockets and handing them to the
// shared signaling controller. Protocol behavior is identical to the
// gin-integrated variant by construction.
package standalone

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/oakstream/signaling/internal/adapters/signal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	ctl *signal.Controller
}

func New(ctl *signal.Controller) *Server {
	return &Server{ctl: ctl}
}

// Handler upgrades every request path, matching the original relay which
// served websockets on any path.
func (s *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.standalone").Msg("ws upgrade")
			return
		}
		s.ctl.Attach(ctx, ws)
	})
}

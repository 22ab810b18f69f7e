// Package http is the framework-integrated transport variant: a gin engine
// exposing the signaling websocket, the rooms diagnostic, and the static demo
// directory.
package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/oakstream/signaling/internal/adapters/signal"
	"github.com/oakstream/signaling/internal/app"
	"github.com/oakstream/signaling/internal/config"
	"github.com/oakstream/signaling/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ClientTokenMiddleware tags every browser with a stable cookie token, used
// only to correlate log lines across page reloads. Peer identities are still
// assigned per connection by the registry.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SignalingSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").
			Str("client_token", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("ws upgrade")
			return
		}
		ctl.Attach(ctx, ws)
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, roomsStatus(ctl.Router))
	})

	return r
}

// roomsStatus builds the diagnostic view from a directory snapshot. The
// snapshot is advisory only; it never drives mutations.
func roomsStatus(router *app.Router) protocol.RoomsStatus {
	snap := router.Directory.Snapshot()
	rooms := make(map[string]int, len(snap))
	for name, count := range snap {
		rooms[string(name)] = count
	}
	return protocol.RoomsStatus{
		Rooms:      rooms,
		TotalUsers: router.Registry.Count(),
	}
}

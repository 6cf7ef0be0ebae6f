package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware pins a stable connection identity to each
// browser via cookie; the ws adapter uses it as the member id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// kindStatus is the one fixed table mapping core error kinds to HTTP
// statuses. No status is ever chosen by inspecting error text.
var kindStatus = map[core.Kind]int{
	core.KindValidation: http.StatusBadRequest,
	core.KindNotFound:   http.StatusNotFound,
	core.KindConflict:   http.StatusConflict,
	core.KindInternal:   http.StatusInternalServerError,
}

func statusOf(err error) int {
	if s, ok := kindStatus[core.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("MeetSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// Read-only collaborator surface: reporting layers consume these,
	// they never mutate room state directly.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": ctl.Rooms.List()})
	})

	api.GET("/rooms/:id", func(c *gin.Context) {
		room, ok := ctl.Rooms.Snapshot(domain.RoomID(c.Param("id")))
		if !ok {
			err := core.ErrRoomNotFound
			c.JSON(statusOf(err), gin.H{"error": err.Error(), "code": core.CodeOf(err)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": room, "participants": room.Participants})
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("conn", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}

package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/JohnAlva/livekit-video-calls/internal/adapters/signal"
	"github.com/JohnAlva/livekit-video-calls/internal/app"
	"github.com/JohnAlva/livekit-video-calls/internal/config"
	"github.com/JohnAlva/livekit-video-calls/internal/token"
)

func SetupRouter(ctx context.Context, cfg *config.Config, reg *app.Registry, rooms *app.RoomTracker, tokens *token.Service) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type"},
	}
	if cfg.AllowedOrigin == "" || cfg.AllowedOrigin == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.AllowedOrigin}
	}
	r.Use(cors.New(corsCfg))

	r.GET("/", handleHealth)

	lk := &LiveKitHandler{Tokens: tokens}
	r.GET("/livekit-token", lk.Usage)
	r.POST("/livekit-token", lk.Create)

	api := r.Group("/api")
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, rooms.List())
	})

	log.Info().Str("module", "adapters.http").Str("origin", cfg.AllowedOrigin).Msg("router setup")

	ctrl := signal.NewSignalWSController(reg, rooms, cfg.ReadLimit, cfg.PingPeriod, cfg.AllowedOrigin)
	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	return r
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": "server is running",
		"endpoints": gin.H{
			"livekitTokenPOST": "/livekit-token",
		},
	})
}

package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Lounge/internal/adapters/signal"
	"github.com/dkeye/Lounge/internal/app/orch"
	"github.com/dkeye/Lounge/internal/config"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const ctxUserKey = "user_id"

// SessionUserMiddleware copies the user bound to the cookie session into
// the request context.
func SessionUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := sessions.Default(c).Get(signal.SessionUserKey).(string); ok {
			if uid, err := domain.ParseUserID(raw); err == nil {
				c.Set(ctxUserKey, uid)
			}
		}
		c.Next()
	}
}

// RequireUser rejects requests without a session identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := userOf(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no session"})
			return
		}
		c.Next()
	}
}

func userOf(c *gin.Context) (domain.UserID, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return "", false
	}
	uid, ok := v.(domain.UserID)
	return uid, ok
}

type Handlers struct {
	Orch   *orch.Orchestrator
	Signal *signal.SignalWSController
	ICE    webrtc.Configuration
}

func SetupRouter(ctx context.Context, cfg *config.Config, h *Handlers) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("LoungeSessions", store))
	r.Use(SessionUserMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}
	r.GET("/healthz", h.health)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Msg("ws signal endpoint hit")
		h.Signal.HandleSignal(ctx, c)
	})
	api.POST("/session", h.bindSession)
	api.GET("/presence", h.presence)
	api.GET("/rtc/config", h.rtcConfig)

	authed := api.Group("", RequireUser())
	authed.GET("/rooms/:id", h.getRoom)
	authed.POST("/rooms/direct", h.resolveDirect)
	authed.GET("/calls/:roomId", h.callInfo)
	authed.GET("/notifications", h.listNotifications)
	authed.PATCH("/notifications/read", h.markReadBulk)
	authed.PATCH("/notifications/read/:id", h.markRead)
	authed.DELETE("/notifications", h.deleteAllNotifications)
	authed.DELETE("/notifications/:id", h.deleteNotification)

	return r
}

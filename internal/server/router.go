package server

import (
	"github.com/gin-gonic/gin"

	"github.com/perfpulse/meetsched/internal/domain"
	"github.com/perfpulse/meetsched/internal/instrumentation"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Handler   *Handler
	Health    *HealthChecker
	JWTSecret []byte
	Metrics   *instrumentation.Metrics
	// Debug switches gin out of release mode.
	Debug bool
}

// NewRouter builds the gin engine with all routes wired.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Metrics != nil {
		r.Use(RequestMetrics(cfg.Metrics))
	}

	r.GET("/healthz", gin.WrapH(cfg.Health.LivenessHandler()))
	r.GET("/readyz", gin.WrapH(cfg.Health.ReadinessHandler()))

	api := r.Group("/api/v1")
	api.Use(AuthRequired(cfg.JWTSecret))
	{
		api.POST("/meetings/schedule", cfg.Handler.ScheduleMeeting)
		api.POST("/meetings/record", cfg.Handler.RecordMeeting)
		api.GET("/meetings", cfg.Handler.ListMeetings)
		api.GET("/meetings/:id", cfg.Handler.GetMeeting)

		api.GET("/auth/google", cfg.Handler.AuthURL(domain.ProviderGoogle))
		api.GET("/auth/zoom", cfg.Handler.AuthURL(domain.ProviderZoom))
	}

	// Provider callbacks arrive from a browser redirect without a bearer
	// token; the OAuth state carries the user attribution instead.
	r.GET("/api/v1/auth/google/callback", cfg.Handler.AuthCallback(domain.ProviderGoogle))
	r.GET("/api/v1/auth/zoom/callback", cfg.Handler.AuthCallback(domain.ProviderZoom))

	return r
}

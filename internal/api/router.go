package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/posture-coach/engine/internal/api/handlers"
	"github.com/posture-coach/engine/internal/api/ws"
	"github.com/posture-coach/engine/internal/auth"
	"github.com/posture-coach/engine/internal/bus"
	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/storage"
)

type RouterConfig struct {
	APIKey    string
	DB        *storage.PostgresStore
	Store     *config.Store
	Publisher *bus.Publisher
	Hub       *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Publisher)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	v1.GET("/ws", cfg.Hub.HandleWS)

	// Frame ingest
	frameH := handlers.NewFrameHandler(cfg.Publisher)
	v1.POST("/sessions/:sessionId/frames", frameH.Ingest)

	// Session lifecycle
	sessionH := handlers.NewSessionHandler(cfg.Publisher)
	v1.POST("/sessions/:sessionId/pause", sessionH.Pause)
	v1.POST("/sessions/:sessionId/resume", sessionH.Resume)

	// Calibration
	calibH := handlers.NewCalibrationHandler(cfg.DB, cfg.Publisher)
	v1.POST("/sessions/:sessionId/calibration/start", calibH.Start)
	v1.POST("/sessions/:sessionId/calibration/cancel", calibH.Cancel)
	v1.GET("/users/:userId/calibration/active", calibH.GetActive)

	// Daily logs & streak
	dailyH := handlers.NewDailyLogHandler(cfg.DB)
	v1.GET("/daily-logs", dailyH.List)
	v1.GET("/daily-logs/:date", dailyH.Get)
	v1.GET("/streak", dailyH.Streak)

	// Live tuning config
	configH := handlers.NewConfigHandler(cfg.Store)
	v1.GET("/config/score", configH.GetScore)
	v1.PATCH("/config/score", configH.UpdateScore)
	v1.POST("/config/score/reset", configH.ResetScore)
	v1.GET("/config/signal", configH.GetSignal)
	v1.PATCH("/config/signal", configH.UpdateSignal)
	v1.POST("/config/signal/reset", configH.ResetSignal)
	v1.GET("/config/guardrails", configH.GetGuardrails)
	v1.PATCH("/config/guardrails", configH.UpdateGuardrails)
	v1.POST("/config/guardrails/reset", configH.ResetGuardrails)

	return r
}

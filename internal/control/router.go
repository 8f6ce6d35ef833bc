package control

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/poisonednumber/Scanner-map-sub004/internal/api"
	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
	"github.com/poisonednumber/Scanner-map-sub004/internal/config"
	"github.com/poisonednumber/Scanner-map-sub004/internal/engine"
	"github.com/poisonednumber/Scanner-map-sub004/internal/http/middleware"

	_ "github.com/poisonednumber/Scanner-map-sub004/docs"
)

func Router(cfg config.Config, eng *engine.Engine, client *api.Client, orch *audio.Orchestrator, bcast *audio.Broadcast, logger zerolog.Logger) (*gin.Engine, *Handler) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &Handler{
		Engine:    eng,
		API:       client,
		Audio:     orch,
		Broadcast: bcast,
		Validator: validator.New(),
		Config:    cfg,
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/state", h.State)
		apiGroup.PUT("/filters", h.SetFilters)
		apiGroup.PUT("/toggles", h.SetToggles)
		apiGroup.PUT("/subscriptions", h.SetSubscriptions)
		apiGroup.PUT("/volume", h.SetVolume)
		apiGroup.POST("/history/:talkgroup", h.OpenHistory)
		apiGroup.GET("/history", h.HistoryItems)
		apiGroup.DELETE("/history", h.CloseHistory)
	}

	admin := apiGroup.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/markers/:id/location", h.RelocateMarker)
		admin.DELETE("/markers/:id", h.DeleteMarker)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r, h
}

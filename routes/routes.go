package routes

import (
	"net/http"
	"time"

	"trustedhands/internal/config"
	handlers "trustedhands/internal/handlers/shared"
	"trustedhands/internal/middleware"
	"trustedhands/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func() error

type Handlers struct {
	Payment *handlers.PaymentHandler
	Support *handlers.SupportHandler
}

// NewRouter builds the gin engine with the shared middleware chain and all routes.
func NewRouter(cfg *config.Config, log *logger.Logger, h *Handlers, checks map[string]HealthCheck) *gin.Engine {
	router := gin.New()
	if len(cfg.Security.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
			log.WithError(err).Warn("Invalid trusted proxies, ignoring")
		}
	}

	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.RecoveryMiddleware(log),
		middleware.LoggingMiddleware(log),
		middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins),
	)

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		c.JSON(status, gin.H{
			"status":     http.StatusText(status),
			"service":    cfg.App.Name,
			"version":    cfg.App.Version,
			"components": components,
			"timestamp":  time.Now(),
		})
	})

	auth := middleware.AuthRequired(cfg.Security.JWTSecret, log)
	v1 := router.Group("/api/v1")
	SetupPaymentRoutes(v1, h.Payment, auth)
	SetupSupportRoutes(v1, h.Support, auth)

	return router
}

package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/foliotrack/foliotrack/internal/auth"
	"github.com/foliotrack/foliotrack/internal/handlers"
	"github.com/foliotrack/foliotrack/internal/middleware"
	"github.com/foliotrack/foliotrack/internal/services"
)

// Options carries the router's feature switches.
type Options struct {
	// EnableMetrics mounts the Prometheus endpoint at /metrics.
	EnableMetrics bool
	Cookies       handlers.CookieConfig
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, identity *services.IdentityService, sessions *iauth.SessionService, opts Options) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	if opts.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(identity, opts.Cookies)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/send-code", authHandler.SendCode)
		auth.POST("/verify-code", authHandler.VerifyCode)
		auth.POST("/complete-signup", authHandler.CompleteSignup)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
	}

	// Authenticated routes
	api := r.Group("/api")
	api.Use(middleware.Auth(sessions))

	api.GET("/auth/me", authHandler.Me)

	return r, nil
}

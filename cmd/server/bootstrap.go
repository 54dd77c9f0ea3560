package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foliotrack/foliotrack/internal/api"
	"github.com/foliotrack/foliotrack/internal/app"
	"github.com/foliotrack/foliotrack/internal/app/maintenance"
	iauth "github.com/foliotrack/foliotrack/internal/auth"
	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/handlers"
	"github.com/foliotrack/foliotrack/internal/services"
	"github.com/foliotrack/foliotrack/pkg/logger"
	"github.com/foliotrack/foliotrack/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Sessions *iauth.SessionService
	Identity *services.IdentityService
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, services, background jobs and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	codes, err := services.NewVerificationService(stack.DB,
		services.WithCodeExpiry(cfg.Auth.Verification.CodeTTL))
	if err != nil {
		return nil, fmt.Errorf("initialise verification service: %w", err)
	}

	tokens, err := iauth.NewTokenService([]byte(cfg.Auth.Verification.TokenSecret), iauth.TokenConfig{
		TTL: cfg.Auth.Verification.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}

	stack.Sessions, err = iauth.NewSessionService(stack.DB, iauth.SessionConfig{
		TTL:         cfg.Auth.Session.TTL,
		TokenLength: cfg.Auth.Session.TokenLength,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	var mailer mail.Mailer
	if cfg.Email.SMTP.Enabled {
		mailer, err = mail.NewSMTPMailer(cfg.SMTPSettings())
		if err != nil {
			return nil, fmt.Errorf("initialise smtp mailer: %w", err)
		}
		log.Info("smtp mailer enabled", zap.String("host", cfg.Email.SMTP.Host))
	} else {
		// With no mailer, verification codes are logged instead of emailed.
		log.Warn("smtp disabled; verification codes will be written to the log")
	}

	stack.Identity, err = services.NewIdentityService(stack.DB, codes, tokens, stack.Sessions, mailer)
	if err != nil {
		return nil, fmt.Errorf("initialise identity service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Sessions, codes)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.Identity, stack.Sessions, api.Options{
		EnableMetrics: cfg.Monitoring.Prometheus.Enabled,
		Cookies: handlers.CookieConfig{
			Secure: cfg.Server.CookieSecure,
			Domain: cfg.Server.CookieDomain,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}

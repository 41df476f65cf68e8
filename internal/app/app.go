// Package app wires the account gateway together and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shaiyaportal/accountd/internal/config"
	"github.com/shaiyaportal/accountd/internal/db"
	"github.com/shaiyaportal/accountd/internal/http/api"
	"github.com/shaiyaportal/accountd/internal/identity"
	"github.com/shaiyaportal/accountd/internal/ratelimit"
	"github.com/shaiyaportal/accountd/internal/reconcile"

	log "github.com/sirupsen/logrus"
)

// shutdownGrace bounds how long in-flight requests may run after a stop
// signal.
const shutdownGrace = 10 * time.Second

// Migrate opens the database and applies schema migrations.
func Migrate(cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DSN, db.Options{ConnectTimeout: cfg.ConnectTimeout})
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the account gateway and blocks until ctx is cancelled or
// the listener fails.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DSN, db.Options{ConnectTimeout: cfg.ConnectTimeout})
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	var verifier identity.Verifier
	if cfg.IdentityKey != "" {
		verifier = identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityKey, cfg.RequestTimeout)
	} else {
		log.Warn("identity provider credential not configured, secondary verification disabled")
	}

	engine := reconcile.NewEngine(conn, verifier, cfg.RequestTimeout)
	limiter := ratelimit.New(cfg.RedisAddr, cfg.RedisPassword)

	debug := gin.Mode() != gin.ReleaseMode
	router := gin.New()
	router.Use(gin.Recovery())

	api.RegisterRoutes(router, api.Options{
		Engine:         engine,
		DB:             conn,
		Limiter:        limiter,
		LoginRateLimit: cfg.LoginRateLimit,
		Debug:          debug,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("account gateway listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return fmt.Errorf("app: shutdown: %w", errShutdown)
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", errServe)
	}
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"model-artifact-registry/internal/adapters/primary/http/handlers"
	"model-artifact-registry/internal/adapters/primary/http/middleware"
	"model-artifact-registry/internal/config"
	"model-artifact-registry/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func InitLogger(cfg config.LoggerConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func NewRouter(reg *Registry, opts ...handlers.Option) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/model-registry")
	handlers.New(reg.Service, "", opts...).RegisterRoutes(api)

	router.GET("/healthz", func(c *gin.Context) {
		if err := reg.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

// WatchMetadata reloads the registry whenever its metadata file changes on
// disk. It returns a stop function; for the postgres backend there is no
// file and the watcher is not started.
func WatchMetadata(ctx context.Context, cfg *config.Config, reg *Registry) (func(), error) {
	var path string
	switch cfg.Registry.Backend {
	case config.BackendYAML, "":
		path = cfg.Registry.MetadataFile
	case config.BackendSQLite:
		path = cfg.SQLite.Path
	default:
		return func() {}, nil
	}

	w, err := watcher.New(watcher.Config{Path: path, Debounce: cfg.Watch.Debounce})
	if err != nil {
		return nil, err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-changes:
				if err := reg.Service.Reload(ctx); err != nil {
					log.WithError(err).Warn("metadata changed but could not be reloaded; keeping current catalog")
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	log.WithField("path", path).Info("watching metadata for changes")
	return func() {
		close(done)
		_ = w.Stop()
	}, nil
}

// Serve runs the HTTP surface until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg *config.Config, reg *Registry) error {
	if cfg.Watch.Enabled {
		stop, err := WatchMetadata(ctx, cfg, reg)
		if err != nil {
			log.WithError(err).Warn("metadata watcher disabled")
		} else {
			defer stop()
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(reg, handlers.WithSourcePathRegistration(cfg.Server.AllowSourcePath)),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

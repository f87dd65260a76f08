// Package server exposes the reading list over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultBasePath   = "/articles"
	readHeaderTimeout = 10 * time.Second
)

// Config controls where the routes are mounted.
type Config struct {
	Addr     string
	BasePath string
}

// Server is the HTTP front end.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// New builds the router and the underlying http.Server.
func New(cfg Config, store ArticleStore, logger *slog.Logger) *Server {
	logger = logger.With("component", "server")
	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg.BasePath, store, logger),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

// NewRouter mounts the reading list routes under basePath:
//
//	GET <basePath>?new=<url>          add, or list without "new"
//	GET <basePath>/finished?url=<url> mark finished
func NewRouter(basePath string, store ArticleStore, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := NewArticleHandler(store, logger)
	base := NormalizeBasePath(basePath)
	router.GET(base, handler.ListOrAdd)
	router.GET(strings.TrimSuffix(base, "/")+"/finished", handler.Finished)

	return router
}

// NormalizeBasePath returns a path with a leading slash and no trailing slash.
// An empty path becomes DefaultBasePath.
func NormalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return DefaultBasePath
	}
	p = "/" + strings.Trim(p, "/")
	return p
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}

		if len(c.Errors) > 0 {
			logger.Error("HTTP request with errors", append(attrs, "errors", c.Errors.Errors())...)
			return
		}
		logger.Info("HTTP request", attrs...)
	}
}

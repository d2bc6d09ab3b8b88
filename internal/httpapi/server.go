// Package httpapi exposes the case store over a local JSON HTTP API for
// browser front ends.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/HendryAvila/casespine/internal/ingest"
	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server serves the HTTP API.
type Server struct {
	router         *gin.Engine
	store          *spine.Store
	importer       *ingest.Importer
	log            *zap.Logger
	includePrivate bool
}

// Options configures a Server.
type Options struct {
	// IncludePrivate is the export default when the request does not say.
	IncludePrivate bool
}

// NewServer builds the router and registers every route.
func NewServer(store *spine.Store, importer *ingest.Importer, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router:         router,
		store:          store,
		importer:       importer,
		log:            logger,
		includePrivate: opts.IncludePrivate,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := s.router.Group("/api")
	{
		api.POST("/import/csv", s.importCSV)
		api.POST("/import/text", s.importText)

		api.GET("/spine", s.listSpine)
		api.GET("/spine/:id", s.getSpine)
		api.PATCH("/spine/:id/neutral", s.setNeutral)
		api.PATCH("/spine/:id/verified", s.setVerified)

		api.POST("/timeline/promote", s.promote)
		api.GET("/timeline", s.listTimeline)
		api.PATCH("/timeline/:id/status", s.setTimelineStatus)

		api.GET("/notes", s.listNotes)
		api.POST("/notes", s.saveNote)
		api.DELETE("/notes/:id", s.deleteNote)

		api.GET("/export", s.export)
		api.GET("/export/master", s.masterText)
		api.POST("/restore", s.restore)
		api.GET("/stats", s.stats)
	}
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("http api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// respondError maps domain errors onto HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, spine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, spine.ErrInvalid), errors.Is(err, spine.ErrInvalidSnapshot), ingest.IsValidationError(err):
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

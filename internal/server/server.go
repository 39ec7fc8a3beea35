// Package server exposes sentence role classification over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/skimmer/internal/engine/taxonomy"
	"github.com/crimson-sun/skimmer/internal/inference"
	"github.com/crimson-sun/skimmer/internal/logging"
)

// NoTextMessage is returned when a request carries no text.
const NoTextMessage = "No text data given"

// Classifier classifies one abstract.
type Classifier interface {
	Classify(ctx context.Context, text string) (inference.Result, error)
}

// Info describes the served model.
type Info struct {
	Variant string   `json:"variant"`
	RunID   string   `json:"run_id"`
	Labels  []string `json:"labels"`
	Summary string   `json:"summary"`
}

// ClassifyRequest is the body of POST /api/v1/classify.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse groups sentences by role. Order lists the roles present
// in the model in reading order, since JSON objects are unordered.
type ClassifyResponse struct {
	inference.Result
	Order []string `json:"order"`
}

// Server routes API requests to a classifier.
type Server struct {
	clf    Classifier
	info   Info
	router *gin.Engine
}

// New builds the router. release selects gin's release mode.
func New(clf Classifier, info Info, release bool) *Server {
	if release {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{clf: clf, info: info}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	api := router.Group("/api/v1")
	{
		api.POST("/classify", s.handleClassify)
		api.GET("/health", s.handleHealth)
		api.GET("/model", s.handleModel)
	}
	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout time.Duration) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := s.clf.Classify(c.Request.Context(), req.Text)
	switch {
	case errors.Is(err, inference.ErrNoInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": NoTextMessage})
		return
	case err != nil:
		slog.Error("classification failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ClassifyResponse{Result: res, Order: taxonomy.Order(s.info.Labels)})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "run_id": s.info.RunID})
}

func (s *Server) handleModel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"model": s.info,
		"roles": taxonomy.Default(),
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"method", c.Request.Method,
			logging.KeyPath, c.FullPath(),
			"status", c.Writer.Status(),
			logging.KeyDuration, time.Since(start),
		)
	}
}

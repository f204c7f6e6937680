// Package httpapi exposes the query pipeline over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driving"
	"github.com/didact-labs/didact/internal/logger"
)

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("httpapi: query service is required")

// DefaultAddr is the listen address used when none is given.
const DefaultAddr = "127.0.0.1:8080"

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves the query API.
type Server struct {
	query  driving.QueryService
	router *gin.Engine
}

// NewServer creates a server backed by the query service.
func NewServer(query driving.QueryService) (*Server, error) {
	if query == nil {
		return nil, ErrMissingQueryService
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{query: query}
	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware())

	router.GET("/healthz", s.handleHealth)
	router.POST("/query", s.handleQuery)
	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server on http://%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "query is required"})
		return
	}

	resp, err := s.query.Ask(c.Request.Context(), req.Query, driving.AskOptions{})
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidTemplate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

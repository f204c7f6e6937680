// Package mcp serves the question answering pipeline over the Model Context
// Protocol so AI assistants can ask cited questions of the local corpus.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/didact-labs/didact/internal/core/ports/driving"
	"github.com/didact-labs/didact/internal/logger"
)

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

const (
	serverName      = "didact"
	shutdownTimeout = 5 * time.Second

	instructions = `Didact answers questions from the user's document corpus.
Call the ask tool with a question. The answer text marks each claim with
<cite><doc>Name pages X-Y</doc></cite>, and the references list names the
source of every cited passage. Read didact://documents for the documents
available to answer from.`
)

// Ports are the driving ports the MCP server calls into.
type Ports struct {
	// Query answers questions.
	Query driving.QueryService

	// Document lists corpus documents. Optional.
	Document driving.DocumentService
}

// Validate reports a missing required port.
func (p *Ports) Validate() error {
	if p == nil || p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported to clients during initialisation.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// Server exposes the ask tool and the documents resource.
type Server struct {
	ports   *Ports
	version string
	server  *mcp.Server
}

// NewServer builds an MCP server over the given ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(
		&mcp.Implementation{Name: serverName, Version: s.version},
		&mcp.ServerOptions{Instructions: instructions},
	)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves a single client over stdio until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("MCP server %s on stdio", s.version)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler. Every request shares one server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is done,
// then drains open requests for up to shutdownTimeout.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting MCP HTTP server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mcp http shutdown: %w", err)
	}
	logger.Info("MCP HTTP server stopped")
	return nil
}

package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question   string `json:"question" jsonschema:"the question to answer from the corpus"`
	MaxSources int    `json:"max_sources,omitempty" jsonschema:"maximum number of sources used in the answer"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed corpus with inline citations",
	}, s.handleAsk)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, domain.QueryResponse, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.QueryResponse{}, domain.ErrInvalidInput
	}

	resp, err := s.ports.Query.Ask(ctx, question, driving.AskOptions{MaxSources: input.MaxSources})
	if err != nil {
		return nil, domain.QueryResponse{}, err
	}
	return nil, *resp, nil
}

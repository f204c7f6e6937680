package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for Didact resources.
	uriScheme = "didact://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Documents in the corpus with their deletion state",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)
}

type documentInfo struct {
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	Citation  string     `json:"citation"`
	Passages  int        `json:"passages"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// handleDocumentsResource returns every document in the corpus.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos := []documentInfo{}
	if s.ports.Document != nil {
		docs, err := s.ports.Document.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing documents: %w", err)
		}
		for _, d := range docs {
			infos = append(infos, documentInfo{
				Key:       d.Key,
				Name:      d.Name,
				Citation:  d.Citation,
				Passages:  d.Passages,
				DeletedAt: d.DeletedAt,
			})
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

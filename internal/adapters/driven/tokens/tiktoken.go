// Package tokens counts model tokens with tiktoken encodings.
package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure TiktokenCounter implements the interface.
var _ driven.TokenCounter = (*TiktokenCounter)(nil)

// DefaultEncoding is used when the model has no known encoding.
const DefaultEncoding = "cl100k_base"

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	encoding string
	mu       sync.Mutex
	tke      *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves modelOrEncoding as an encoding name, then as
// a model name, and finally falls back to DefaultEncoding. Loading an
// encoding may fetch its ranks file on first use.
func NewTiktokenCounter(modelOrEncoding string) (*TiktokenCounter, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = DefaultEncoding
	}

	if tke, err := tiktoken.GetEncoding(modelOrEncoding); err == nil {
		return &TiktokenCounter{encoding: modelOrEncoding, tke: tke}, nil
	}
	if tke, err := tiktoken.EncodingForModel(modelOrEncoding); err == nil {
		return &TiktokenCounter{encoding: modelOrEncoding, tke: tke}, nil
	}

	tke, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", DefaultEncoding, err)
	}
	return &TiktokenCounter{encoding: DefaultEncoding, tke: tke}, nil
}

// CountTokens returns the number of tokens in text.
func (c *TiktokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tke.Encode(text, nil, nil))
}

// Encoding returns the model or encoding name the counter was resolved from.
func (c *TiktokenCounter) Encoding() string {
	return c.encoding
}

package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// newCounter skips when the encoding cannot be loaded, e.g. without network
// access on a cold cache.
func newCounter(t *testing.T, model string) *TiktokenCounter {
	t.Helper()
	c, err := NewTiktokenCounter(model)
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	return c
}

func TestCountTokens(t *testing.T) {
	c := newCounter(t, "")
	assert.Equal(t, DefaultEncoding, c.Encoding())
	assert.Equal(t, 0, c.CountTokens(""))

	short := c.CountTokens("hello")
	long := c.CountTokens("hello world, this sentence has quite a few more tokens in it")
	assert.Positive(t, short)
	assert.Greater(t, long, short)
}

func TestNewTiktokenCounter_UnknownModelFallsBack(t *testing.T) {
	c := newCounter(t, "definitely-not-a-model")
	assert.Equal(t, DefaultEncoding, c.Encoding())
}

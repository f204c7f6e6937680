package file

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didact-labs/didact/internal/core/domain"
)

func TestPromptStore_Watch_ReloadsEditedPrompt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	qa, err := store.Load("qa")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultPromptSet().QA, qa)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	require.NoError(t, store.Watch(ctx, func() {
		store.Reload()
		changes.Add(1)
	}))

	edited := "Edited {{.question}}\n{{.context}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qa.tmpl"), []byte(edited+"\n"), 0600))

	assert.Eventually(t, func() bool { return changes.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	qa, err = store.Load("qa")
	require.NoError(t, err)
	assert.Equal(t, edited, qa)
}

func TestPromptStore_Watch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	require.NoError(t, store.Watch(ctx, func() { changes.Add(1) }))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch"), 0600))

	assert.Never(t, func() bool { return changes.Load() > 0 }, 4*watchDebounce, 20*time.Millisecond)
}

func TestPromptStore_Watch_CoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	require.NoError(t, store.Watch(ctx, func() { changes.Add(1) }))

	for _, name := range []string{"pre.tmpl", "post.tmpl", "qa.tmpl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{{.question}}"), 0600))
	}

	assert.Eventually(t, func() bool { return changes.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(3 * watchDebounce)
	assert.Equal(t, int32(1), changes.Load())
}

func TestPromptStore_Watch_MissingDirectory(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	assert.Error(t, store.Watch(context.Background(), func() {}))
}

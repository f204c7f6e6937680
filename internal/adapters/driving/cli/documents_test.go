package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didact-labs/didact/internal/core/domain"
)

func TestDocumentsCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range documentsCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "delete", "restore"}, names)
}

func TestDocumentsList(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("documents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "doe")
	assert.Contains(t, out, "Name:     Doe2020")
	assert.Contains(t, out, "Citation: Doe, J. Sky Colours. 2020.")
	assert.Contains(t, out, "Passages: 3")
	assert.Contains(t, out, "Total: 2 documents (0 deleted)")
}

func TestDocumentsList_Empty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testDocs.documents = nil

	out, err := execute("documents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")
}

func TestDocumentsDeleteAndRestore(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("documents", "delete", "doe")
	require.NoError(t, err)
	assert.Contains(t, out, "Document doe deleted.")
	assert.True(t, testDocs.documents[0].IsDeleted())

	out, err = execute("documents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "doe [deleted]")
	assert.Contains(t, out, "(1 deleted)")

	out, err = execute("document", "restore", "doe")
	require.NoError(t, err)
	assert.Contains(t, out, "Document doe restored.")
	assert.False(t, testDocs.documents[0].IsDeleted())
}

func TestDocumentsDelete_UnknownKey(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("documents", "delete", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentsDelete_RequiresKey(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("documents", "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocuments_NoService(t *testing.T) {
	SetServices(Services{})

	_, err := execute("documents", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document service not configured")
}

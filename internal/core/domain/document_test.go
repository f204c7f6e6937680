package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentInfo_IsDeleted(t *testing.T) {
	doc := DocumentInfo{DocumentRef: DocumentRef{Key: "k", Name: "Doe2020"}}
	assert.False(t, doc.IsDeleted())

	now := time.Now()
	doc.DeletedAt = &now
	assert.True(t, doc.IsDeleted())
	assert.Equal(t, "Doe2020", doc.Name)
}

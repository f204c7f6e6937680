package domain

import "time"

// DocumentInfo is a document record as listed by document management.
type DocumentInfo struct {
	DocumentRef

	// Passages is the number of stored passages.
	Passages int

	CreatedAt time.Time

	// DeletedAt is set when the document is soft-deleted.
	DeletedAt *time.Time
}

// IsDeleted returns true if the document is soft-deleted.
func (d DocumentInfo) IsDeleted() bool {
	return d.DeletedAt != nil
}

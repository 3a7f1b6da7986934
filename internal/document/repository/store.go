package repository

import (
	"context"
	"errors"

	"github.com/inkpad/inkpad/internal/document"
)

var (
	ErrNotFound = errors.New("document not found")
)

// Store defines the persistence operations used by the document service.
// Listing queries return newest-first and never filter on isArchived; callers
// filter post-query, matching the snapshot-style query contract.
type Store interface {
	Insert(ctx context.Context, doc *document.Document) (string, error)
	Get(ctx context.Context, id string) (*document.Document, error)
	Patch(ctx context.Context, id string, p document.Patch) (*document.Document, error)
	Delete(ctx context.Context, id string) error

	// ByOwnerAndParent is the composite owner+parent index: direct children of
	// parentID owned by ownerID. Empty parentID selects top-level documents.
	ByOwnerAndParent(ctx context.Context, ownerID, parentID string) ([]*document.Document, error)
	ByOwner(ctx context.Context, ownerID string) ([]*document.Document, error)
	ByCollaborator(ctx context.Context, email string) ([]*document.Document, error)
}

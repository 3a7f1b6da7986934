// Package access decides who may read or write a document. All checks are
// pure functions over the document's ownership, publish state and
// collaborator list; they are re-evaluated on every request since those
// fields are mutable.
package access

import (
	"errors"

	"github.com/inkpad/inkpad/internal/document"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("insufficient access")
)

// Identity is the caller as supplied by the identity provider. A nil
// *Identity means an anonymous request.
type Identity struct {
	Subject string
	Email   string
}

// Level is the resolved visibility of a document for a given caller.
type Level string

const (
	// LevelFull: caller owns the document.
	LevelFull Level = "full"
	// LevelPublic: document is published and not archived; no identity needed.
	LevelPublic Level = "public"
	// LevelShared: caller's email is in the collaborator list.
	LevelShared Level = "shared"
)

// Policy controls the collaborator contract. The default (zero value) grants
// collaborators read-only access; CollaboratorWrite additionally lets them
// update title/content/cover/icon/publish state. Only the owner ever mutates
// the collaborator list itself.
type Policy struct {
	CollaboratorWrite bool
}

// CanRead reports whether id may read doc. Published, non-archived documents
// are world-readable; otherwise the caller must be the owner or a
// collaborator.
func (p Policy) CanRead(doc *document.Document, id *Identity) bool {
	if doc.IsPublished && !doc.IsArchived {
		return true
	}
	if id == nil {
		return false
	}
	return id.Subject == doc.OwnerID || doc.HasCollaborator(id.Email)
}

// CanWrite reports whether id may mutate doc's own fields.
func (p Policy) CanWrite(doc *document.Document, id *Identity) bool {
	if id == nil {
		return false
	}
	if id.Subject == doc.OwnerID {
		return true
	}
	return p.CollaboratorWrite && doc.HasCollaborator(id.Email)
}

// Resolve classifies the caller's visibility of doc, or fails with
// ErrUnauthenticated (identity required but absent) or ErrUnauthorized.
// Ownership wins over the public path so the owner always sees the document
// as editable.
func (p Policy) Resolve(doc *document.Document, id *Identity) (Level, error) {
	if id != nil && id.Subject == doc.OwnerID {
		return LevelFull, nil
	}
	if doc.IsPublished && !doc.IsArchived {
		return LevelPublic, nil
	}
	if id == nil {
		return "", ErrUnauthenticated
	}
	if doc.HasCollaborator(id.Email) {
		return LevelShared, nil
	}
	return "", ErrUnauthorized
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkpad/inkpad/internal/access"
	"github.com/inkpad/inkpad/internal/document"
	"github.com/inkpad/inkpad/internal/document/propagate"
	"github.com/inkpad/inkpad/internal/document/repository"
	"github.com/inkpad/inkpad/internal/editor"
	"github.com/inkpad/inkpad/pkg/metrics"
)

var (
	ErrInvalidContent = errors.New("content failed structural validation")
)

// Service implements the document operations. Every operation re-checks
// authorization against the current state of the document; nothing is cached
// between calls since publish flags and collaborator lists are mutable.
type Service struct {
	store  repository.Store
	prop   *propagate.Propagator
	policy access.Policy
}

func New(store repository.Store, policy access.Policy) *Service {
	return &Service{
		store:  store,
		prop:   propagate.New(store, 0),
		policy: policy,
	}
}

// Create inserts a new unarchived, unpublished document with empty content.
// Default block content materializes at editor initialize time, not here.
func (s *Service) Create(ctx context.Context, id *access.Identity, title, parentID string) (*document.Document, error) {
	if id == nil {
		return nil, access.ErrUnauthenticated
	}
	doc := &document.Document{
		OwnerID:  id.Subject,
		ParentID: parentID,
		Title:    title,
		Content:  "",
	}
	if _, err := s.store.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	metrics.DocumentsCreated.Inc()
	return doc, nil
}

// Get fetches a document and resolves the caller's visibility of it.
// id may be nil: published, non-archived documents are world-readable.
func (s *Service) Get(ctx context.Context, id *access.Identity, docID string) (*document.Document, access.Level, error) {
	doc, err := s.store.Get(ctx, docID)
	if err != nil {
		return nil, "", err
	}
	level, err := s.policy.Resolve(doc, id)
	if err != nil {
		return nil, "", err
	}
	return doc, level, nil
}

// Update applies a partial update to title/content/cover/icon/publish flag.
// Writable by the owner, and by collaborators when the policy allows it.
// Content, when present and non-empty, must parse as a block sequence;
// invalid content is never persisted.
func (s *Service) Update(ctx context.Context, id *access.Identity, docID string, p document.Patch) (*document.Document, error) {
	if id == nil {
		return nil, access.ErrUnauthenticated
	}
	doc, err := s.store.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanWrite(doc, id) {
		return nil, access.ErrUnauthorized
	}
	if p.Content != nil && *p.Content != "" {
		if _, err := editor.ParseBlocks(*p.Content); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
	}
	// structural fields are managed by their dedicated operations
	p.ParentID = nil
	p.IsArchived = nil
	p.Collaborators = nil
	return s.store.Patch(ctx, docID, p)
}

// Archive soft-deletes a document. The root is patched before returning; the
// descendant flips run in the returned Job (eventually consistent, callers
// may Wait or ignore).
func (s *Service) Archive(ctx context.Context, id *access.Identity, docID string) (*document.Document, *propagate.Job, error) {
	doc, err := s.ownedDocument(ctx, id, docID)
	if err != nil {
		return nil, nil, err
	}
	updated, err := s.store.Patch(ctx, docID, document.Patch{IsArchived: document.Ptr(true)})
	if err != nil {
		return nil, nil, err
	}
	return updated, s.prop.Run(doc.OwnerID, docID, true), nil
}

// Restore unarchives a document and its descendants. A document whose parent
// is still archived is detached to top level instead of pointing into the
// trash.
func (s *Service) Restore(ctx context.Context, id *access.Identity, docID string) (*document.Document, *propagate.Job, error) {
	doc, err := s.ownedDocument(ctx, id, docID)
	if err != nil {
		return nil, nil, err
	}
	p := document.Patch{IsArchived: document.Ptr(false)}
	if doc.ParentID != "" {
		parent, err := s.store.Get(ctx, doc.ParentID)
		if err == nil && parent.IsArchived {
			p.ParentID = document.Ptr("")
		}
	}
	updated, err := s.store.Patch(ctx, docID, p)
	if err != nil {
		return nil, nil, err
	}
	return updated, s.prop.Run(doc.OwnerID, docID, false), nil
}

// Remove hard-deletes a single document. Descendants are not cascaded.
func (s *Service) Remove(ctx context.Context, id *access.Identity, docID string) error {
	if _, err := s.ownedDocument(ctx, id, docID); err != nil {
		return err
	}
	return s.store.Delete(ctx, docID)
}

// Sidebar lists the caller's non-archived children of parentID (empty for
// top level).
func (s *Service) Sidebar(ctx context.Context, id *access.Identity, parentID string) ([]*document.Document, error) {
	if id == nil {
		return nil, access.ErrUnauthenticated
	}
	docs, err := s.store.ByOwnerAndParent(ctx, id.Subject, parentID)
	if err != nil {
		return nil, err
	}
	return dropArchived(docs), nil
}

// Trash lists the caller's archived documents.
func (s *Service) Trash(ctx context.Context, id *access.Identity) ([]*document.Document, error) {
	if id == nil {
		return nil, access.ErrUnauthenticated
	}
	docs, err := s.store.ByOwner(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	out := []*document.Document{}
	for _, d := range docs {
		if d.IsArchived {
			out = append(out, d)
		}
	}
	return out, nil
}

// Search lists the caller's non-archived documents (the client-side search
// corpus).
func (s *Service) Search(ctx context.Context, id *access.Identity) ([]*document.Document, error) {
	if id == nil {
		return nil, access.ErrUnauthenticated
	}
	docs, err := s.store.ByOwner(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	return dropArchived(docs), nil
}

// Shared lists non-archived documents shared with the caller's email by
// other owners.
func (s *Service) Shared(ctx context.Context, id *access.Identity) ([]*document.Document, error) {
	if id == nil {
		return nil, access.ErrUnauthenticated
	}
	if id.Email == "" {
		return []*document.Document{}, nil
	}
	docs, err := s.store.ByCollaborator(ctx, id.Email)
	if err != nil {
		return nil, err
	}
	out := []*document.Document{}
	for _, d := range docs {
		if !d.IsArchived && d.OwnerID != id.Subject {
			out = append(out, d)
		}
	}
	return out, nil
}

// AddCollaborator grants email shared access. Owner-only; idempotent.
func (s *Service) AddCollaborator(ctx context.Context, id *access.Identity, docID, email string) (*document.Document, error) {
	doc, err := s.ownedDocument(ctx, id, docID)
	if err != nil {
		return nil, err
	}
	if doc.HasCollaborator(email) {
		return doc, nil
	}
	collaborators := append(append([]string{}, doc.Collaborators...), email)
	return s.store.Patch(ctx, docID, document.Patch{Collaborators: &collaborators})
}

// RemoveCollaborator revokes email's shared access. Owner-only.
func (s *Service) RemoveCollaborator(ctx context.Context, id *access.Identity, docID, email string) (*document.Document, error) {
	doc, err := s.ownedDocument(ctx, id, docID)
	if err != nil {
		return nil, err
	}
	collaborators := []string{}
	for _, e := range doc.Collaborators {
		if e != email {
			collaborators = append(collaborators, e)
		}
	}
	return s.store.Patch(ctx, docID, document.Patch{Collaborators: &collaborators})
}

// RemoveCoverImage clears the cover image reference. Owner-only.
func (s *Service) RemoveCoverImage(ctx context.Context, id *access.Identity, docID string) (*document.Document, error) {
	if _, err := s.ownedDocument(ctx, id, docID); err != nil {
		return nil, err
	}
	return s.store.Patch(ctx, docID, document.Patch{CoverImage: document.Ptr("")})
}

// RemoveIcon clears the icon reference. Owner-only.
func (s *Service) RemoveIcon(ctx context.Context, id *access.Identity, docID string) (*document.Document, error) {
	if _, err := s.ownedDocument(ctx, id, docID); err != nil {
		return nil, err
	}
	return s.store.Patch(ctx, docID, document.Patch{Icon: document.Ptr("")})
}

// ownedDocument fetches docID and requires id to be its owner. Archive,
// restore, delete and collaborator management never extend to collaborators.
func (s *Service) ownedDocument(ctx context.Context, id *access.Identity, docID string) (*document.Document, error) {
	if id == nil {
		return nil, access.ErrUnauthenticated
	}
	doc, err := s.store.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != id.Subject {
		return nil, access.ErrUnauthorized
	}
	return doc, nil
}

func dropArchived(docs []*document.Document) []*document.Document {
	out := []*document.Document{}
	for _, d := range docs {
		if !d.IsArchived {
			out = append(out, d)
		}
	}
	return out
}

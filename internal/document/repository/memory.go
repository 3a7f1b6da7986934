package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inkpad/inkpad/internal/document"
)

// MemoryStore is a simple in-memory store used for unit tests and as a
// fallback when MongoDB is not configured. Documents are returned as copies
// so concurrent propagation never observes partial writes.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]*document.Document
	order []string // insertion order; listings return newest-first
	seq   uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*document.Document)}
}

func (m *MemoryStore) Insert(ctx context.Context, doc *document.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc_%s_%06d", time.Now().UTC().Format("20060102T150405"), m.seq)
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	cp := *doc
	m.docs[doc.ID] = &cp
	m.order = append(m.order, doc.ID)
	return doc.ID, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) Patch(ctx context.Context, id string, p document.Patch) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Apply(d)
	d.UpdatedAt = time.Now().UTC()
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryStore) ByOwnerAndParent(ctx context.Context, ownerID, parentID string) ([]*document.Document, error) {
	return m.filter(func(d *document.Document) bool {
		return d.OwnerID == ownerID && d.ParentID == parentID
	}), nil
}

func (m *MemoryStore) ByOwner(ctx context.Context, ownerID string) ([]*document.Document, error) {
	return m.filter(func(d *document.Document) bool {
		return d.OwnerID == ownerID
	}), nil
}

func (m *MemoryStore) ByCollaborator(ctx context.Context, email string) ([]*document.Document, error) {
	return m.filter(func(d *document.Document) bool {
		return d.HasCollaborator(email)
	}), nil
}

func (m *MemoryStore) filter(keep func(*document.Document) bool) []*document.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*document.Document{}
	for i := len(m.order) - 1; i >= 0; i-- {
		d, ok := m.docs[m.order[i]]
		if !ok || !keep(d) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out
}

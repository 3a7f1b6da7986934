package service

import (
	"context"
	"testing"

	"github.com/inkpad/inkpad/internal/access"
	"github.com/inkpad/inkpad/internal/document"
	"github.com/inkpad/inkpad/internal/document/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = &access.Identity{Subject: "user_owner", Email: "owner@example.com"}
	friend   = &access.Identity{Subject: "user_friend", Email: "friend@example.com"}
	stranger = &access.Identity{Subject: "user_stranger", Email: "stranger@example.com"}
)

func newTestService(t *testing.T) (*Service, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return New(store, access.Policy{}), store
}

func mustCreate(t *testing.T, svc *Service, id *access.Identity, title, parentID string) *document.Document {
	t.Helper()
	doc, err := svc.Create(context.Background(), id, title, parentID)
	require.NoError(t, err)
	return doc
}

func TestCreateRequiresIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), nil, "Untitled", "")
	assert.ErrorIs(t, err, access.ErrUnauthenticated)
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	doc := mustCreate(t, svc, owner, "Untitled", "")
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, owner.Subject, doc.OwnerID)
	assert.Empty(t, doc.Content)
	assert.False(t, doc.IsArchived)
	assert.False(t, doc.IsPublished)
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	doc := mustCreate(t, svc, owner, "Notes", "")

	got, level, err := svc.Get(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, access.LevelFull, level)
	assert.Equal(t, doc.ID, got.ID)

	_, _, err = svc.Get(ctx, stranger, doc.ID)
	assert.ErrorIs(t, err, access.ErrUnauthorized)

	_, _, err = svc.Get(ctx, nil, doc.ID)
	assert.ErrorIs(t, err, access.ErrUnauthenticated)

	// publishing opens anonymous reads
	_, err = store.Patch(ctx, doc.ID, document.Patch{IsPublished: document.Ptr(true)})
	require.NoError(t, err)
	_, level, err = svc.Get(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, access.LevelPublic, level)

	// the owner still resolves to full access on a published document
	_, level, err = svc.Get(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, access.LevelFull, level)

	// archiving closes it again
	_, err = store.Patch(ctx, doc.ID, document.Patch{IsArchived: document.Ptr(true)})
	require.NoError(t, err)
	_, _, err = svc.Get(ctx, nil, doc.ID)
	assert.ErrorIs(t, err, access.ErrUnauthenticated)
}

func TestGetNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Get(context.Background(), owner, "doc_missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateTitleAndContent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	doc := mustCreate(t, svc, owner, "Untitled", "")

	content := `[{"type":"paragraph","content":[{"type":"text","text":"hi"}]}]`
	got, err := svc.Update(ctx, owner, doc.ID, document.Patch{
		Title:   document.Ptr("Trip plan"),
		Content: &content,
	})
	require.NoError(t, err)
	assert.Equal(t, "Trip plan", got.Title)
	assert.Equal(t, content, got.Content)
}

func TestUpdateRejectsInvalidContent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	doc := mustCreate(t, svc, owner, "Untitled", "")

	for _, bad := range []string{`{"type":"paragraph"}`, `[]`, `[{"content":[]}]`, `not json`} {
		_, err := svc.Update(ctx, owner, doc.ID, document.Patch{Content: &bad})
		assert.ErrorIs(t, err, ErrInvalidContent, "content %q", bad)
	}

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Content, "rejected content must not be persisted")
}

func TestUpdateIgnoresStructuralFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	parent := mustCreate(t, svc, owner, "parent", "")
	doc := mustCreate(t, svc, owner, "child", parent.ID)

	collabs := []string{"sneaky@example.com"}
	got, err := svc.Update(ctx, owner, doc.ID, document.Patch{
		Title:         document.Ptr("renamed"),
		ParentID:      document.Ptr(""),
		IsArchived:    document.Ptr(true),
		Collaborators: &collabs,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, parent.ID, got.ParentID)
	assert.False(t, got.IsArchived)
	assert.Empty(t, got.Collaborators)
}

func TestUpdateAuthorization(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	doc := mustCreate(t, svc, owner, "Untitled", "")
	_, err := svc.AddCollaborator(ctx, owner, doc.ID, friend.Email)
	require.NoError(t, err)

	// collaborators are read-only by default
	_, err = svc.Update(ctx, friend, doc.ID, document.Patch{Title: document.Ptr("x")})
	assert.ErrorIs(t, err, access.ErrUnauthorized)
	_, err = svc.Update(ctx, stranger, doc.ID, document.Patch{Title: document.Ptr("x")})
	assert.ErrorIs(t, err, access.ErrUnauthorized)
	_, err = svc.Update(ctx, nil, doc.ID, document.Patch{Title: document.Ptr("x")})
	assert.ErrorIs(t, err, access.ErrUnauthenticated)
}

func TestUpdateCollaboratorWriteOptIn(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := New(store, access.Policy{CollaboratorWrite: true})

	doc := mustCreate(t, svc, owner, "Untitled", "")
	_, err := svc.AddCollaborator(ctx, owner, doc.ID, friend.Email)
	require.NoError(t, err)

	got, err := svc.Update(ctx, friend, doc.ID, document.Patch{Title: document.Ptr("edited by friend")})
	require.NoError(t, err)
	assert.Equal(t, "edited by friend", got.Title)
}

func TestArchiveCascadesAndRestoreKeepsParent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	root := mustCreate(t, svc, owner, "root", "")
	child := mustCreate(t, svc, owner, "child", root.ID)
	grandchild := mustCreate(t, svc, owner, "grandchild", child.ID)

	updated, job, err := svc.Archive(ctx, owner, root.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsArchived)
	require.NoError(t, job.Wait())

	for _, id := range []string{root.ID, child.ID, grandchild.ID} {
		d, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, d.IsArchived, "document %s", d.Title)
	}

	restored, job, err := svc.Restore(ctx, owner, root.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)
	require.NoError(t, job.Wait())

	d, err := store.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.False(t, d.IsArchived)
	assert.Equal(t, root.ID, d.ParentID, "restore must not detach children of the restored root")
}

func TestRestoreDetachesFromArchivedParent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	root := mustCreate(t, svc, owner, "root", "")
	child := mustCreate(t, svc, owner, "child", root.ID)

	_, job, err := svc.Archive(ctx, owner, root.ID)
	require.NoError(t, err)
	require.NoError(t, job.Wait())

	// restoring only the child while its parent stays in the trash moves it
	// to top level
	restored, job, err := svc.Restore(ctx, owner, child.ID)
	require.NoError(t, err)
	require.NoError(t, job.Wait())
	assert.False(t, restored.IsArchived)
	assert.Empty(t, restored.ParentID)

	d, err := store.Get(ctx, root.ID)
	require.NoError(t, err)
	assert.True(t, d.IsArchived)
}

func TestArchiveOwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	doc := mustCreate(t, svc, owner, "Untitled", "")
	_, err := svc.AddCollaborator(ctx, owner, doc.ID, friend.Email)
	require.NoError(t, err)

	_, _, err = svc.Archive(ctx, friend, doc.ID)
	assert.ErrorIs(t, err, access.ErrUnauthorized)
	_, _, err = svc.Restore(ctx, friend, doc.ID)
	assert.ErrorIs(t, err, access.ErrUnauthorized)
	err = svc.Remove(ctx, friend, doc.ID)
	assert.ErrorIs(t, err, access.ErrUnauthorized)
}

func TestRemoveDeletesSingleDocument(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	root := mustCreate(t, svc, owner, "root", "")
	child := mustCreate(t, svc, owner, "child", root.ID)

	require.NoError(t, svc.Remove(ctx, owner, root.ID))
	_, err := store.Get(ctx, root.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// children are orphaned, not cascaded
	d, err := store.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, d.ParentID)
}

func TestSidebarListsActiveChildren(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	top := mustCreate(t, svc, owner, "top", "")
	mustCreate(t, svc, owner, "child", top.ID)
	archived := mustCreate(t, svc, owner, "archived", "")
	_, job, err := svc.Archive(ctx, owner, archived.ID)
	require.NoError(t, err)
	require.NoError(t, job.Wait())
	mustCreate(t, svc, stranger, "foreign", "")

	docs, err := svc.Sidebar(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "top", docs[0].Title)

	docs, err = svc.Sidebar(ctx, owner, top.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "child", docs[0].Title)

	_, err = svc.Sidebar(ctx, nil, "")
	assert.ErrorIs(t, err, access.ErrUnauthenticated)
}

func TestTrashAndSearchSplitOnArchived(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	active := mustCreate(t, svc, owner, "active", "")
	binned := mustCreate(t, svc, owner, "binned", "")
	_, job, err := svc.Archive(ctx, owner, binned.ID)
	require.NoError(t, err)
	require.NoError(t, job.Wait())

	trash, err := svc.Trash(ctx, owner)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, binned.ID, trash[0].ID)

	search, err := svc.Search(ctx, owner)
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, active.ID, search[0].ID)
}

func TestCollaboratorLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	doc := mustCreate(t, svc, owner, "shared notes", "")

	got, err := svc.AddCollaborator(ctx, owner, doc.ID, friend.Email)
	require.NoError(t, err)
	assert.Equal(t, []string{friend.Email}, got.Collaborators)

	// idempotent
	got, err = svc.AddCollaborator(ctx, owner, doc.ID, friend.Email)
	require.NoError(t, err)
	assert.Equal(t, []string{friend.Email}, got.Collaborators)

	// the collaborator can now read it
	_, level, err := svc.Get(ctx, friend, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, access.LevelShared, level)

	// and it shows up in their shared listing, but not the owner's
	shared, err := svc.Shared(ctx, friend)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, doc.ID, shared[0].ID)
	shared, err = svc.Shared(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, shared)

	// only the owner manages the list
	_, err = svc.AddCollaborator(ctx, friend, doc.ID, stranger.Email)
	assert.ErrorIs(t, err, access.ErrUnauthorized)

	got, err = svc.RemoveCollaborator(ctx, owner, doc.ID, friend.Email)
	require.NoError(t, err)
	assert.Empty(t, got.Collaborators)
	_, _, err = svc.Get(ctx, friend, doc.ID)
	assert.ErrorIs(t, err, access.ErrUnauthorized)
}

func TestSharedSkipsArchived(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	doc := mustCreate(t, svc, owner, "shared", "")
	_, err := svc.AddCollaborator(ctx, owner, doc.ID, friend.Email)
	require.NoError(t, err)
	_, job, err := svc.Archive(ctx, owner, doc.ID)
	require.NoError(t, err)
	require.NoError(t, job.Wait())

	shared, err := svc.Shared(ctx, friend)
	require.NoError(t, err)
	assert.Empty(t, shared)
}

func TestRemoveCoverImageAndIcon(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	doc := mustCreate(t, svc, owner, "decorated", "")
	_, err := store.Patch(ctx, doc.ID, document.Patch{
		CoverImage: document.Ptr("https://cdn.example.com/cover.png"),
		Icon:       document.Ptr(":rocket:"),
	})
	require.NoError(t, err)

	got, err := svc.RemoveCoverImage(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CoverImage)
	assert.Equal(t, ":rocket:", got.Icon)

	got, err = svc.RemoveIcon(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Icon)

	_, err = svc.RemoveCoverImage(ctx, stranger, doc.ID)
	assert.ErrorIs(t, err, access.ErrUnauthorized)
}

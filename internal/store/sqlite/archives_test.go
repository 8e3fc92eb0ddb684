package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foliumapp/folium-server/internal/domain"
	"github.com/foliumapp/folium-server/internal/store"
)

func TestUpsertArchive_Insert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	released := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	id, err := s.UpsertArchive(ctx, store.UpsertArchiveData{
		Title:       ptr("A Midsummer Day"),
		Description: ptr("an afternoon by the river"),
		Path:        ptr("/library/midsummer.zip"),
		Hash:        ptr("hash-midsummer"),
		Pages:       ptr(24),
		Size:        ptr(int64(1 << 20)),
		Thumbnail:   ptr(1),
		Language:    ptr("English"),
		ReleasedAt:  &released,
	})
	if err != nil {
		t.Fatalf("UpsertArchive: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	a, err := s.GetArchive(ctx, id)
	if err != nil {
		t.Fatalf("GetArchive: %v", err)
	}
	if a.Title != "A Midsummer Day" {
		t.Errorf("title: got %q", a.Title)
	}
	if a.Slug != "a-midsummer-day" {
		t.Errorf("slug: got %q", a.Slug)
	}
	if a.Pages != 24 || a.Size != 1<<20 || a.Thumbnail != 1 {
		t.Errorf("counts: got pages=%d size=%d thumbnail=%d", a.Pages, a.Size, a.Thumbnail)
	}
	if a.ReleasedAt == nil || !a.ReleasedAt.Equal(released) {
		t.Errorf("released_at: got %v", a.ReleasedAt)
	}
	if a.DeletedAt != nil {
		t.Errorf("deleted_at: got %v, want nil", a.DeletedAt)
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestUpsertArchive_InsufficientData(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpsertArchive(context.Background(), store.UpsertArchiveData{
		Title: ptr("No Path"),
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpsertArchive_UpdateByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestArchive(t, s, "Old Title", "/library/update.zip", "hash-update")

	got, err := s.UpsertArchive(ctx, store.UpsertArchiveData{
		Path:     ptr("/library/update.zip"),
		Title:    ptr("New Title"),
		Language: ptr("Japanese"),
	})
	if err != nil {
		t.Fatalf("UpsertArchive: %v", err)
	}
	if got != id {
		t.Fatalf("expected same id %d, got %d", id, got)
	}

	a, err := s.GetArchive(ctx, id)
	if err != nil {
		t.Fatalf("GetArchive: %v", err)
	}
	if a.Title != "New Title" {
		t.Errorf("title: got %q", a.Title)
	}
	if a.Language != "Japanese" {
		t.Errorf("language: got %q", a.Language)
	}
	// Fields not present in the update keep their stored values.
	if a.Hash != "hash-update" {
		t.Errorf("hash: got %q", a.Hash)
	}
	if n := count(t, s, "SELECT COUNT(*) FROM archives"); n != 1 {
		t.Errorf("expected 1 archive row, got %d", n)
	}
}

func TestUpsertArchive_UpdateByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestArchive(t, s, "Moved", "/library/old-location.zip", "hash-moved")

	got, err := s.UpsertArchive(ctx, store.UpsertArchiveData{
		Hash: ptr("hash-moved"),
		Path: ptr("/library/new-location.zip"),
	})
	if err != nil {
		t.Fatalf("UpsertArchive: %v", err)
	}
	if got != id {
		t.Fatalf("expected same id %d, got %d", id, got)
	}

	a, err := s.GetArchive(ctx, id)
	if err != nil {
		t.Fatalf("GetArchive: %v", err)
	}
	if a.Path != "/library/new-location.zip" {
		t.Errorf("path: got %q", a.Path)
	}
}

func TestUpsertArchive_HashChangeCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	oldID := insertTestArchive(t, s, "Edition One", "/library/edition.zip", "hash-ed1")

	newID, err := s.UpsertArchive(ctx, store.UpsertArchiveData{
		Path:  ptr("/library/edition.zip"),
		Hash:  ptr("hash-ed2"),
		Pages: ptr(32),
	})
	if err != nil {
		t.Fatalf("UpsertArchive: %v", err)
	}
	if newID == oldID {
		t.Fatal("expected a new id for the new edition")
	}

	// The original row survives, soft-deleted under its old hash.
	old, err := s.GetArchive(ctx, oldID)
	if err != nil {
		t.Fatalf("GetArchive old: %v", err)
	}
	if old.DeletedAt == nil {
		t.Error("expected the original to be soft-deleted")
	}
	if old.Hash != "hash-ed1" {
		t.Errorf("old hash: got %q", old.Hash)
	}

	if _, err := s.GetArchiveByHash(ctx, "hash-ed1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("soft-deleted hash lookup: got %v, want ErrNotFound", err)
	}

	fresh, err := s.GetArchiveByHash(ctx, "hash-ed2")
	if err != nil {
		t.Fatalf("GetArchiveByHash new: %v", err)
	}
	if fresh.ID != newID {
		t.Errorf("new edition id: got %d, want %d", fresh.ID, newID)
	}
	if fresh.Title != "Edition One" {
		t.Errorf("copied title: got %q", fresh.Title)
	}
	if fresh.Pages != 32 {
		t.Errorf("copied pages: got %d, want the incoming value", fresh.Pages)
	}
}

func TestUpsertArchive_HashReturnsAfterSoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestArchive(t, s, "Edition Two", "/library/edition2.zip", "hash-re1")

	// Move the archive to a new hash; the original row is kept soft-deleted.
	if _, err := s.UpsertArchive(ctx, store.UpsertArchiveData{
		Path: ptr("/library/edition2.zip"),
		Hash: ptr("hash-re2"),
	}); err != nil {
		t.Fatalf("UpsertArchive new hash: %v", err)
	}

	// The hash reverting to its original value must not collide with the
	// soft-deleted row still carrying it.
	revertedID, err := s.UpsertArchive(ctx, store.UpsertArchiveData{
		Path: ptr("/library/edition2.zip"),
		Hash: ptr("hash-re1"),
	})
	if err != nil {
		t.Fatalf("UpsertArchive reverted hash: %v", err)
	}

	reverted, err := s.GetArchiveByHash(ctx, "hash-re1")
	if err != nil {
		t.Fatalf("GetArchiveByHash: %v", err)
	}
	if reverted.ID != revertedID {
		t.Errorf("reverted id: got %d, want %d", reverted.ID, revertedID)
	}
	if reverted.DeletedAt != nil {
		t.Error("expected the reverted archive to be live")
	}
}

func TestGetArchive_NotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetArchive(context.Background(), 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetArchive_Relations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestArchive(t, s, "Related", "/library/related.zip", "hash-related")

	if _, err := s.ReconcileArchiveImages(ctx, id, []domain.ArchiveImage{
		{Filename: "001.png", PageNumber: 1},
		{Filename: "002.png", PageNumber: 2},
	}); err != nil {
		t.Fatalf("ReconcileArchiveImages: %v", err)
	}
	if err := s.ReconcileArchiveTags(ctx, id, []domain.Tag{
		{Namespace: "artist", Name: "hara"},
	}); err != nil {
		t.Fatalf("ReconcileArchiveTags: %v", err)
	}
	if err := s.ReconcileArchiveSources(ctx, id, []domain.ArchiveSource{
		{Name: "fakku", URL: "https://fakku.net/related"},
	}); err != nil {
		t.Fatalf("ReconcileArchiveSources: %v", err)
	}

	a, err := s.GetArchive(ctx, id)
	if err != nil {
		t.Fatalf("GetArchive: %v", err)
	}
	if len(a.Images) != 2 {
		t.Errorf("images: got %d, want 2", len(a.Images))
	}
	if len(a.Tags) != 1 || a.Tags[0].Key() != "artist:hara" {
		t.Errorf("tags: got %+v", a.Tags)
	}
	if len(a.Sources) != 1 || a.Sources[0].Name != "fakku" {
		t.Errorf("sources: got %+v", a.Sources)
	}
}

package sqlite

import (
	"context"
	"testing"

	"github.com/foliumapp/folium-server/internal/domain"
)

func TestReconcileArchiveTags_InsertAndFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestArchive(t, s, "Tags A", "/library/tag-a.zip", "hash-tag-a")

	incoming := []domain.Tag{
		{Namespace: "artist", Name: "hara"},
		{Namespace: "tag", Name: "full color"},
	}
	if err := s.ReconcileArchiveTags(ctx, id, incoming); err != nil {
		t.Fatalf("ReconcileArchiveTags: %v", err)
	}

	got, err := s.GetArchiveTags(ctx, id)
	if err != nil {
		t.Fatalf("GetArchiveTags: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(got))
	}
	// Ordered by namespace, then name.
	if got[0].Namespace != "artist" || got[0].Name != "hara" {
		t.Errorf("tag[0]: got %+v", got[0])
	}
	if got[1].Namespace != "tag" || got[1].Name != "full color" {
		t.Errorf("tag[1]: got %+v", got[1])
	}
	if got[0].ID == 0 || got[1].ID == 0 {
		t.Errorf("expected non-zero tag ids, got %d and %d", got[0].ID, got[1].ID)
	}
}

func TestReconcileArchiveTags_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestArchive(t, s, "Tags B", "/library/tag-b.zip", "hash-tag-b")

	incoming := []domain.Tag{
		{Namespace: "tag", Name: "vanilla"},
		{Namespace: "circle", Name: "initial-g"},
	}

	for i := 0; i < 3; i++ {
		if err := s.ReconcileArchiveTags(ctx, id, incoming); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if n := count(t, s, "SELECT COUNT(*) FROM tags"); n != 2 {
		t.Errorf("expected 2 global tags after repeated runs, got %d", n)
	}
	if n := count(t, s, "SELECT COUNT(*) FROM archive_tags WHERE archive_id = ?", id); n != 2 {
		t.Errorf("expected 2 associations after repeated runs, got %d", n)
	}
}

func TestReconcileArchiveTags_GlobalTagSharing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	idA := insertTestArchive(t, s, "Tags C", "/library/tag-c.zip", "hash-tag-c")
	idB := insertTestArchive(t, s, "Tags D", "/library/tag-d.zip", "hash-tag-d")

	shared := []domain.Tag{{Namespace: "artist", Name: "X"}}
	if err := s.ReconcileArchiveTags(ctx, idA, shared); err != nil {
		t.Fatalf("reconcile A: %v", err)
	}
	if err := s.ReconcileArchiveTags(ctx, idB, shared); err != nil {
		t.Fatalf("reconcile B: %v", err)
	}

	if n := count(t, s, "SELECT COUNT(*) FROM tags"); n != 1 {
		t.Errorf("expected exactly 1 global tag row, got %d", n)
	}
	if n := count(t, s, "SELECT COUNT(*) FROM archive_tags"); n != 2 {
		t.Errorf("expected 2 association rows, got %d", n)
	}
}

func TestReconcileArchiveTags_GlobalRowsSurviveDrop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestArchive(t, s, "Tags E", "/library/tag-e.zip", "hash-tag-e")

	if err := s.ReconcileArchiveTags(ctx, id, []domain.Tag{
		{Namespace: "tag", Name: "orphan-to-be"},
	}); err != nil {
		t.Fatalf("initial reconcile: %v", err)
	}

	// The archive drops its last reference; the global row must remain.
	if err := s.ReconcileArchiveTags(ctx, id, nil); err != nil {
		t.Fatalf("empty reconcile: %v", err)
	}

	if n := count(t, s, "SELECT COUNT(*) FROM archive_tags WHERE archive_id = ?", id); n != 0 {
		t.Errorf("expected 0 associations, got %d", n)
	}
	if n := count(t, s, "SELECT COUNT(*) FROM tags"); n != 1 {
		t.Errorf("global tag rows must never be deleted here, got %d", n)
	}
}

func TestReconcileArchiveTags_AssociationDiff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestArchive(t, s, "Tags F", "/library/tag-f.zip", "hash-tag-f")

	if err := s.ReconcileArchiveTags(ctx, id, []domain.Tag{
		{Namespace: "tag", Name: "keep"},
		{Namespace: "tag", Name: "drop"},
	}); err != nil {
		t.Fatalf("initial reconcile: %v", err)
	}

	if err := s.ReconcileArchiveTags(ctx, id, []domain.Tag{
		{Namespace: "tag", Name: "keep"},
		{Namespace: "tag", Name: "add"},
	}); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}

	got, err := s.GetArchiveTags(ctx, id)
	if err != nil {
		t.Fatalf("GetArchiveTags: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(got))
	}
	if got[0].Name != "add" || got[1].Name != "keep" {
		t.Errorf("tags: got %q and %q, want add and keep", got[0].Name, got[1].Name)
	}
}

func TestReconcileArchiveTags_CaseInsensitiveDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	idA := insertTestArchive(t, s, "Tags G", "/library/tag-g.zip", "hash-tag-g")
	idB := insertTestArchive(t, s, "Tags H", "/library/tag-h.zip", "hash-tag-h")

	if err := s.ReconcileArchiveTags(ctx, idA, []domain.Tag{
		{Namespace: "artist", Name: "Hara"},
	}); err != nil {
		t.Fatalf("reconcile A: %v", err)
	}

	// A second import under different casing must reuse the existing row.
	if err := s.ReconcileArchiveTags(ctx, idB, []domain.Tag{
		{Namespace: "artist", Name: "hara"},
	}); err != nil {
		t.Fatalf("reconcile B: %v", err)
	}

	if n := count(t, s, "SELECT COUNT(*) FROM tags"); n != 1 {
		t.Fatalf("expected 1 global tag row, got %d", n)
	}

	var name string
	if err := s.db.QueryRow("SELECT name FROM tags").Scan(&name); err != nil {
		t.Fatalf("query tag name: %v", err)
	}
	if name != "Hara" {
		t.Errorf("stored name: got %q, want the first import's casing", name)
	}

	if n := count(t, s, "SELECT COUNT(*) FROM archive_tags"); n != 2 {
		t.Errorf("expected both archives associated, got %d", n)
	}
}

func TestReconcileArchiveTags_DuplicateIncoming(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := insertTestArchive(t, s, "Tags I", "/library/tag-i.zip", "hash-tag-i")

	// The same tag appearing twice in one payload must not produce duplicate
	// association inserts.
	if err := s.ReconcileArchiveTags(ctx, id, []domain.Tag{
		{Namespace: "tag", Name: "doubled"},
		{Namespace: "tag", Name: "doubled"},
	}); err != nil {
		t.Fatalf("ReconcileArchiveTags: %v", err)
	}

	if n := count(t, s, "SELECT COUNT(*) FROM archive_tags WHERE archive_id = ?", id); n != 1 {
		t.Errorf("expected 1 association, got %d", n)
	}
}

package domain

// DefaultNamespace is assigned to tags imported without a namespace.
const DefaultNamespace = "tag"

// Tag is a global, deduplicated classification entry shared across all
// archives. Identity is the (namespace, name) pair; the row is created lazily
// on first reference and never deleted by the reconcilers, since other
// archives may still point at it.
type Tag struct {
	ID        int64  `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// Key returns the composite identity used when diffing tag sets.
func (t Tag) Key() string {
	return t.Namespace + ":" + t.Name
}

// WithDefaultNamespace returns the tag with an empty namespace replaced by
// DefaultNamespace.
func (t Tag) WithDefaultNamespace() Tag {
	if t.Namespace == "" {
		t.Namespace = DefaultNamespace
	}
	return t
}

// ArchiveTag associates an archive with a global tag. This join row is the
// per-archive mutable relation; the Tag itself is shared.
type ArchiveTag struct {
	ArchiveID int64 `json:"archive_id"`
	TagID     int64 `json:"tag_id"`
}

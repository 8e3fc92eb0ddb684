package domain

import "time"

// Archive is the top-level cataloged entity: a multi-page item identified by
// an immutable integer id. Its sources, images, and tag associations are
// owned collections maintained by the reconcilers.
type Archive struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Path        string     `json:"path"`
	Hash        string     `json:"hash"`
	Pages       int        `json:"pages"`
	Size        int64      `json:"size"`
	Thumbnail   int        `json:"thumbnail"`
	Language    string     `json:"language,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	Images  []ArchiveImage  `json:"images,omitempty"`
	Tags    []Tag           `json:"tags,omitempty"`
	Sources []ArchiveSource `json:"sources,omitempty"`
}

// ArchiveSource is an attribution record scoped to one archive.
// Either field may be empty; the (Name, URL) pair is the identity used for
// diffing. There is no global source table.
type ArchiveSource struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Matches reports whether two sources carry the same (name, url) identity.
func (s ArchiveSource) Matches(other ArchiveSource) bool {
	return s.Name == other.Name && s.URL == other.URL
}

// ArchiveImage is one page of an archive. PageNumber is the stable identity:
// at most one row exists per (archive, page number), while the filename may
// change across imports when a page is re-encoded.
type ArchiveImage struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
	// Width and Height are usually computed server-side after import.
	// Nil means not yet probed.
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

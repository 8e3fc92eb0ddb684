// Package store defines the persistence interface for the Folium server.
package store

import (
	"context"
	"time"

	"github.com/foliumapp/folium-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error

	// Archives
	UpsertArchive(ctx context.Context, data UpsertArchiveData) (int64, error)
	GetArchive(ctx context.Context, id int64) (*domain.Archive, error)
	GetArchiveByHash(ctx context.Context, hash string) (*domain.Archive, error)

	// Reconciliation. Each call runs its reads and writes inside a single
	// transaction; a mid-sequence failure leaves no partial diff applied.
	ReconcileArchiveSources(ctx context.Context, archiveID int64, incoming []domain.ArchiveSource) error
	ReconcileArchiveImages(ctx context.Context, archiveID int64, incoming []domain.ArchiveImage) (*ImageReconcileResult, error)
	ReconcileArchiveTags(ctx context.Context, archiveID int64, incoming []domain.Tag) error

	// Images
	GetArchiveImages(ctx context.Context, archiveID int64) ([]domain.ArchiveImage, error)
	SetImageDimensions(ctx context.Context, archiveID int64, pageNumber, width, height int) error
	ListImagesMissingDimensions(ctx context.Context, archiveID int64) ([]domain.ArchiveImage, error)

	// Tags
	GetArchiveTags(ctx context.Context, archiveID int64) ([]domain.Tag, error)

	// Sources
	GetArchiveSources(ctx context.Context, archiveID int64) ([]domain.ArchiveSource, error)
}

// UpsertArchiveData carries the archive-row fields of a metadata import.
// Nil pointers leave the stored value untouched on update.
type UpsertArchiveData struct {
	ID          *int64
	Title       *string
	Slug        *string
	Description *string
	Path        *string
	Hash        *string
	Pages       *int
	Size        *int64
	Thumbnail   *int
	Language    *string
	ReleasedAt  *time.Time
}

// ImageReconcileResult reports what an image reconciliation changed, so the
// caller can perform file-system cleanup outside the transaction.
type ImageReconcileResult struct {
	// Changed holds the pre-upsert rows whose page number survives but whose
	// backing file was replaced.
	Changed []domain.ArchiveImage
	// PreviousCount is the number of image rows before the upsert; the
	// zero-padding width of previously written files derives from it.
	PreviousCount int
	// DeletedPages are the page numbers removed because they are absent from
	// the incoming list.
	DeletedPages []int
}

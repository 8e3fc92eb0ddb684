package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/foliumapp/folium-server/internal/domain"
	"github.com/foliumapp/folium-server/internal/store"
)

// ImportDocument is the metadata payload for one archive, as produced by
// scrapers and dropped into the metadata inbox.
type ImportDocument struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Path        string     `json:"path"`
	Hash        string     `json:"hash"`
	Pages       int        `json:"pages"`
	Size        int64      `json:"size"`
	Thumbnail   int        `json:"thumbnail,omitempty"`
	Language    string     `json:"language,omitempty"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`

	Images  []ImportImage  `json:"images,omitempty"`
	Tags    []ImportTag    `json:"tags,omitempty"`
	Sources []ImportSource `json:"sources,omitempty"`
}

// ImportImage is one page entry of an import document.
type ImportImage struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
	Width      *int   `json:"width,omitempty"`
	Height     *int   `json:"height,omitempty"`
}

// ImportTag is one tag entry of an import document. Namespace may be empty;
// the reconciler defaults it.
type ImportTag struct {
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

// ImportSource is one attribution entry of an import document.
type ImportSource struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// ImporterService turns import documents into stored archives: it upserts the
// archive row, then runs the source, image, and tag reconcilers, then probes
// dimensions for pages that arrived without them.
type ImporterService struct {
	store    store.Store
	metadata *MetadataService
	logger   *slog.Logger
}

// NewImporterService creates a new importer service.
func NewImporterService(st store.Store, metadata *MetadataService, logger *slog.Logger) *ImporterService {
	return &ImporterService{
		store:    st,
		metadata: metadata,
		logger:   logger,
	}
}

// ImportFile reads an import document from disk and imports it.
func (s *ImporterService) ImportFile(ctx context.Context, path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read import document: %w", err)
	}

	var doc ImportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse import document %s: %w", path, err)
	}

	return s.Import(ctx, &doc)
}

// Import upserts the archive described by doc and reconciles its relations.
// Returns the archive id. One run id correlates the log lines of a single
// import.
func (s *ImporterService) Import(ctx context.Context, doc *ImportDocument) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)

	logger.Info("importing archive metadata",
		"title", doc.Title,
		"hash", doc.Hash,
		"pages", doc.Pages,
	)

	archiveID, err := s.store.UpsertArchive(ctx, upsertData(doc))
	if err != nil {
		return 0, fmt.Errorf("upsert archive: %w", err)
	}

	if err := s.metadata.ReconcileSources(ctx, archiveID, importSources(doc.Sources)); err != nil {
		return 0, fmt.Errorf("reconcile sources: %w", err)
	}

	if err := s.metadata.ReconcileImages(ctx, archiveID, doc.Hash, importImages(doc.Images)); err != nil {
		return 0, fmt.Errorf("reconcile images: %w", err)
	}

	if err := s.metadata.ReconcileTags(ctx, archiveID, importTags(doc.Tags)); err != nil {
		return 0, fmt.Errorf("reconcile tags: %w", err)
	}

	if err := s.metadata.ProbeDimensions(ctx, archiveID); err != nil {
		logger.Warn("dimension probe failed",
			"archive_id", archiveID,
			"error", err,
		)
	}

	logger.Info("archive imported",
		"archive_id", archiveID,
		"images", len(doc.Images),
		"tags", len(doc.Tags),
		"sources", len(doc.Sources),
	)

	return archiveID, nil
}

// upsertData maps a document to the archive-row upsert payload. Optional
// document fields map to nil so existing values survive an update.
func upsertData(doc *ImportDocument) store.UpsertArchiveData {
	data := store.UpsertArchiveData{
		Title:      nonEmpty(doc.Title),
		Path:       nonEmpty(doc.Path),
		Hash:       nonEmpty(doc.Hash),
		ReleasedAt: doc.ReleasedAt,
	}
	if doc.Description != "" {
		data.Description = &doc.Description
	}
	if doc.Language != "" {
		data.Language = &doc.Language
	}
	if doc.Pages > 0 {
		data.Pages = &doc.Pages
	}
	if doc.Size > 0 {
		data.Size = &doc.Size
	}
	if doc.Thumbnail > 0 {
		data.Thumbnail = &doc.Thumbnail
	} else if doc.Pages > 0 {
		one := 1
		data.Thumbnail = &one
	}
	return data
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func importImages(in []ImportImage) []domain.ArchiveImage {
	out := make([]domain.ArchiveImage, len(in))
	for i, img := range in {
		out[i] = domain.ArchiveImage{
			Filename:   img.Filename,
			PageNumber: img.PageNumber,
			Width:      img.Width,
			Height:     img.Height,
		}
	}
	return out
}

func importTags(in []ImportTag) []domain.Tag {
	out := make([]domain.Tag, len(in))
	for i, t := range in {
		out[i] = domain.Tag{Namespace: t.Namespace, Name: t.Name}
	}
	return out
}

func importSources(in []ImportSource) []domain.ArchiveSource {
	out := make([]domain.ArchiveSource, len(in))
	for i, src := range in {
		out[i] = domain.ArchiveSource{Name: src.Name, URL: src.URL}
	}
	return out
}

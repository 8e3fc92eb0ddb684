package service

import (
	"context"
	"log/slog"

	"github.com/foliumapp/folium-server/internal/config"
	"github.com/foliumapp/folium-server/internal/domain"
	"github.com/foliumapp/folium-server/internal/mapping"
	"github.com/foliumapp/folium-server/internal/media/pages"
	"github.com/foliumapp/folium-server/internal/store"
)

// MetadataService reconciles imported metadata into stored state: it
// normalizes incoming sources and tags through the configured mapping rules,
// hands the diffing to the store, and performs file-system cleanup for
// replaced pages after the transaction commits.
type MetadataService struct {
	store   store.Store
	storage *pages.Storage
	config  *config.Config
	logger  *slog.Logger
}

// NewMetadataService creates a new metadata service.
func NewMetadataService(
	st store.Store,
	storage *pages.Storage,
	cfg *config.Config,
	logger *slog.Logger,
) *MetadataService {
	return &MetadataService{
		store:   st,
		storage: storage,
		config:  cfg,
		logger:  logger,
	}
}

// ReconcileSources normalizes the incoming sources through the source mapping
// rules and merges them into the archive's stored set.
func (s *MetadataService) ReconcileSources(ctx context.Context, archiveID int64, incoming []domain.ArchiveSource) error {
	resolved := make([]domain.ArchiveSource, len(incoming))
	for i, src := range incoming {
		resolved[i] = mapping.ResolveSource(src, s.config.Metadata.SourceMapping)
	}

	return s.store.ReconcileArchiveSources(ctx, archiveID, resolved)
}

// ReconcileTags defaults missing namespaces, normalizes the incoming tags
// through the tag mapping rules, and merges them into the archive's stored
// associations.
func (s *MetadataService) ReconcileTags(ctx context.Context, archiveID int64, incoming []domain.Tag) error {
	resolved := make([]domain.Tag, len(incoming))
	for i, tag := range incoming {
		resolved[i] = mapping.ResolveTag(tag.WithDefaultNamespace(), s.config.Metadata.TagMapping)
	}

	return s.store.ReconcileArchiveTags(ctx, archiveID, resolved)
}

// ReconcileImages merges the incoming page list into the archive's stored set
// and, when image.removeOnUpdate is enabled, removes the on-disk files of
// replaced and deleted pages. File removal runs after the transaction has
// committed and never fails the reconciliation; a stale file is a cleanup
// concern, not a data-integrity one.
func (s *MetadataService) ReconcileImages(ctx context.Context, archiveID int64, hash string, incoming []domain.ArchiveImage) error {
	result, err := s.store.ReconcileArchiveImages(ctx, archiveID, incoming)
	if err != nil {
		return err
	}

	if !s.config.Image.RemoveOnUpdate {
		return nil
	}

	stale := make([]int, 0, len(result.Changed)+len(result.DeletedPages))
	for _, img := range result.Changed {
		stale = append(stale, img.PageNumber)
	}
	stale = append(stale, result.DeletedPages...)

	for _, page := range stale {
		// Stored filenames were padded to the width of the page count in
		// effect when they were written.
		removed, err := s.storage.RemovePageVariants(hash, page, result.PreviousCount)
		if err != nil {
			s.logger.Warn("failed to remove stale page files",
				"archive_id", archiveID,
				"page", page,
				"error", err,
			)
			continue
		}
		if removed > 0 {
			s.logger.Debug("removed stale page files",
				"archive_id", archiveID,
				"page", page,
				"files", removed,
			)
		}
	}

	return nil
}

// ProbeDimensions fills in missing width/height for an archive's pages by
// reading the stored image headers.
func (s *MetadataService) ProbeDimensions(ctx context.Context, archiveID int64) error {
	archive, err := s.store.GetArchive(ctx, archiveID)
	if err != nil {
		return err
	}

	missing, err := s.store.ListImagesMissingDimensions(ctx, archiveID)
	if err != nil {
		return err
	}

	for _, img := range missing {
		width, height, err := s.storage.ProbePage(archive.Hash, img.PageNumber, archive.Pages)
		if err != nil {
			s.logger.Warn("failed to probe page dimensions",
				"archive_id", archiveID,
				"page", img.PageNumber,
				"error", err,
			)
			continue
		}

		if err := s.store.SetImageDimensions(ctx, archiveID, img.PageNumber, width, height); err != nil {
			return err
		}
	}

	return nil
}

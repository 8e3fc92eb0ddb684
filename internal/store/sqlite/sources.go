package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/foliumapp/folium-server/internal/domain"
)

// fetchArchiveSources reads the stored sources for an archive.
func fetchArchiveSources(ctx context.Context, q dbtx, archiveID int64) ([]domain.ArchiveSource, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, url FROM archive_sources
		WHERE archive_id = ? ORDER BY name ASC`, archiveID)
	if err != nil {
		return nil, fmt.Errorf("query archive_sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.ArchiveSource
	for rows.Next() {
		var name, url sql.NullString
		if err := rows.Scan(&name, &url); err != nil {
			return nil, fmt.Errorf("scan archive_source: %w", err)
		}
		sources = append(sources, domain.ArchiveSource{
			Name: name.String,
			URL:  url.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return sources, nil
}

// GetArchiveSources returns the stored sources for an archive.
func (s *Store) GetArchiveSources(ctx context.Context, archiveID int64) ([]domain.ArchiveSource, error) {
	return fetchArchiveSources(ctx, s.db, archiveID)
}

// ReconcileArchiveSources replaces the archive's source set with the incoming
// one using a minimal diff: stored pairs absent from the incoming set are
// deleted, incoming pairs absent from the store are inserted, matching pairs
// are untouched. Incoming sources are expected to be normalized already.
//
// An incoming source with no name is dropped rather than stored with a null
// identity; a warning diagnostic is emitted for each.
func (s *Store) ReconcileArchiveSources(ctx context.Context, archiveID int64, incoming []domain.ArchiveSource) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := fetchArchiveSources(ctx, tx, archiveID)
	if err != nil {
		return err
	}

	for _, current := range existing {
		stale := true
		for _, src := range incoming {
			if current.Matches(src) {
				stale = false
				break
			}
		}
		if !stale {
			continue
		}

		// The pair is an identity, not a primary key: delete by matching
		// query. IS compares NULL-safely.
		_, err := tx.ExecContext(ctx, `
			DELETE FROM archive_sources
			WHERE archive_id = ? AND name IS ? AND url IS ?`,
			archiveID, nullString(current.Name), nullString(current.URL))
		if err != nil {
			return fmt.Errorf("delete archive_source: %w", err)
		}
	}

	// Defaulted map entries dedupe repeated incoming pairs.
	inserted := make(map[domain.ArchiveSource]bool, len(incoming))
	for _, src := range incoming {
		known := inserted[src]
		for _, current := range existing {
			if current.Matches(src) {
				known = true
				break
			}
		}
		if known {
			continue
		}
		inserted[src] = true

		if src.Name == "" {
			s.logger.Warn("skipping source with no name and no matching mapping",
				"archive_id", archiveID,
				"url", src.URL)
			continue
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO archive_sources (archive_id, name, url)
			VALUES (?, ?, ?)`,
			archiveID, src.Name, nullString(src.URL))
		if err != nil {
			return fmt.Errorf("insert archive_source: %w", err)
		}
	}

	return tx.Commit()
}

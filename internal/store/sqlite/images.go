package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/foliumapp/folium-server/internal/domain"
	"github.com/foliumapp/folium-server/internal/store"
)

// fetchArchiveImages reads the stored pages for an archive in page order.
func fetchArchiveImages(ctx context.Context, q dbtx, archiveID int64) ([]domain.ArchiveImage, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT filename, page_number, width, height FROM archive_images
		WHERE archive_id = ? ORDER BY page_number ASC`, archiveID)
	if err != nil {
		return nil, fmt.Errorf("query archive_images: %w", err)
	}
	defer rows.Close()

	var images []domain.ArchiveImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return images, nil
}

// scanImage scans one archive_images row.
func scanImage(scanner interface{ Scan(dest ...any) error }) (domain.ArchiveImage, error) {
	var (
		img           domain.ArchiveImage
		width, height sql.NullInt64
	)
	if err := scanner.Scan(&img.Filename, &img.PageNumber, &width, &height); err != nil {
		return img, fmt.Errorf("scan archive_image: %w", err)
	}
	img.Width = intPtr(width)
	img.Height = intPtr(height)
	return img, nil
}

// GetArchiveImages returns the stored pages for an archive.
func (s *Store) GetArchiveImages(ctx context.Context, archiveID int64) ([]domain.ArchiveImage, error) {
	return fetchArchiveImages(ctx, s.db, archiveID)
}

// ReconcileArchiveImages merges the incoming ordered page list into the
// store. Pages are keyed by (archive id, page number): existing pages are
// updated in place so server-computed width/height survive, new pages are
// inserted, and pages absent from the incoming list are batch-deleted. An
// empty incoming list is a valid "zero pages" signal and still runs the
// deletion pass.
//
// The returned result names the pages whose backing file was replaced; any
// on-disk cleanup is the caller's job, after this transaction commits.
func (s *Store) ReconcileArchiveImages(ctx context.Context, archiveID int64, incoming []domain.ArchiveImage) (*store.ImageReconcileResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := fetchArchiveImages(ctx, tx, archiveID)
	if err != nil {
		return nil, err
	}

	result := &store.ImageReconcileResult{PreviousCount: len(current)}

	incomingByPage := make(map[int]domain.ArchiveImage, len(incoming))
	for _, img := range incoming {
		incomingByPage[img.PageNumber] = img
	}

	// Pages whose number survives but whose backing file is replaced.
	for _, img := range current {
		if in, ok := incomingByPage[img.PageNumber]; ok && in.Filename != img.Filename {
			result.Changed = append(result.Changed, img)
		}
	}

	if len(incoming) > 0 {
		merged := make(map[int]domain.ArchiveImage, len(current)+len(incoming))
		for _, img := range current {
			merged[img.PageNumber] = img
		}

		// Width/height are recomputed downstream and must be retained across
		// the conflict resolution, so the update COALESCEs rather than
		// overwriting with NULL.
		for _, img := range incoming {
			row := tx.QueryRowContext(ctx, `
				INSERT INTO archive_images (archive_id, filename, page_number, width, height)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (archive_id, page_number) DO UPDATE SET
					filename = excluded.filename,
					width = COALESCE(excluded.width, archive_images.width),
					height = COALESCE(excluded.height, archive_images.height)
				RETURNING filename, page_number, width, height`,
				archiveID, img.Filename, img.PageNumber,
				nullIntPtr(img.Width), nullIntPtr(img.Height))

			stored, err := scanImage(row)
			if err != nil {
				return nil, fmt.Errorf("upsert archive_image page %d: %w", img.PageNumber, err)
			}
			merged[stored.PageNumber] = stored
		}

		current = current[:0]
		for _, img := range merged {
			current = append(current, img)
		}
	}

	// The deletion pass runs over the post-upsert state, so a page both
	// upserted and absent from incoming is impossible.
	for _, img := range current {
		if _, ok := incomingByPage[img.PageNumber]; !ok {
			result.DeletedPages = append(result.DeletedPages, img.PageNumber)
		}
	}
	sort.Ints(result.DeletedPages)

	if len(result.DeletedPages) > 0 {
		placeholders := make([]string, len(result.DeletedPages))
		args := make([]any, 0, len(result.DeletedPages)+1)
		args = append(args, archiveID)
		for i, page := range result.DeletedPages {
			placeholders[i] = "?"
			args = append(args, page)
		}

		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			DELETE FROM archive_images
			WHERE archive_id = ? AND page_number IN (%s)`,
			strings.Join(placeholders, ", ")), args...)
		if err != nil {
			return nil, fmt.Errorf("delete archive_images: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// SetImageDimensions records server-computed dimensions for one page.
func (s *Store) SetImageDimensions(ctx context.Context, archiveID int64, pageNumber, width, height int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE archive_images SET width = ?, height = ?
		WHERE archive_id = ? AND page_number = ?`,
		width, height, archiveID, pageNumber)
	if err != nil {
		return fmt.Errorf("update archive_image dimensions: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListImagesMissingDimensions returns pages that have not been probed yet.
func (s *Store) ListImagesMissingDimensions(ctx context.Context, archiveID int64) ([]domain.ArchiveImage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filename, page_number, width, height FROM archive_images
		WHERE archive_id = ? AND (width IS NULL OR height IS NULL)
		ORDER BY page_number ASC`, archiveID)
	if err != nil {
		return nil, fmt.Errorf("query archive_images: %w", err)
	}
	defer rows.Close()

	var images []domain.ArchiveImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return images, nil
}

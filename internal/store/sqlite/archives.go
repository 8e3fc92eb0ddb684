package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foliumapp/folium-server/internal/domain"
	"github.com/foliumapp/folium-server/internal/store"
	"github.com/foliumapp/folium-server/internal/util"
)

// archiveColumns is the ordered list of columns selected in archive queries.
// Must match the scan order in scanArchive.
const archiveColumns = `id, slug, title, description, path, hash, pages, size,
	thumbnail, language, created_at, updated_at, released_at, deleted_at`

// scanArchive scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Archive without its relations.
func scanArchive(scanner interface{ Scan(dest ...any) error }) (*domain.Archive, error) {
	var (
		a                     domain.Archive
		description, language sql.NullString
		createdAt, updatedAt  string
		releasedAt, deletedAt sql.NullString
	)

	err := scanner.Scan(
		&a.ID,
		&a.Slug,
		&a.Title,
		&description,
		&a.Path,
		&a.Hash,
		&a.Pages,
		&a.Size,
		&a.Thumbnail,
		&language,
		&createdAt,
		&updatedAt,
		&releasedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Description = description.String
	a.Language = language.String

	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	a.ReleasedAt, err = parseNullableTime(releasedAt)
	if err != nil {
		return nil, err
	}
	a.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// GetArchive retrieves an archive with its images, tags, and sources.
// Returns store.ErrNotFound if the archive does not exist.
func (s *Store) GetArchive(ctx context.Context, id int64) (*domain.Archive, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archives WHERE id = ?`, id)
	return s.archiveWithRelations(ctx, row)
}

// GetArchiveByHash retrieves a live archive by its content hash.
// Returns store.ErrNotFound if no matching archive exists.
func (s *Store) GetArchiveByHash(ctx context.Context, hash string) (*domain.Archive, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archives WHERE hash = ? AND deleted_at IS NULL`, hash)
	return s.archiveWithRelations(ctx, row)
}

func (s *Store) archiveWithRelations(ctx context.Context, row *sql.Row) (*domain.Archive, error) {
	a, err := scanArchive(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if a.Images, err = fetchArchiveImages(ctx, s.db, a.ID); err != nil {
		return nil, err
	}
	if a.Tags, err = fetchArchiveTags(ctx, s.db, a.ID); err != nil {
		return nil, err
	}
	if a.Sources, err = fetchArchiveSources(ctx, s.db, a.ID); err != nil {
		return nil, err
	}

	return a, nil
}

// UpsertArchive creates or updates the archive row and returns its id.
//
// The existing row is located by id, path, or hash. A hash change on an
// existing row is treated as a new edition: the stored row is copied to a new
// id under the new hash and the old row is soft-deleted, so history for the
// old content hash survives. Nil fields leave stored values untouched.
func (s *Store) UpsertArchive(ctx context.Context, data store.UpsertArchiveData) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		existingID   int64
		existingHash string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, hash FROM archives
		WHERE (id = ? OR path = ? OR hash = ?) AND deleted_at IS NULL`,
		nullInt64Ptr(data.ID), nullStringPtr(data.Path), nullStringPtr(data.Hash),
	).Scan(&existingID, &existingHash)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err := insertArchive(ctx, tx, data)
		if err != nil {
			return 0, err
		}
		return id, tx.Commit()

	case err != nil:
		return 0, fmt.Errorf("query archive: %w", err)
	}

	if data.Hash != nil && *data.Hash != existingHash {
		s.logger.Warn("archive hash changed, replacing with a new copy",
			"archive_id", existingID,
			"old_hash", existingHash,
			"new_hash", *data.Hash)

		newID, err := s.copyArchive(ctx, tx, existingID, data)
		if err != nil {
			return 0, err
		}
		return newID, tx.Commit()
	}

	if err := updateArchive(ctx, tx, existingID, data); err != nil {
		return 0, err
	}
	return existingID, tx.Commit()
}

// insertArchive inserts a fresh archive row. Title, path, hash, pages, size,
// and thumbnail are required for an insert.
func insertArchive(ctx context.Context, tx *sql.Tx, data store.UpsertArchiveData) (int64, error) {
	if data.Title == nil || data.Path == nil || data.Hash == nil ||
		data.Pages == nil || data.Size == nil || data.Thumbnail == nil {
		return 0, store.ErrInvalidInput.WithCause(errors.New("insufficient archive data to insert"))
	}

	slug := util.Slugify(*data.Title)
	if data.Slug != nil {
		slug = *data.Slug
	}

	now := formatTime(time.Now())

	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO archives (slug, title, description, path, hash, pages, size,
			thumbnail, language, created_at, updated_at, released_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		slug, *data.Title, nullStringPtr(data.Description), *data.Path, *data.Hash,
		*data.Pages, *data.Size, *data.Thumbnail, nullStringPtr(data.Language),
		now, now, nullTimeString(data.ReleasedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert archive: %w", err)
	}

	return id, nil
}

// updateArchive applies the non-nil fields of data to an existing row.
func updateArchive(ctx context.Context, tx *sql.Tx, id int64, data store.UpsertArchiveData) error {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if data.Title != nil {
		set("title", *data.Title)
	}
	if data.Slug != nil {
		set("slug", *data.Slug)
	}
	if data.Description != nil {
		set("description", nullString(*data.Description))
	}
	if data.Path != nil {
		set("path", *data.Path)
	}
	if data.Pages != nil {
		set("pages", *data.Pages)
	}
	if data.Size != nil {
		set("size", *data.Size)
	}
	if data.Thumbnail != nil {
		set("thumbnail", *data.Thumbnail)
	}
	if data.Language != nil {
		set("language", nullString(*data.Language))
	}
	if data.ReleasedAt != nil {
		set("released_at", formatTime(*data.ReleasedAt))
	}
	set("updated_at", formatTime(time.Now()))

	args = append(args, id)
	_, err := tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE archives SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return fmt.Errorf("update archive: %w", err)
	}
	return nil
}

// copyArchive inserts a copy of the stored row under the incoming hash,
// applies the incoming fields to the copy, and soft-deletes the original.
func (s *Store) copyArchive(ctx context.Context, tx *sql.Tx, oldID int64, data store.UpsertArchiveData) (int64, error) {
	now := formatTime(time.Now())

	var newID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO archives (slug, title, description, path, hash, pages, size,
			thumbnail, language, created_at, updated_at, released_at)
		SELECT slug, title, description, path, ?, pages, size,
			thumbnail, language, ?, ?, released_at
		FROM archives WHERE id = ?
		RETURNING id`,
		*data.Hash, now, now, oldID,
	).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("copy archive: %w", err)
	}

	// Hash is already set on the copy; apply the remaining incoming fields.
	if err := updateArchive(ctx, tx, newID, data); err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE archives SET deleted_at = ? WHERE id = ?`, now, oldID)
	if err != nil {
		return 0, fmt.Errorf("soft-delete archive: %w", err)
	}

	return newID, nil
}

// nullStringPtr returns a sql.NullString from a *string.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullInt64Ptr returns a sql.NullInt64 from an *int64.
func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

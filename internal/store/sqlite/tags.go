package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/foliumapp/folium-server/internal/domain"
	"github.com/foliumapp/folium-server/internal/store"
)

// tagKey builds the composite identity used for in-memory tag diffing.
// Lowercased to match the NOCASE collation on the tags table.
func tagKey(namespace, name string) string {
	return strings.ToLower(namespace + ":" + name)
}

// fetchArchiveTags reads the archive's tag associations joined to the global
// tag table.
func fetchArchiveTags(ctx context.Context, q dbtx, archiveID int64) ([]domain.Tag, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT tags.id, tags.namespace, tags.name FROM tags
		INNER JOIN archive_tags ON archive_tags.tag_id = tags.id
		WHERE archive_tags.archive_id = ?
		ORDER BY tags.namespace ASC, tags.name ASC`, archiveID)
	if err != nil {
		return nil, fmt.Errorf("query archive_tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Namespace, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return tags, nil
}

// GetArchiveTags returns the tags associated with an archive.
func (s *Store) GetArchiveTags(ctx context.Context, archiveID int64) ([]domain.Tag, error) {
	return fetchArchiveTags(ctx, s.db, archiveID)
}

// ReconcileArchiveTags merges the incoming tag list, already normalized, into
// the store. Global tag rows are created lazily via a conflict-resolving
// upsert and never deleted here, since other archives may share them; only
// the per-archive association rows are diffed.
func (s *Store) ReconcileArchiveTags(ctx context.Context, archiveID int64, incoming []domain.Tag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Known global rows matching any incoming tag, keyed by composite
	// identity. The lookup must not run with an empty match set.
	known := make(map[string]domain.Tag, len(incoming))
	if len(incoming) > 0 {
		placeholders := make([]string, len(incoming))
		args := make([]any, len(incoming))
		for i, t := range incoming {
			placeholders[i] = "?"
			args[i] = t.Namespace + ":" + t.Name
		}

		rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
			SELECT id, namespace, name FROM tags
			WHERE namespace || ':' || name COLLATE NOCASE IN (%s)`,
			strings.Join(placeholders, ", ")), args...)
		if err != nil {
			return fmt.Errorf("query tags: %w", err)
		}
		for rows.Next() {
			var t domain.Tag
			if err := rows.Scan(&t.ID, &t.Namespace, &t.Name); err != nil {
				rows.Close()
				return fmt.Errorf("scan tag: %w", err)
			}
			known[tagKey(t.Namespace, t.Name)] = t
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("rows iteration: %w", err)
		}
		rows.Close()
	}

	// Lazily create missing global rows. The upsert rewrites namespace/name
	// from the insert payload so a concurrent import that created the row
	// with different casing converges on the normalized form; the store's
	// conflict resolution is the concurrency contract for this shared table.
	for _, t := range incoming {
		if _, ok := known[tagKey(t.Namespace, t.Name)]; ok {
			continue
		}

		var stored domain.Tag
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tags (namespace, name) VALUES (?, ?)
			ON CONFLICT (namespace, name) DO UPDATE SET
				namespace = excluded.namespace,
				name = excluded.name
			RETURNING id, namespace, name`,
			t.Namespace, t.Name).Scan(&stored.ID, &stored.Namespace, &stored.Name)
		if err != nil {
			return fmt.Errorf("upsert tag %s: %w", t.Key(), err)
		}
		known[tagKey(stored.Namespace, stored.Name)] = stored
	}

	associated, err := fetchArchiveTags(ctx, tx, archiveID)
	if err != nil {
		return err
	}

	incomingKeys := make(map[string]bool, len(incoming))
	for _, t := range incoming {
		incomingKeys[tagKey(t.Namespace, t.Name)] = true
	}

	for _, t := range associated {
		if incomingKeys[tagKey(t.Namespace, t.Name)] {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM archive_tags WHERE archive_id = ? AND tag_id = ?`,
			archiveID, t.ID)
		if err != nil {
			return fmt.Errorf("delete archive_tag: %w", err)
		}
	}

	associatedKeys := make(map[string]bool, len(associated))
	for _, t := range associated {
		associatedKeys[tagKey(t.Namespace, t.Name)] = true
	}

	var insertIDs []int64
	for _, t := range incoming {
		key := tagKey(t.Namespace, t.Name)
		if associatedKeys[key] {
			continue
		}
		stored, ok := known[key]
		if !ok {
			// Every incoming tag was looked up or upserted above, so a miss
			// is a broken contract, not bad input.
			return fmt.Errorf("tag %s: %w", t.Key(), store.ErrTagUnresolved)
		}
		// Defaulted map entries dedupe repeated incoming tags.
		associatedKeys[key] = true
		insertIDs = append(insertIDs, stored.ID)
	}

	if len(insertIDs) > 0 {
		values := make([]string, len(insertIDs))
		args := make([]any, 0, len(insertIDs)*2)
		for i, id := range insertIDs {
			values[i] = "(?, ?)"
			args = append(args, archiveID, id)
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO archive_tags (archive_id, tag_id) VALUES %s`,
			strings.Join(values, ", ")), args...)
		if err != nil {
			return fmt.Errorf("insert archive_tags: %w", err)
		}
	}

	return tx.Commit()
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gamedev-cards/internal/domain"
)

const upsertEntryQuery = `
	INSERT INTO directory_entries (profile_id, username, owner, name, bio, game_count, level, tags, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (profile_id)
	DO UPDATE SET username = $2, owner = $3, name = $4, bio = $5,
		game_count = $6, level = $7, tags = $8, updated_at = $9
`

func entryArgs(e domain.DirectoryEntry, now time.Time) []any {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = now
	}
	return []any{e.ProfileID, e.Username, e.Owner, e.Name, e.Bio, e.GameCount, e.Level, tags, updated}
}

// BatchUpsertEntries inserts or replaces many entries in one round trip
func (r *Repository) BatchUpsertEntries(ctx context.Context, entries []domain.DirectoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now()
	for _, e := range entries {
		batch.Queue(upsertEntryQuery, entryArgs(e, now)...)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch upserting directory entries: %w", err)
		}
	}
	return nil
}

// ListEntries returns directory entries matching the filter, highest level first
func (r *Repository) ListEntries(ctx context.Context, f ListFilter) ([]domain.DirectoryEntry, error) {
	query, args, err := buildListQuery(f)
	if err != nil {
		return nil, fmt.Errorf("building directory query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing directory entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.DirectoryEntry, 0)
	for rows.Next() {
		var e domain.DirectoryEntry
		err := rows.Scan(
			&e.ProfileID,
			&e.Username,
			&e.Owner,
			&e.Name,
			&e.Bio,
			&e.GameCount,
			&e.Level,
			&e.Tags,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning directory entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing directory entries: %w", err)
	}
	return entries, nil
}

// PruneEntries deletes every entry whose profile id is not in keep and
// returns how many rows went away
func (r *Repository) PruneEntries(ctx context.Context, keep []string) (int64, error) {
	query, args, err := buildPruneQuery(keep)
	if err != nil {
		return 0, fmt.Errorf("building prune query: %w", err)
	}
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("pruning directory entries: %w", err)
	}
	return result.RowsAffected(), nil
}

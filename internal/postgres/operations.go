package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/games"
)

var _ games.PendingStore = (*Repository)(nil)

const operationColumns = `id, kind, address, profile_id, game_id, game, known_game_ids, name, status, digest, error, created_at, updated_at`

// SaveOperation inserts or replaces a pending operation
func (r *Repository) SaveOperation(ctx context.Context, op domain.PendingOperation) error {
	var gameJSON []byte
	if op.Game != nil {
		var err error
		gameJSON, err = json.Marshal(op.Game)
		if err != nil {
			return fmt.Errorf("marshaling game: %w", err)
		}
	}
	var knownJSON []byte
	if len(op.KnownGameIDs) > 0 {
		var err error
		knownJSON, err = json.Marshal(op.KnownGameIDs)
		if err != nil {
			return fmt.Errorf("marshaling known game ids: %w", err)
		}
	}

	query := `
		INSERT INTO pending_operations (` + operationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id)
		DO UPDATE SET profile_id = $4, game_id = $5, game = $6, known_game_ids = $7,
			name = $8, status = $9, digest = $10, error = $11, updated_at = $13
	`
	_, err := r.pool.Exec(ctx, query,
		op.ID,
		string(op.Kind),
		op.Address,
		op.ProfileID,
		op.GameID,
		gameJSON,
		knownJSON,
		op.Name,
		string(op.Status),
		op.Digest,
		op.Error,
		op.CreatedAt,
		op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving operation: %w", err)
	}
	return nil
}

func scanOperation(row pgx.Row) (*domain.PendingOperation, error) {
	var (
		op        domain.PendingOperation
		gameJSON  []byte
		knownJSON []byte
	)
	err := row.Scan(
		&op.ID,
		&op.Kind,
		&op.Address,
		&op.ProfileID,
		&op.GameID,
		&gameJSON,
		&knownJSON,
		&op.Name,
		&op.Status,
		&op.Digest,
		&op.Error,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(gameJSON) > 0 {
		var g domain.Game
		if err := json.Unmarshal(gameJSON, &g); err != nil {
			return nil, fmt.Errorf("unmarshaling game: %w", err)
		}
		op.Game = &g
	}
	if len(knownJSON) > 0 {
		if err := json.Unmarshal(knownJSON, &op.KnownGameIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling known game ids: %w", err)
		}
	}
	return &op, nil
}

// GetOperation retrieves a pending operation by id
func (r *Repository) GetOperation(ctx context.Context, id string) (*domain.PendingOperation, error) {
	query := `SELECT ` + operationColumns + ` FROM pending_operations WHERE id = $1`
	op, err := scanOperation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOperationNotFound
		}
		return nil, fmt.Errorf("getting operation: %w", err)
	}
	return op, nil
}

// ListOperations returns an address's operations oldest first; an empty status matches all
func (r *Repository) ListOperations(ctx context.Context, address string, status domain.OperationStatus) ([]domain.PendingOperation, error) {
	query := `
		SELECT ` + operationColumns + `
		FROM pending_operations
		WHERE address = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, address, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	ops := make([]domain.PendingOperation, 0)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

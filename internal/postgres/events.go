package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/gamedev-cards/internal/domain"
)

// RecordEvent stores a relayed chain event. Redelivered events are ignored;
// the result reports whether the event was new.
func (r *Repository) RecordEvent(ctx context.Context, event domain.ChainEvent) (bool, error) {
	var emitted *time.Time
	if event.TimestampMs > 0 {
		t := time.UnixMilli(event.TimestampMs).UTC()
		emitted = &t
	}
	seq := event.EventSeq
	if seq == "" {
		seq = "0"
	}

	query := `
		INSERT INTO chain_events (digest, event_seq, event_type, sender, profile_id, game_id, emitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (digest, event_seq) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query,
		event.Digest,
		seq,
		string(event.Type),
		event.Sender,
		event.ProfileID,
		event.GameID,
		emitted,
	)
	if err != nil {
		return false, fmt.Errorf("recording event: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// HasEvent reports whether a chain event was already recorded
func (r *Repository) HasEvent(ctx context.Context, event domain.ChainEvent) (bool, error) {
	seq := event.EventSeq
	if seq == "" {
		seq = "0"
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM chain_events WHERE digest = $1 AND event_seq = $2)`
	if err := r.pool.QueryRow(ctx, query, event.Digest, seq).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking event: %w", err)
	}
	return exists, nil
}

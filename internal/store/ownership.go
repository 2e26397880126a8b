package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// The message ownership index maps message ids to their author so that
// later events (replies, reactions) can attribute back to the original
// sender. Rows are write-once; retention/pruning by timestamp is an
// external job.

// RecordMessage inserts an ownership record. First write wins: a second
// insert for the same message id is silently ignored so attribution
// history is never overwritten.
func (s *Store) RecordMessage(ctx context.Context, messageID, groupID, userID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO message_owner_index (message_id, group_id, user_id, sent_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id) DO NOTHING`,
		messageID, groupID, userID, at,
	)
	if err != nil {
		return fmt.Errorf("record message owner: %w", err)
	}
	return nil
}

// ResolveOwner looks up the author of a message. A miss returns
// ("", false, nil): history may predate the index.
func (s *Store) ResolveOwner(ctx context.Context, messageID string) (string, bool, error) {
	var userID string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM message_owner_index WHERE message_id = $1`,
		messageID,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve message owner: %w", err)
	}
	return userID, true, nil
}

// HasMessage reports whether the index already holds this message id.
// Backfill uses it to stay idempotent across repeated replays.
func (s *Store) HasMessage(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM message_owner_index WHERE message_id = $1)`,
		messageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check message owner: %w", err)
	}
	return exists, nil
}

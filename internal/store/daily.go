package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nightcourt-labs/verdict/internal/metrics"
)

// DateLayout is the canonical key format for the daily aggregate rows.
const DateLayout = "2006-01-02"

// Today returns the current UTC processing date in DateLayout form.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// DailyAggregate is one (date, group, user) row of accumulated counters.
// Counters only ever increase within their day; the store is the only
// writer.
type DailyAggregate struct {
	Date    string `json:"date"`
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`

	MessagesSent      int `json:"messages_sent"`
	TotalTextLength   int `json:"total_text_length"`
	ImagesSent        int `json:"images_sent"`
	RepliesSent       int `json:"replies_sent"`
	RepliesReceived   int `json:"replies_received"`
	PokesSent         int `json:"pokes_sent"`
	PokesReceived     int `json:"pokes_received"`
	ReactionsSent     int `json:"reactions_sent"`
	ReactionsReceived int `json:"reactions_received"`
	RecallsSent       int `json:"recalls_sent"`
	RepeatsDetected   int `json:"repeats_detected"`
	TopicsOpened      int `json:"topics_opened"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyDelta creates the row for (date, group, user) if absent and adds
// every delta field to it in a single statement, so concurrent deltas for
// the same key never lose updates and deltas for different keys never
// serialize against each other.
func (s *Store) ApplyDelta(ctx context.Context, date, groupID, userID string, d metrics.Delta) error {
	if d.IsZero() {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO persona_daily (
			date, group_id, user_id,
			messages_sent, total_text_length, images_sent,
			replies_sent, replies_received,
			pokes_sent, pokes_received,
			reactions_sent, reactions_received,
			recalls_sent, repeats_detected, topics_opened,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
		ON CONFLICT (date, group_id, user_id) DO UPDATE SET
			messages_sent      = persona_daily.messages_sent      + EXCLUDED.messages_sent,
			total_text_length  = persona_daily.total_text_length  + EXCLUDED.total_text_length,
			images_sent        = persona_daily.images_sent        + EXCLUDED.images_sent,
			replies_sent       = persona_daily.replies_sent       + EXCLUDED.replies_sent,
			replies_received   = persona_daily.replies_received   + EXCLUDED.replies_received,
			pokes_sent         = persona_daily.pokes_sent         + EXCLUDED.pokes_sent,
			pokes_received     = persona_daily.pokes_received     + EXCLUDED.pokes_received,
			reactions_sent     = persona_daily.reactions_sent     + EXCLUDED.reactions_sent,
			reactions_received = persona_daily.reactions_received + EXCLUDED.reactions_received,
			recalls_sent       = persona_daily.recalls_sent       + EXCLUDED.recalls_sent,
			repeats_detected   = persona_daily.repeats_detected   + EXCLUDED.repeats_detected,
			topics_opened      = persona_daily.topics_opened      + EXCLUDED.topics_opened,
			updated_at         = now()`,
		date, groupID, userID,
		d.MessagesSent, d.TotalTextLength, d.ImagesSent,
		d.RepliesSent, d.RepliesReceived,
		d.PokesSent, d.PokesReceived,
		d.ReactionsSent, d.ReactionsReceived,
		d.RecallsSent, d.RepeatsDetected, d.TopicsOpened,
	)
	if err != nil {
		return fmt.Errorf("apply delta: %w", err)
	}
	return nil
}

// GetDaily fetches the aggregate for (date, group, user). A missing row
// returns (nil, false, nil): no traffic that day is not an error.
func (s *Store) GetDaily(ctx context.Context, date, groupID, userID string) (*DailyAggregate, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT date::text, group_id, user_id,
			messages_sent, total_text_length, images_sent,
			replies_sent, replies_received,
			pokes_sent, pokes_received,
			reactions_sent, reactions_received,
			recalls_sent, repeats_detected, topics_opened,
			updated_at
		FROM persona_daily
		WHERE date = $1 AND group_id = $2 AND user_id = $3`,
		date, groupID, userID,
	)

	var a DailyAggregate
	err := row.Scan(
		&a.Date, &a.GroupID, &a.UserID,
		&a.MessagesSent, &a.TotalTextLength, &a.ImagesSent,
		&a.RepliesSent, &a.RepliesReceived,
		&a.PokesSent, &a.PokesReceived,
		&a.ReactionsSent, &a.ReactionsReceived,
		&a.RecallsSent, &a.RepeatsDetected, &a.TopicsOpened,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get daily: %w", err)
	}
	return &a, true, nil
}

// Package backfill replays a batch of past group events through the
// same extraction logic as live ingestion, to cold-start a profile when
// the day's live data is too thin. Replays are idempotent: any message
// already present in the ownership index is skipped before it can
// contribute a delta.
package backfill

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/nightcourt-labs/verdict/internal/event"
	"github.com/nightcourt-labs/verdict/internal/metrics"
	"github.com/nightcourt-labs/verdict/internal/session"
	"github.com/nightcourt-labs/verdict/internal/store"
)

type DailyStore interface {
	ApplyDelta(ctx context.Context, date, groupID, userID string, d metrics.Delta) error
}

type OwnershipIndex interface {
	RecordMessage(ctx context.Context, messageID, groupID, userID string, at time.Time) error
	ResolveOwner(ctx context.Context, messageID string) (string, bool, error)
	HasMessage(ctx context.Context, messageID string) (bool, error)
}

// Result counts what happened to each batch entry. Malformed entries and
// already-indexed messages are skipped; store failures are errors. None
// of them abort the batch.
type Result struct {
	Processed int
	Skipped   int
	Errors    int
}

type Replayer struct {
	daily   DailyStore
	index   OwnershipIndex
	silence time.Duration
	logger  *slog.Logger
}

func NewReplayer(daily DailyStore, index OwnershipIndex, silence time.Duration, logger *slog.Logger) *Replayer {
	return &Replayer{
		daily:   daily,
		index:   index,
		silence: silence,
		logger:  logger,
	}
}

// Replay runs a batch of raw event envelopes for one group. Only message
// events replay (platform history carries no notices); entries of other
// kinds count as skipped. Deltas apply only for events whose embedded
// timestamp falls on targetDate (DateLayout form). The replay uses its
// own fresh session state, so the batch's first message always counts as
// a topic opening.
func (r *Replayer) Replay(ctx context.Context, groupID, targetDate string, batch []json.RawMessage) Result {
	var res Result

	msgs := make([]*event.Message, 0, len(batch))
	for _, raw := range batch {
		env, err := event.DecodeEnvelope(raw)
		if err != nil {
			r.logger.Warn("skipping malformed backfill entry", "error", err)
			res.Skipped++
			continue
		}
		if env.Type != event.TypeMessage || env.Message.GroupID != groupID {
			res.Skipped++
			continue
		}
		msgs = append(msgs, env.Message)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})

	// Replay-local ephemeral state: cold start by construction.
	state := session.NewGroupState()

	for _, m := range msgs {
		seen, err := r.index.HasMessage(ctx, m.MessageID)
		if err != nil {
			r.logger.Error("backfill index check failed", "message_id", m.MessageID, "error", err)
			res.Errors++
			continue
		}
		if seen {
			res.Skipped++
			continue
		}

		snap := state.Observe(m.UserID, m.Text, m.Time())

		if err := r.index.RecordMessage(ctx, m.MessageID, m.GroupID, m.UserID, m.Time()); err != nil {
			r.logger.Error("backfill ownership write failed", "message_id", m.MessageID, "error", err)
			res.Errors++
			continue
		}

		// Ownership and session state advance for every replayed
		// message; aggregates only change on the target date.
		if m.Time().Format(store.DateLayout) != targetDate {
			res.Skipped++
			continue
		}

		deltas := map[string]metrics.Delta{
			m.UserID: metrics.EffortFromMessage(m).
				Add(metrics.NegativeFromMessage(m, snap.LastUserText)).
				Add(metrics.ContinuityFromMessage(m, snap.LastGroupMessageAt, r.silence)),
		}

		attrs, err := metrics.FeedbackFromMessage(m, func(messageID string) (string, bool, error) {
			return r.index.ResolveOwner(ctx, messageID)
		})
		if err != nil {
			r.logger.Error("backfill attribution failed", "message_id", m.MessageID, "error", err)
			res.Errors++
			continue
		}
		for _, a := range attrs {
			deltas[a.UserID] = deltas[a.UserID].Add(a.Delta)
		}

		failed := false
		for userID, d := range deltas {
			if d.IsZero() {
				continue
			}
			if err := r.daily.ApplyDelta(ctx, targetDate, m.GroupID, userID, d); err != nil {
				r.logger.Error("backfill delta write failed", "message_id", m.MessageID, "user", userID, "error", err)
				res.Errors++
				failed = true
				break
			}
		}
		if failed {
			continue
		}

		res.Processed++
	}

	r.logger.Info("backfill replay complete",
		"group", groupID,
		"target_date", targetDate,
		"processed", res.Processed,
		"skipped", res.Skipped,
		"errors", res.Errors,
	)
	return res
}

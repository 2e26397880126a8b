// Package processor is the ingestion pipeline: it consumes chat events
// from the bus, runs the metric extractors, keeps the ephemeral session
// state and ownership index consistent, and applies the resulting deltas
// to the daily aggregate store.
package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/nightcourt-labs/verdict/internal/event"
	"github.com/nightcourt-labs/verdict/internal/metrics"
	"github.com/nightcourt-labs/verdict/internal/session"
	"github.com/nightcourt-labs/verdict/internal/store"
)

// DailyStore is the slice of the durable store the processor writes
// aggregates through.
type DailyStore interface {
	ApplyDelta(ctx context.Context, date, groupID, userID string, d metrics.Delta) error
}

// OwnershipIndex records and resolves message authorship for cross-event
// attribution.
type OwnershipIndex interface {
	RecordMessage(ctx context.Context, messageID, groupID, userID string, at time.Time) error
	ResolveOwner(ctx context.Context, messageID string) (string, bool, error)
}

type Processor struct {
	daily    DailyStore
	index    OwnershipIndex
	sessions *session.Registry
	silence  time.Duration
	logger   *slog.Logger
}

func New(daily DailyStore, index OwnershipIndex, sessions *session.Registry, silence time.Duration, logger *slog.Logger) *Processor {
	return &Processor{
		daily:    daily,
		index:    index,
		sessions: sessions,
		silence:  silence,
		logger:   logger,
	}
}

// HandleMessage is the bus handler for chat.event.message.
func (p *Processor) HandleMessage(subject string, data []byte) {
	m, err := event.DecodeMessage(data)
	if err != nil {
		p.logger.Warn("dropping malformed message event", "error", err)
		return
	}
	if err := p.ProcessMessage(context.Background(), m); err != nil {
		// Store failure: this event's contribution is lost, the stream
		// continues.
		p.logger.Error("message processing failed", "message_id", m.MessageID, "error", err)
	}
}

// HandleNotice is the bus handler for chat.event.notice.
func (p *Processor) HandleNotice(subject string, data []byte) {
	n, err := event.DecodeNotice(data)
	if err != nil {
		p.logger.Warn("dropping malformed notice event", "error", err)
		return
	}
	if err := p.ProcessNotice(context.Background(), n); err != nil {
		p.logger.Error("notice processing failed", "kind", n.Kind, "error", err)
	}
}

// ProcessMessage runs one message through the full pipeline. The session
// state is read and advanced synchronously before any storage I/O, so
// later events observe a consistent snapshot regardless of how long the
// writes take. The ownership record lands before the message's own
// aggregate update so a reply arriving next can already resolve it.
func (p *Processor) ProcessMessage(ctx context.Context, m *event.Message) error {
	snap := p.sessions.Group(m.GroupID).Observe(m.UserID, m.Text, m.Time())

	if err := p.index.RecordMessage(ctx, m.MessageID, m.GroupID, m.UserID, m.Time()); err != nil {
		return err
	}

	deltas := map[string]metrics.Delta{
		m.UserID: metrics.EffortFromMessage(m).
			Add(metrics.NegativeFromMessage(m, snap.LastUserText)).
			Add(metrics.ContinuityFromMessage(m, snap.LastGroupMessageAt, p.silence)),
	}

	attrs, err := metrics.FeedbackFromMessage(m, p.resolver(ctx))
	if err != nil {
		return err
	}
	mergeAttributions(deltas, attrs)

	return p.apply(ctx, m.GroupID, deltas)
}

// ProcessNotice runs one notice (poke, reaction, recall) through the
// pipeline. A reaction whose referenced message is unknown changes
// nothing anywhere.
func (p *Processor) ProcessNotice(ctx context.Context, n *event.Notice) error {
	deltas := map[string]metrics.Delta{}

	actor := metrics.EffortFromNotice(n).Add(metrics.NegativeFromNotice(n))
	if !actor.IsZero() {
		deltas[n.ActorID] = actor
	}

	attrs, err := metrics.FeedbackFromNotice(n, p.resolver(ctx))
	if err != nil {
		return err
	}
	mergeAttributions(deltas, attrs)

	return p.apply(ctx, n.GroupID, deltas)
}

func (p *Processor) resolver(ctx context.Context) metrics.ResolveFunc {
	return func(messageID string) (string, bool, error) {
		userID, ok, err := p.index.ResolveOwner(ctx, messageID)
		if err != nil {
			return "", false, err
		}
		if !ok {
			p.logger.Debug("attribution miss", "message_id", messageID)
		}
		return userID, ok, nil
	}
}

func (p *Processor) apply(ctx context.Context, groupID string, deltas map[string]metrics.Delta) error {
	date := store.Today()
	for userID, d := range deltas {
		if d.IsZero() {
			continue
		}
		if err := p.daily.ApplyDelta(ctx, date, groupID, userID, d); err != nil {
			return err
		}
	}
	return nil
}

func mergeAttributions(deltas map[string]metrics.Delta, attrs []metrics.Attribution) {
	for _, a := range attrs {
		deltas[a.UserID] = deltas[a.UserID].Add(a.Delta)
	}
}

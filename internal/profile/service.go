// Package profile is the query surface orchestration: cold-start
// backfill, scoring, classification, commentary, and rendering for one
// (group, user) on the current day.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nightcourt-labs/verdict/internal/backfill"
	"github.com/nightcourt-labs/verdict/internal/bus"
	"github.com/nightcourt-labs/verdict/internal/commentary"
	"github.com/nightcourt-labs/verdict/internal/render"
	"github.com/nightcourt-labs/verdict/internal/scoring"
	"github.com/nightcourt-labs/verdict/internal/store"
)

type AggregateReader interface {
	GetDaily(ctx context.Context, date, groupID, userID string) (*store.DailyAggregate, bool, error)
}

type HistoryFetcher interface {
	FetchGroupHistory(ctx context.Context, groupID string, count int) ([]json.RawMessage, error)
}

type Renderer interface {
	Render(ctx context.Context, p render.Payload) (string, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Profile is the assembled daily persona for one user.
type Profile struct {
	ID        string               `json:"id"`
	Date      string               `json:"date"`
	GroupID   string               `json:"group_id"`
	UserID    string               `json:"user_id"`
	UserName  string               `json:"user_name"`
	Scores    scoring.Bundle       `json:"scores"`
	Archetype scoring.Archetype    `json:"archetype"`
	Title     string               `json:"title"`
	Narrative commentary.Narrative `json:"narrative"`
	Equation  string               `json:"equation"`

	// ArtifactRef is the opaque render artifact; empty when rendering
	// failed, with RenderError explaining why. A render failure never
	// fails the profile.
	ArtifactRef string `json:"artifact_ref,omitempty"`
	RenderError string `json:"render_error,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

type Service struct {
	reader     AggregateReader
	replayer   *backfill.Replayer
	history    HistoryFetcher
	engine     *scoring.Engine
	commentary *commentary.Generator
	renderer   Renderer
	publisher  Publisher

	historyCount int
	logger       *slog.Logger
}

func NewService(
	reader AggregateReader,
	replayer *backfill.Replayer,
	history HistoryFetcher,
	engine *scoring.Engine,
	gen *commentary.Generator,
	renderer Renderer,
	publisher Publisher,
	historyCount int,
	logger *slog.Logger,
) *Service {
	return &Service{
		reader:       reader,
		replayer:     replayer,
		history:      history,
		engine:       engine,
		commentary:   gen,
		renderer:     renderer,
		publisher:    publisher,
		historyCount: historyCount,
		logger:       logger,
	}
}

// Build assembles today's profile for (group, user). It returns
// scoring.ErrInsufficientData when the user stayed below the message
// floor even after a cold-start backfill attempt.
func (s *Service) Build(ctx context.Context, groupID, userID, userName string) (*Profile, error) {
	today := store.Today()

	agg, ok, err := s.reader.GetDaily(ctx, today, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("read daily aggregate: %w", err)
	}

	// Too little same-day data: try to cold-start from platform history.
	if (!ok || agg.MessagesSent < s.engine.MinMessages) && s.history != nil && s.replayer != nil {
		s.backfillToday(ctx, groupID, today)
		agg, ok, err = s.reader.GetDaily(ctx, today, groupID, userID)
		if err != nil {
			return nil, fmt.Errorf("read daily aggregate after backfill: %w", err)
		}
	}
	if !ok {
		return nil, scoring.ErrInsufficientData
	}

	prev := s.previousComposite(ctx, groupID, userID)

	bundle, err := s.engine.Compute(agg, prev)
	if err != nil {
		return nil, err
	}

	archetype := scoring.Classify(bundle)
	narrative := s.commentary.Generate(ctx, bundle, archetype, agg)

	p := &Profile{
		ID:          uuid.New().String(),
		Date:        today,
		GroupID:     groupID,
		UserID:      userID,
		UserName:    userName,
		Scores:      bundle,
		Archetype:   archetype,
		Title:       archetype.Title(),
		Narrative:   narrative,
		Equation:    Equation(bundle),
		GeneratedAt: time.Now().UTC(),
	}

	if s.renderer != nil {
		ref, err := s.renderer.Render(ctx, s.renderPayload(p, agg))
		if err != nil {
			s.logger.Warn("card render failed", "group", groupID, "user", userID, "error", err)
			p.RenderError = err.Error()
		} else {
			p.ArtifactRef = ref
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(bus.SubjectProfileGenerated, map[string]any{
			"profile_id": p.ID,
			"date":       p.Date,
			"group_id":   p.GroupID,
			"user_id":    p.UserID,
			"archetype":  string(p.Archetype),
			"composite":  p.Scores.Composite,
		}); err != nil {
			s.logger.Warn("failed to publish profile event", "error", err)
		}
	}

	return p, nil
}

func (s *Service) backfillToday(ctx context.Context, groupID, today string) {
	batch, err := s.history.FetchGroupHistory(ctx, groupID, s.historyCount)
	if err != nil {
		s.logger.Warn("cold-start history fetch failed", "group", groupID, "error", err)
		return
	}
	res := s.replayer.Replay(ctx, groupID, today, batch)
	s.logger.Info("cold-start backfill finished",
		"group", groupID,
		"processed", res.Processed,
		"skipped", res.Skipped,
		"errors", res.Errors,
	)
}

// previousComposite returns yesterday's composite, or -1 when yesterday
// has no scorable data.
func (s *Service) previousComposite(ctx context.Context, groupID, userID string) int {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(store.DateLayout)
	agg, ok, err := s.reader.GetDaily(ctx, yesterday, groupID, userID)
	if err != nil || !ok {
		return -1
	}
	b, err := s.engine.Compute(agg, -1)
	if err != nil {
		return -1
	}
	return b.Composite
}

// Equation renders the composite formula with the day's values filled
// in, for display on the card.
func Equation(b scoring.Bundle) string {
	return fmt.Sprintf("J = ((F:%d + C:%d) - (N:%d + E:%d) + 200) / 4 => %d%%",
		b.FeedbackN, b.ContinuityN, b.NegativeN, b.EffortN, b.Composite)
}

func (s *Service) renderPayload(p *Profile, agg *store.DailyAggregate) render.Payload {
	avgLen := 0
	if agg.MessagesSent > 0 {
		avgLen = agg.TotalTextLength / agg.MessagesSent
	}
	return render.Payload{
		RequestID: p.ID,
		UserID:    p.UserID,
		UserName:  p.UserName,
		GroupID:   p.GroupID,
		Title:     p.Title,
		Label:     string(p.Archetype),
		Score:     p.Scores.Composite,
		Metrics: map[string]string{
			"Effort":     fmt.Sprintf("%d%%", p.Scores.EffortN),
			"Feedback":   fmt.Sprintf("%d%%", p.Scores.FeedbackN),
			"Negative":   fmt.Sprintf("%d%%", p.Scores.NegativeN),
			"Continuity": fmt.Sprintf("%d%%", p.Scores.ContinuityN),
			"Messages":   fmt.Sprintf("%d/day", agg.MessagesSent),
			"Avg length": fmt.Sprintf("%d chars/msg", avgLen),
		},
		Insights:  p.Narrative.Insights,
		Verdict:   p.Narrative.Verdict,
		Equation:  p.Equation,
		Generated: p.GeneratedAt.Format("2006-01-02 15:04:05"),
	}
}

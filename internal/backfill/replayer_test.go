package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/nightcourt-labs/verdict/internal/metrics"
)

type fakeDaily struct {
	deltas map[string]metrics.Delta
}

func newFakeDaily() *fakeDaily {
	return &fakeDaily{deltas: map[string]metrics.Delta{}}
}

func (f *fakeDaily) ApplyDelta(_ context.Context, date, groupID, userID string, d metrics.Delta) error {
	key := fmt.Sprintf("%s|%s|%s", date, groupID, userID)
	f.deltas[key] = f.deltas[key].Add(d)
	return nil
}

type fakeIndex struct {
	owners map[string]string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{owners: map[string]string{}}
}

func (f *fakeIndex) RecordMessage(_ context.Context, messageID, _, userID string, _ time.Time) error {
	if _, ok := f.owners[messageID]; !ok {
		f.owners[messageID] = userID
	}
	return nil
}

func (f *fakeIndex) ResolveOwner(_ context.Context, messageID string) (string, bool, error) {
	userID, ok := f.owners[messageID]
	return userID, ok, nil
}

func (f *fakeIndex) HasMessage(_ context.Context, messageID string) (bool, error) {
	_, ok := f.owners[messageID]
	return ok, nil
}

var replayBase = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

const targetDate = "2026-05-04"

func rawMessage(t *testing.T, group, user, id, text string, at time.Time) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"type": "message",
		"message": map[string]any{
			"group_id":   group,
			"user_id":    user,
			"message_id": id,
			"text":       text,
			"timestamp":  at.Unix(),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestReplay_ProcessesBatch(t *testing.T) {
	daily := newFakeDaily()
	index := newFakeIndex()
	r := NewReplayer(daily, index, metrics.DefaultSilenceThreshold, slog.Default())

	batch := []json.RawMessage{
		rawMessage(t, "g1", "alice", "m1", "hello", replayBase),
		rawMessage(t, "g1", "bob", "m2", "hi", replayBase.Add(time.Minute)),
	}
	res := r.Replay(context.Background(), "g1", targetDate, batch)

	if res.Processed != 2 || res.Skipped != 0 || res.Errors != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	alice := daily.deltas[targetDate+"|g1|alice"]
	if alice.MessagesSent != 1 || alice.TopicsOpened != 1 {
		t.Errorf("alice delta = %+v, want 1 message and the cold-start topic", alice)
	}
	bob := daily.deltas[targetDate+"|g1|bob"]
	if bob.MessagesSent != 1 || bob.TopicsOpened != 0 {
		t.Errorf("bob delta = %+v, want 1 message and no topic", bob)
	}
}

func TestReplay_Idempotent(t *testing.T) {
	daily := newFakeDaily()
	index := newFakeIndex()
	r := NewReplayer(daily, index, metrics.DefaultSilenceThreshold, slog.Default())

	batch := []json.RawMessage{
		rawMessage(t, "g1", "alice", "m1", "hello", replayBase),
	}
	ctx := context.Background()

	first := r.Replay(ctx, "g1", targetDate, batch)
	second := r.Replay(ctx, "g1", targetDate, batch)

	if first.Processed != 1 {
		t.Fatalf("first replay: %+v", first)
	}
	if second.Processed != 0 || second.Skipped != 1 {
		t.Fatalf("second replay must skip everything, got %+v", second)
	}
	if got := daily.deltas[targetDate+"|g1|alice"]; got.MessagesSent != 1 {
		t.Errorf("MessagesSent = %d after double replay, want 1", got.MessagesSent)
	}
}

func TestReplay_SkipsMalformedAndForeign(t *testing.T) {
	daily := newFakeDaily()
	index := newFakeIndex()
	r := NewReplayer(daily, index, metrics.DefaultSilenceThreshold, slog.Default())

	batch := []json.RawMessage{
		json.RawMessage(`not json`),
		json.RawMessage(`{"type":"notice","notice":{"group_id":"g1","actor_id":"x","kind":"poke"}}`),
		rawMessage(t, "other-group", "alice", "m1", "hello", replayBase),
		rawMessage(t, "g1", "alice", "m2", "hello", replayBase),
	}
	res := r.Replay(context.Background(), "g1", targetDate, batch)

	if res.Processed != 1 {
		t.Errorf("Processed = %d, want 1", res.Processed)
	}
	if res.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", res.Skipped)
	}
}

func TestReplay_OtherDatesAdvanceStateButNotAggregates(t *testing.T) {
	daily := newFakeDaily()
	index := newFakeIndex()
	r := NewReplayer(daily, index, metrics.DefaultSilenceThreshold, slog.Default())

	dayBefore := replayBase.Add(-24 * time.Hour)
	batch := []json.RawMessage{
		rawMessage(t, "g1", "alice", "m1", "yesterday", dayBefore),
		rawMessage(t, "g1", "alice", "m2", "today", replayBase),
	}
	res := r.Replay(context.Background(), "g1", targetDate, batch)

	if res.Processed != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	// Yesterday's message still advanced the session clock, so today's
	// message reopens after a long gap rather than cold-starting; the
	// gap is over the threshold either way, so one topic lands on the
	// target date only.
	got := daily.deltas[targetDate+"|g1|alice"]
	if got.MessagesSent != 1 || got.TopicsOpened != 1 {
		t.Errorf("target-date delta = %+v", got)
	}
	if len(daily.deltas) != 1 {
		t.Errorf("aggregates written for non-target dates: %+v", daily.deltas)
	}
	// Ownership advanced for both messages.
	if _, ok := index.owners["m1"]; !ok {
		t.Error("off-date message missing from ownership index")
	}
}

func TestReplay_SortsByTimestamp(t *testing.T) {
	daily := newFakeDaily()
	index := newFakeIndex()
	r := NewReplayer(daily, index, metrics.DefaultSilenceThreshold, slog.Default())

	// Out of order: the later repeat arrives first in the batch. After
	// sorting, "spam" follows "spam" and counts as a repeat.
	batch := []json.RawMessage{
		rawMessage(t, "g1", "alice", "m2", "spam", replayBase.Add(time.Second)),
		rawMessage(t, "g1", "alice", "m1", "spam", replayBase),
	}
	res := r.Replay(context.Background(), "g1", targetDate, batch)

	if res.Processed != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := daily.deltas[targetDate+"|g1|alice"]; got.RepeatsDetected != 1 {
		t.Errorf("RepeatsDetected = %d, want 1", got.RepeatsDetected)
	}
}

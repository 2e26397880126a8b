package commentary

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nightcourt-labs/verdict/internal/scoring"
	"github.com/nightcourt-labs/verdict/internal/store"
)

func TestParseNarrative(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantOK       bool
		wantVerdict  string
		wantInsights []string
	}{
		{
			name: "well formed",
			raw: `[JUDGMENT]
Guilty of excessive enthusiasm.
[DIAGNOSTICS]
1. Too many messages.
2. Not enough replies.`,
			wantOK:       true,
			wantVerdict:  "Guilty of excessive enthusiasm.",
			wantInsights: []string{"Too many messages.", "Not enough replies."},
		},
		{
			name:        "judgment only",
			raw:         "[JUDGMENT]\nCase dismissed.",
			wantOK:      true,
			wantVerdict: "Case dismissed.",
		},
		{
			name:         "dash prefixes stripped",
			raw:          "[JUDGMENT]\nNoted.\n[DIAGNOSTICS]\n- first\n- second",
			wantOK:       true,
			wantVerdict:  "Noted.",
			wantInsights: []string{"first", "second"},
		},
		{
			name:   "empty verdict fails",
			raw:    "[JUDGMENT]\n[DIAGNOSTICS]\n1. orphaned insight",
			wantOK: false,
		},
		{
			name:   "empty response fails",
			raw:    "",
			wantOK: false,
		},
		{
			name:        "no markers at all still yields a verdict",
			raw:         "The court is adjourned.",
			wantOK:      true,
			wantVerdict: "The court is adjourned.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := parseNarrative(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if n.Verdict != tt.wantVerdict {
				t.Errorf("Verdict = %q, want %q", n.Verdict, tt.wantVerdict)
			}
			if len(n.Insights) != len(tt.wantInsights) {
				t.Fatalf("Insights = %v, want %v", n.Insights, tt.wantInsights)
			}
			for i := range tt.wantInsights {
				if n.Insights[i] != tt.wantInsights[i] {
					t.Errorf("Insights[%d] = %q, want %q", i, n.Insights[i], tt.wantInsights[i])
				}
			}
		})
	}
}

func TestFallback_Deterministic(t *testing.T) {
	b := scoring.Bundle{EffortN: 80, FeedbackN: 10, NegativeN: 5, ContinuityN: 30, Composite: 42}
	agg := &store.DailyAggregate{MessagesSent: 40, PokesSent: 3, RepliesReceived: 1, TopicsOpened: 2}

	first := Fallback(b, scoring.UnrequitedDevotee, agg)
	second := Fallback(b, scoring.UnrequitedDevotee, agg)

	if first.Verdict != second.Verdict {
		t.Error("fallback verdict must be deterministic")
	}
	if len(first.Insights) != len(second.Insights) {
		t.Error("fallback insights must be deterministic")
	}
	if first.Verdict == "" {
		t.Error("fallback produced empty verdict")
	}
	if !strings.Contains(first.Verdict, "42") {
		t.Errorf("verdict should cite the composite, got %q", first.Verdict)
	}
}

func TestFallback_ConditionalSections(t *testing.T) {
	base := scoring.Bundle{EffortN: 30, FeedbackN: 40}

	clean := Fallback(base, scoring.Balanced, &store.DailyAggregate{MessagesSent: 5})
	for _, line := range clean.Insights {
		if strings.Contains(line, "Conduct Demerit") {
			t.Errorf("clean record should carry no demerit, got %q", line)
		}
		if strings.Contains(line, "Revival Credit") {
			t.Errorf("no topics opened, got %q", line)
		}
	}

	messy := Fallback(base, scoring.Balanced, &store.DailyAggregate{
		MessagesSent: 5, RecallsSent: 2, RepeatsDetected: 1, TopicsOpened: 3,
	})
	var demerit, revival bool
	for _, line := range messy.Insights {
		demerit = demerit || strings.Contains(line, "Conduct Demerit")
		revival = revival || strings.Contains(line, "Revival Credit")
	}
	if !demerit {
		t.Error("recalls and repeats should produce a demerit line")
	}
	if !revival {
		t.Error("opened topics should produce a revival line")
	}
}

func TestFallback_FinalRulingAlwaysPresent(t *testing.T) {
	for _, a := range []scoring.Archetype{
		scoring.CharismaticButAwkward, scoring.UnrequitedDevotee,
		scoring.LowEffortHighReward, scoring.AloofIdol,
		scoring.BackgroundPresence, scoring.Balanced,
	} {
		n := Fallback(scoring.Bundle{}, a, &store.DailyAggregate{})
		last := n.Insights[len(n.Insights)-1]
		if !strings.HasPrefix(last, "[Final Ruling]") {
			t.Errorf("%s: last insight = %q, want final ruling", a, last)
		}
	}
}

func TestGenerate_ParsesLLMResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "[JUDGMENT]\nGuilty as charged.\n[DIAGNOSTICS]\n1. Loud."},
			},
		})
	}))
	defer srv.Close()

	g := NewGenerator("test-key", "test-model", slog.Default())
	g.llm.apiURL = srv.URL

	n := g.Generate(context.Background(), scoring.Bundle{}, scoring.Balanced, &store.DailyAggregate{})
	if n.Verdict != "Guilty as charged." {
		t.Errorf("Verdict = %q", n.Verdict)
	}
	if len(n.Insights) != 1 || n.Insights[0] != "Loud." {
		t.Errorf("Insights = %v", n.Insights)
	}
}

func TestGenerate_APIErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error","message":"try later"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewGenerator("test-key", "test-model", slog.Default())
	g.llm.apiURL = srv.URL

	b := scoring.Bundle{Composite: 50}
	agg := &store.DailyAggregate{MessagesSent: 4}
	got := g.Generate(context.Background(), b, scoring.Balanced, agg)
	want := Fallback(b, scoring.Balanced, agg)
	if got.Verdict != want.Verdict {
		t.Errorf("API failure must fall back, got %q", got.Verdict)
	}
}

func TestGenerate_NoAPIKeyFallsBack(t *testing.T) {
	g := NewGenerator("", "any-model", slog.Default())
	b := scoring.Bundle{EffortN: 10, FeedbackN: 10, Composite: 50}
	agg := &store.DailyAggregate{MessagesSent: 4}

	got := g.Generate(context.Background(), b, scoring.BackgroundPresence, agg)
	want := Fallback(b, scoring.BackgroundPresence, agg)
	if got.Verdict != want.Verdict {
		t.Errorf("keyless generator must return the fallback, got %q", got.Verdict)
	}
}

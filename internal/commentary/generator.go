package commentary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nightcourt-labs/verdict/internal/scoring"
	"github.com/nightcourt-labs/verdict/internal/store"
)

// Narrative is the text block attached to a profile: a one-line verdict
// plus diagnostic insight lines.
type Narrative struct {
	Verdict  string   `json:"verdict"`
	Insights []string `json:"insights"`
}

const systemPrompt = `You are the acid-tongued presiding judge of a group
chat courtroom. You hand down daily persona verdicts that are theatrical,
a little cruel, and fond of visual-novel tropes. Keep it playful, never
genuinely mean.`

const userPromptTemplate = `Today's defendant and their behavioral record:

- Assigned archetype: %s
- Effort score: %d/100
- Feedback score: %d/100
- Negative score: %d/100
- Continuity score: %d/100

Raw conduct:
- Messages sent: %d
- Replies received: %d
- Reactions received: %d
- Messages recalled: %d
- Repeats detected: %d
- Topics opened: %d

Output strictly in this format, nothing else:
[JUDGMENT]
A verdict of at most 50 words, in character.
[DIAGNOSTICS]
1. Diagnosis of behavior one (tie it to the scores).
2. Diagnosis of behavior two.
3. Diagnosis of behavior three (if warranted).`

// Generator produces narratives via the LLM, with a deterministic local
// fallback. The fallback path always succeeds, so commentary can never
// block a profile.
type Generator struct {
	llm    *anthropicClient
	logger *slog.Logger
}

// NewGenerator returns a generator. An empty apiKey disables the LLM
// path entirely; Generate then always falls back.
func NewGenerator(apiKey, model string, logger *slog.Logger) *Generator {
	g := &Generator{logger: logger}
	if apiKey != "" {
		g.llm = newAnthropicClient(apiKey, model)
	}
	return g
}

// Generate asks the LLM for a verdict and diagnostics. On any failure it
// returns the deterministic fallback narrative built from the same
// scores and aggregate.
func (g *Generator) Generate(ctx context.Context, b scoring.Bundle, archetype scoring.Archetype, agg *store.DailyAggregate) Narrative {
	if g.llm == nil {
		return Fallback(b, archetype, agg)
	}

	prompt := fmt.Sprintf(userPromptTemplate,
		archetype.Title(),
		b.EffortN, b.FeedbackN, b.NegativeN, b.ContinuityN,
		agg.MessagesSent, agg.RepliesReceived, agg.ReactionsReceived,
		agg.RecallsSent, agg.RepeatsDetected, agg.TopicsOpened,
	)

	raw, err := g.llm.complete(ctx, systemPrompt, prompt, 1024)
	if err != nil {
		g.logger.Warn("commentary generation failed, using fallback", "error", err)
		return Fallback(b, archetype, agg)
	}

	n, ok := parseNarrative(raw)
	if !ok {
		g.logger.Warn("commentary response unparseable, using fallback")
		return Fallback(b, archetype, agg)
	}
	return n
}

// parseNarrative splits a [JUDGMENT]/[DIAGNOSTICS] response into its
// parts. Numbered prefixes on diagnostic lines are stripped.
func parseNarrative(raw string) (Narrative, bool) {
	parts := strings.SplitN(raw, "[DIAGNOSTICS]", 2)
	verdict := strings.TrimSpace(strings.ReplaceAll(parts[0], "[JUDGMENT]", ""))
	if verdict == "" {
		return Narrative{}, false
	}

	var insights []string
	if len(parts) == 2 {
		for _, line := range strings.Split(parts[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			for _, prefix := range []string{"1.", "2.", "3.", "4.", "-"} {
				if strings.HasPrefix(line, prefix) {
					line = strings.TrimSpace(strings.TrimPrefix(line, prefix))
					break
				}
			}
			if line != "" {
				insights = append(insights, line)
			}
		}
	}

	return Narrative{Verdict: verdict, Insights: insights}, true
}

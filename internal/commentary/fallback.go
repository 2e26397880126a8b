package commentary

import (
	"fmt"

	"github.com/nightcourt-labs/verdict/internal/scoring"
	"github.com/nightcourt-labs/verdict/internal/store"
)

// Fallback builds a deterministic narrative from the scores and raw
// aggregate alone. It is the recovery path when the LLM is unavailable
// and must always produce something presentable.
func Fallback(b scoring.Bundle, archetype scoring.Archetype, agg *store.DailyAggregate) Narrative {
	var insights []string

	// Effort.
	if b.EffortN > 60 {
		insights = append(insights, fmt.Sprintf(
			"[Devotion Audit] The court finds %d messages dumped into the channel today, garnished with %d unsolicited pokes. This volume of self-powered enthusiasm rarely survives cross-examination.",
			agg.MessagesSent, agg.PokesSent))
	} else {
		insights = append(insights,
			"[Devotion Audit] Output stayed within the bounds of dignity today. No frantic oversharing entered into evidence.")
	}

	// Feedback.
	switch {
	case b.FeedbackN > 60:
		insights = append(insights, fmt.Sprintf(
			"[Presence Alert] %d replies and %d reactions rained down on the defendant. The room orbits them, whether the room admits it or not.",
			agg.RepliesReceived, agg.ReactionsReceived))
	case b.FeedbackN < 20:
		insights = append(insights, fmt.Sprintf(
			"[Transparency Ruling] Only %d replies received. The court could barely detect this person on the sensor grid; a well-timed image or fresh topic might restore visibility.",
			agg.RepliesReceived))
	default:
		insights = append(insights,
			"[Observation] Responses arrived at a polite, unremarkable rate. The room keeps this one at a comfortable arm's length.")
	}

	// Negative behavior, only when there is something to cite.
	if agg.RecallsSent > 0 || agg.RepeatsDetected > 0 {
		line := fmt.Sprintf("[Conduct Demerit] %d message(s) hastily recalled", agg.RecallsSent)
		if agg.RepeatsDetected > 0 {
			line += fmt.Sprintf(" and %d bout(s) of parrot-grade repetition", agg.RepeatsDetected)
		}
		line += ". Each incident nudged the negative score upward."
		insights = append(insights, line)
	}

	// Continuity, only when topics were opened.
	if agg.TopicsOpened > 0 {
		insights = append(insights, fmt.Sprintf(
			"[Revival Credit] Broke the silence %d time(s) today, dragging the group back to life. The court acknowledges the service.",
			agg.TopicsOpened))
	}

	insights = append(insights, "[Final Ruling] "+archetypeReason(archetype, b))

	return Narrative{
		Verdict:  verdictLine(archetype, b),
		Insights: insights,
	}
}

func verdictLine(a scoring.Archetype, b scoring.Bundle) string {
	switch a {
	case scoring.CharismaticButAwkward:
		return fmt.Sprintf("Adored and accident-prone in equal measure. Composite: %d.", b.Composite)
	case scoring.UnrequitedDevotee:
		return fmt.Sprintf("Maximum output, minimum return. The court weeps, briefly. Composite: %d.", b.Composite)
	case scoring.LowEffortHighReward:
		return fmt.Sprintf("Barely lifts a finger, still runs the room. Composite: %d.", b.Composite)
	case scoring.AloofIdol:
		return fmt.Sprintf("Speaks rarely, worshipped anyway. Composite: %d.", b.Composite)
	case scoring.BackgroundPresence:
		return fmt.Sprintf("Present, technically. Composite: %d.", b.Composite)
	default:
		return fmt.Sprintf("Unremarkable in every direction, which is its own achievement. Composite: %d.", b.Composite)
	}
}

func archetypeReason(a scoring.Archetype, b scoring.Bundle) string {
	switch a {
	case scoring.CharismaticButAwkward:
		return fmt.Sprintf("high feedback (%d) undercut by a negative score of %d: the charm is real, so is the chaos.", b.FeedbackN, b.NegativeN)
	case scoring.UnrequitedDevotee:
		return fmt.Sprintf("effort (%d) towers over the feedback it earned (%d); devotion this lopsided convicts itself.", b.EffortN, b.FeedbackN)
	case scoring.LowEffortHighReward:
		return fmt.Sprintf("feedback of %d against effort of %d: the room pays tribute without being asked.", b.FeedbackN, b.EffortN)
	case scoring.AloofIdol:
		return fmt.Sprintf("near-zero effort (%d) yet feedback holds at %d; the distant-idol act is working.", b.EffortN, b.FeedbackN)
	case scoring.BackgroundPresence:
		return "every dimension reads near zero; the court classifies this defendant as scenery."
	default:
		return "all metrics sit in the unremarkable middle band; no distinguishing marks were found."
	}
}

package metrics

import "github.com/nightcourt-labs/verdict/internal/event"

// Negative tracks self-inflicted social cost: recalled messages and
// repeated (spam) messages.

// NegativeFromMessage flags a repeat when the message text exactly equals
// the same user's immediately preceding message in the same group. Exact
// string equality, case-sensitive, no normalization; empty text never
// counts.
func NegativeFromMessage(m *event.Message, lastText string) Delta {
	if m.Text != "" && m.Text == lastText {
		return Delta{RepeatsDetected: 1}
	}
	return Delta{}
}

// NegativeFromNotice charges a recall to the actor who recalled.
func NegativeFromNotice(n *event.Notice) Delta {
	if n.Kind == event.NoticeRecall {
		return Delta{RecallsSent: 1}
	}
	return Delta{}
}

package metrics

import "github.com/nightcourt-labs/verdict/internal/event"

// Effort tracks self-initiated output: message volume, verbosity, and
// outward-directed pokes.

// EffortFromMessage extracts the sender's effort delta for one message.
func EffortFromMessage(m *event.Message) Delta {
	return Delta{
		MessagesSent:    1,
		TotalTextLength: len([]rune(m.Text)),
	}
}

// EffortFromNotice extracts the actor's effort delta for a notice.
// Only pokes directed at someone count as effort.
func EffortFromNotice(n *event.Notice) Delta {
	if n.Kind == event.NoticePoke && n.TargetID != "" {
		return Delta{PokesSent: 1}
	}
	return Delta{}
}

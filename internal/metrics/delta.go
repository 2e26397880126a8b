package metrics

// Delta is the additive change a single event contributes to one user's
// daily aggregate. Extractors produce deltas; only the store mutates rows.
type Delta struct {
	MessagesSent      int
	TotalTextLength   int
	ImagesSent        int
	RepliesSent       int
	RepliesReceived   int
	PokesSent         int
	PokesReceived     int
	ReactionsSent     int
	ReactionsReceived int
	RecallsSent       int
	RepeatsDetected   int
	TopicsOpened      int
}

// IsZero reports whether the delta would change nothing.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// Add returns the field-wise sum of two deltas.
func (d Delta) Add(o Delta) Delta {
	return Delta{
		MessagesSent:      d.MessagesSent + o.MessagesSent,
		TotalTextLength:   d.TotalTextLength + o.TotalTextLength,
		ImagesSent:        d.ImagesSent + o.ImagesSent,
		RepliesSent:       d.RepliesSent + o.RepliesSent,
		RepliesReceived:   d.RepliesReceived + o.RepliesReceived,
		PokesSent:         d.PokesSent + o.PokesSent,
		PokesReceived:     d.PokesReceived + o.PokesReceived,
		ReactionsSent:     d.ReactionsSent + o.ReactionsSent,
		ReactionsReceived: d.ReactionsReceived + o.ReactionsReceived,
		RecallsSent:       d.RecallsSent + o.RecallsSent,
		RepeatsDetected:   d.RepeatsDetected + o.RepeatsDetected,
		TopicsOpened:      d.TopicsOpened + o.TopicsOpened,
	}
}

// Attribution pairs a delta with the user it belongs to. Cross-event
// extractors (replies, reactions, pokes) touch more than one user.
type Attribution struct {
	UserID string
	Delta  Delta
}

// ResolveFunc looks up the author of a previously observed message.
// ok=false is an attribution miss, not an error: platform history may
// predate the ownership index.
type ResolveFunc func(messageID string) (userID string, ok bool, err error)

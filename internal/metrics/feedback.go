package metrics

import "github.com/nightcourt-labs/verdict/internal/event"

// Feedback tracks externally received validation: replies, reactions,
// and pokes received. Replies and reactions reference earlier messages
// and are attributed through the ownership index; a reference that does
// not resolve contributes nothing anywhere.

// FeedbackFromMessage resolves an embedded reply reference and emits
// deltas for the sender and (when the resolved author is someone else)
// the replied-to author. Self-replies earn the sender a replies_sent
// but never count as received feedback.
func FeedbackFromMessage(m *event.Message, resolve ResolveFunc) ([]Attribution, error) {
	if m.ReplyTo == nil {
		return nil, nil
	}

	author := m.ReplyTo.SenderID
	if author == "" {
		if m.ReplyTo.MessageID == "" {
			return nil, nil
		}
		resolved, ok, err := resolve(m.ReplyTo.MessageID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil // attribution miss
		}
		author = resolved
	}

	out := []Attribution{{UserID: m.UserID, Delta: Delta{RepliesSent: 1}}}
	if author != m.UserID {
		out = append(out, Attribution{UserID: author, Delta: Delta{RepliesReceived: 1}})
	}
	return out, nil
}

// FeedbackFromNotice extracts received-interaction deltas from a notice.
func FeedbackFromNotice(n *event.Notice, resolve ResolveFunc) ([]Attribution, error) {
	switch n.Kind {
	case event.NoticePoke:
		if n.TargetID == "" {
			return nil, nil
		}
		return []Attribution{{UserID: n.TargetID, Delta: Delta{PokesReceived: 1}}}, nil

	case event.NoticeReaction:
		if n.MessageID == "" {
			return nil, nil
		}
		author, ok, err := resolve(n.MessageID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil // attribution miss
		}
		return []Attribution{
			{UserID: n.ActorID, Delta: Delta{ReactionsSent: 1}},
			{UserID: author, Delta: Delta{ReactionsReceived: 1}},
		}, nil
	}
	return nil, nil
}

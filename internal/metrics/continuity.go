package metrics

import (
	"time"

	"github.com/nightcourt-labs/verdict/internal/event"
)

// Continuity tracks topic initiation and atmosphere contribution.

// DefaultSilenceThreshold is the gap after which a message counts as
// opening a new topic.
const DefaultSilenceThreshold = 900 * time.Second

// ContinuityFromMessage counts embedded images and flags topic opening.
// lastGroupTime is the group's previous last-message timestamp; the zero
// value means this is the first message ever observed for the group,
// which always counts as a topic opening (cold start).
func ContinuityFromMessage(m *event.Message, lastGroupTime time.Time, silence time.Duration) Delta {
	d := Delta{ImagesSent: m.ImageCount}
	if lastGroupTime.IsZero() || m.Time().Sub(lastGroupTime) > silence {
		d.TopicsOpened = 1
	}
	return d
}

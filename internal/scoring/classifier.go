package scoring

// Archetype is the categorical label assigned to a day's normalized
// sub-scores.
type Archetype string

const (
	CharismaticButAwkward Archetype = "charismatic-but-awkward"
	UnrequitedDevotee     Archetype = "unrequited-devotee"
	LowEffortHighReward   Archetype = "low-effort-high-reward"
	AloofIdol             Archetype = "aloof-idol"
	BackgroundPresence    Archetype = "background-presence"
	Balanced              Archetype = "balanced"
)

// Title returns the display name used on rendered cards.
func (a Archetype) Title() string {
	switch a {
	case CharismaticButAwkward:
		return "The Charming Mess"
	case UnrequitedDevotee:
		return "The Unrequited Devotee"
	case LowEffortHighReward:
		return "The Effortless Winner"
	case AloofIdol:
		return "The Aloof Idol"
	case BackgroundPresence:
		return "The Background Presence"
	default:
		return "The Regular"
	}
}

// Classify maps normalized sub-scores to an archetype. The rules are an
// ordered decision list and the categories overlap, so the first match
// wins. Total: every input lands on exactly one label.
func Classify(b Bundle) Archetype {
	e, f, n := b.EffortN, b.FeedbackN, b.NegativeN

	switch {
	case n > 60 && f > 50:
		return CharismaticButAwkward
	case e > 70 && f < 30:
		return UnrequitedDevotee
	case e < 40 && f > 70:
		return LowEffortHighReward
	case e < 15 && f > 40:
		return AloofIdol
	case e < 20 && f < 20:
		return BackgroundPresence
	default:
		return Balanced
	}
}

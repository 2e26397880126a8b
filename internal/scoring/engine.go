package scoring

import (
	"errors"
	"math"

	"github.com/nightcourt-labs/verdict/internal/store"
)

// FormulaVersion identifies the scoring formula in payloads and logs.
// Bump it when weights or normalization change; never drift silently.
const FormulaVersion = "v2"

// Sub-score weights.
const (
	// Effort (self-initiated output)
	wMsgSent  = 1.0
	wPokeSent = 2.0
	wAvgLen   = 0.05 // per character of average message length

	// Feedback (externally received validation)
	wReplyRecv    = 3.0
	wReactionRecv = 2.0
	wPokeRecv     = 2.0

	// Negative (self-inflicted social cost)
	wRecall = 5.0
	wRepeat = 3.0

	// Continuity (topic initiation, atmosphere)
	wTopic = 10.0
	wImage = 2.0
)

// normSlope is the logistic steepness. Saturation is deliberately slow:
// x=10 maps to ~24 and x=50 to ~84, so one-off events barely move a
// score while sustained activity saturates it.
const normSlope = 0.05

// ErrInsufficientData is returned when the day's message count is below
// the configured floor. Callers must treat it as "cannot score", not as
// a score of zero.
var ErrInsufficientData = errors.New("not enough messages today to score")

// Bundle is the on-demand scoring result. Raw sub-scores are unbounded
// non-negative reals; normalized sub-scores and the composite are
// integers in [0,100]. Never persisted.
type Bundle struct {
	RawEffort     float64 `json:"raw_effort"`
	RawFeedback   float64 `json:"raw_feedback"`
	RawNegative   float64 `json:"raw_negative"`
	RawContinuity float64 `json:"raw_continuity"`

	EffortN     int `json:"effort_n"`
	FeedbackN   int `json:"feedback_n"`
	NegativeN   int `json:"negative_n"`
	ContinuityN int `json:"continuity_n"`

	Composite int `json:"composite"`

	// PreviousComposite is yesterday's composite when known (-1 when
	// not). It feeds the narrative and render payload only; it does not
	// enter the formula.
	PreviousComposite int `json:"previous_composite"`

	FormulaVersion string `json:"formula_version"`
}

// Engine turns a daily aggregate into a score bundle.
type Engine struct {
	MinMessages int
}

func NewEngine(minMessages int) *Engine {
	return &Engine{MinMessages: minMessages}
}

// Compute scores one aggregate. previousComposite is yesterday's
// composite, or -1 when unknown.
func (e *Engine) Compute(agg *store.DailyAggregate, previousComposite int) (Bundle, error) {
	if agg == nil || agg.MessagesSent < e.MinMessages {
		return Bundle{}, ErrInsufficientData
	}

	avgLen := 0.0
	if agg.MessagesSent > 0 {
		avgLen = float64(agg.TotalTextLength) / float64(agg.MessagesSent)
	}

	b := Bundle{
		RawEffort: float64(agg.MessagesSent)*wMsgSent +
			float64(agg.PokesSent)*wPokeSent +
			avgLen*wAvgLen,
		RawFeedback: float64(agg.RepliesReceived)*wReplyRecv +
			float64(agg.ReactionsReceived)*wReactionRecv +
			float64(agg.PokesReceived)*wPokeRecv,
		RawNegative: float64(agg.RecallsSent)*wRecall +
			float64(agg.RepeatsDetected)*wRepeat,
		RawContinuity: float64(agg.TopicsOpened)*wTopic +
			float64(agg.ImagesSent)*wImage,
		PreviousComposite: previousComposite,
		FormulaVersion:    FormulaVersion,
	}

	b.EffortN = Normalize(b.RawEffort)
	b.FeedbackN = Normalize(b.RawFeedback)
	b.NegativeN = Normalize(b.RawNegative)
	b.ContinuityN = Normalize(b.RawContinuity)
	b.Composite = composite(b.EffortN, b.FeedbackN, b.NegativeN, b.ContinuityN)

	return b, nil
}

// Normalize maps a raw sub-score onto [0,100] through a logistic curve:
// 0 for x <= 0, otherwise floor(100 * (2/(1+e^(-0.05x)) - 1)).
// Monotonically non-decreasing, approaches 100 for large x.
func Normalize(x float64) int {
	if x <= 0 {
		return 0
	}
	return int(math.Floor(100 * (2/(1+math.Exp(-normSlope*x)) - 1)))
}

// composite combines the normalized sub-scores. Feedback and continuity
// are assets, effort and negative are liabilities; the +200 constant
// centers an all-zero profile at 50.
func composite(effortN, feedbackN, negativeN, continuityN int) int {
	score := math.Round(float64((feedbackN+continuityN)-(negativeN+effortN)+200) / 4.0)
	return clamp(int(score))
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

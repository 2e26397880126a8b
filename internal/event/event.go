package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind values carried by Notice events.
const (
	NoticePoke     = "poke"
	NoticeReaction = "reaction"
	NoticeRecall   = "recall"
)

// Envelope type tags.
const (
	TypeMessage = "message"
	TypeNotice  = "notice"
)

// Reply is an embedded reference to an earlier message. SenderID is
// populated by some platforms; when present it short-circuits the
// ownership index lookup.
type Reply struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id,omitempty"`
}

// Message is a group chat message as delivered by the platform bridge.
type Message struct {
	GroupID    string   `json:"group_id"`
	UserID     string   `json:"user_id"`
	MessageID  string   `json:"message_id"`
	Text       string   `json:"text"`
	ImageCount int      `json:"image_count"`
	ReplyTo    *Reply   `json:"reply_to,omitempty"`
	AtTargets  []string `json:"at_targets,omitempty"`
	Timestamp  int64    `json:"timestamp"` // unix seconds
}

// Notice is a platform notification (poke, reaction, recall).
type Notice struct {
	GroupID   string `json:"group_id"`
	ActorID   string `json:"actor_id"`
	Kind      string `json:"kind"`
	TargetID  string `json:"target_id,omitempty"`
	MessageID string `json:"message_id,omitempty"` // referenced message (reaction/recall)
	Timestamp int64  `json:"timestamp"`
}

// Envelope is the wire wrapper published by the platform bridge.
type Envelope struct {
	Type    string          `json:"type"`
	Message *Message        `json:"message,omitempty"`
	Notice  *Notice         `json:"notice,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// Time returns the event timestamp as a time.Time in UTC.
func (m *Message) Time() time.Time { return time.Unix(m.Timestamp, 0).UTC() }

// Time returns the notice timestamp as a time.Time in UTC.
func (n *Notice) Time() time.Time { return time.Unix(n.Timestamp, 0).UTC() }

// Validate reports whether the message carries the fields the pipeline
// requires. A failure here is the MalformedEvent class.
func (m *Message) Validate() error {
	switch {
	case m == nil:
		return fmt.Errorf("nil message")
	case m.GroupID == "":
		return fmt.Errorf("message missing group_id")
	case m.UserID == "":
		return fmt.Errorf("message missing user_id")
	case m.MessageID == "":
		return fmt.Errorf("message missing message_id")
	}
	return nil
}

// Validate reports whether the notice carries the fields the pipeline requires.
func (n *Notice) Validate() error {
	switch {
	case n == nil:
		return fmt.Errorf("nil notice")
	case n.GroupID == "":
		return fmt.Errorf("notice missing group_id")
	case n.ActorID == "":
		return fmt.Errorf("notice missing actor_id")
	}
	switch n.Kind {
	case NoticePoke, NoticeReaction, NoticeRecall:
	default:
		return fmt.Errorf("notice has unknown kind %q", n.Kind)
	}
	return nil
}

// DecodeMessage parses and validates a message payload.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse message event: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeNotice parses and validates a notice payload.
func DecodeNotice(data []byte) (*Notice, error) {
	var n Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse notice event: %w", err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

// DecodeEnvelope parses a mixed-batch entry (used by backfill).
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse event envelope: %w", err)
	}
	e.Raw = data
	switch e.Type {
	case TypeMessage:
		if err := e.Message.Validate(); err != nil {
			return nil, err
		}
	case TypeNotice:
		if err := e.Notice.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("envelope has unknown type %q", e.Type)
	}
	return &e, nil
}

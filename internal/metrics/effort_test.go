package metrics

import (
	"testing"

	"github.com/nightcourt-labs/verdict/internal/event"
)

func TestEffortFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantLen int
	}{
		{"plain text", "hello there", 11},
		{"empty text", "", 0},
		{"multibyte counts runes not bytes", "héllo", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &event.Message{GroupID: "g1", UserID: "u1", MessageID: "m1", Text: tt.text}
			d := EffortFromMessage(m)
			if d.MessagesSent != 1 {
				t.Errorf("MessagesSent = %d, want 1", d.MessagesSent)
			}
			if d.TotalTextLength != tt.wantLen {
				t.Errorf("TotalTextLength = %d, want %d", d.TotalTextLength, tt.wantLen)
			}
		})
	}
}

func TestEffortFromNotice(t *testing.T) {
	tests := []struct {
		name     string
		notice   event.Notice
		wantPoke int
	}{
		{"directed poke", event.Notice{Kind: event.NoticePoke, ActorID: "u1", TargetID: "u2"}, 1},
		{"poke without target", event.Notice{Kind: event.NoticePoke, ActorID: "u1"}, 0},
		{"reaction is not effort", event.Notice{Kind: event.NoticeReaction, ActorID: "u1", MessageID: "m1"}, 0},
		{"recall is not effort", event.Notice{Kind: event.NoticeRecall, ActorID: "u1"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EffortFromNotice(&tt.notice)
			if d.PokesSent != tt.wantPoke {
				t.Errorf("PokesSent = %d, want %d", d.PokesSent, tt.wantPoke)
			}
		})
	}
}

package session

import (
	"sync"
	"testing"
	"time"
)

func TestObserve_ColdStart(t *testing.T) {
	g := NewGroupState()
	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	snap := g.Observe("alice", "hi", at)
	if !snap.LastGroupMessageAt.IsZero() {
		t.Errorf("cold start should see zero group time, got %v", snap.LastGroupMessageAt)
	}
	if snap.LastUserText != "" {
		t.Errorf("cold start should see empty last text, got %q", snap.LastUserText)
	}
}

func TestObserve_AdvancesInArrivalOrder(t *testing.T) {
	g := NewGroupState()
	t0 := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	g.Observe("alice", "first", t0)

	snap := g.Observe("alice", "second", t0.Add(time.Minute))
	if !snap.LastGroupMessageAt.Equal(t0) {
		t.Errorf("expected group time %v, got %v", t0, snap.LastGroupMessageAt)
	}
	if snap.LastUserText != "first" {
		t.Errorf("expected last text %q, got %q", "first", snap.LastUserText)
	}

	// A different user sees the group clock but not alice's text.
	snap = g.Observe("bob", "hello", t0.Add(2*time.Minute))
	if snap.LastUserText != "" {
		t.Errorf("bob should have no prior text, got %q", snap.LastUserText)
	}
	if !snap.LastGroupMessageAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("group clock not advanced, got %v", snap.LastGroupMessageAt)
	}
}

func TestRegistry_GroupsAreIndependent(t *testing.T) {
	r := NewRegistry()
	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	r.Group("g1").Observe("alice", "hi", at)

	snap := r.Group("g2").Observe("alice", "hi", at.Add(time.Hour))
	if !snap.LastGroupMessageAt.IsZero() {
		t.Error("state leaked between groups")
	}

	if r.Group("g1") != r.Group("g1") {
		t.Error("registry must return the same state for the same group")
	}
}

func TestObserve_Concurrent(t *testing.T) {
	// Smoke test for the per-group lock: concurrent observes must not
	// race (run with -race).
	g := NewGroupState()
	var wg sync.WaitGroup
	base := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g.Observe("u", "text", base.Add(time.Duration(i)*time.Second))
		}(i)
	}
	wg.Wait()
}

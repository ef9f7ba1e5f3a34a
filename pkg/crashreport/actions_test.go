package crashreport

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestActionTracker_LastActionID(t *testing.T) {
	tracker := NewActionTracker(0)

	if got := tracker.LastActionID(); got != "" {
		t.Errorf("LastActionID() = %q, want empty", got)
	}

	tracker.Record("Editor.Copy")
	tracker.Record("")
	tracker.Record("Refactor.Rename")

	if got := tracker.LastActionID(); got != "Refactor.Rename" {
		t.Errorf("LastActionID() = %q, want Refactor.Rename", got)
	}
	if got := len(tracker.RecentActions()); got != 2 {
		t.Errorf("len(RecentActions()) = %d, want 2 (empty ids are ignored)", got)
	}
}

func TestActionTracker_EvictsOldest(t *testing.T) {
	tracker := NewActionTracker(3)
	base := time.Unix(1000, 0)
	step := 0
	tracker.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	for i := 1; i <= 5; i++ {
		tracker.Record(fmt.Sprintf("action-%d", i))
	}

	got := tracker.RecentActions()
	if len(got) != 3 {
		t.Fatalf("len(RecentActions()) = %d, want 3", len(got))
	}
	for i, want := range []string{"action-3", "action-4", "action-5"} {
		if got[i].ActionID != want {
			t.Errorf("RecentActions()[%d] = %q, want %q", i, got[i].ActionID, want)
		}
	}
	if !got[0].Timestamp.Before(got[2].Timestamp) {
		t.Error("RecentActions() should be oldest first")
	}
}

func TestActionTracker_RecentActionsIsCopy(t *testing.T) {
	tracker := NewActionTracker(5)
	tracker.Record("a")

	got := tracker.RecentActions()
	got[0].ActionID = "changed"

	if tracker.RecentActions()[0].ActionID != "a" {
		t.Error("RecentActions() should return a copy")
	}
}

func TestActionTracker_Concurrent(t *testing.T) {
	tracker := NewActionTracker(10)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tracker.Record(fmt.Sprintf("action-%d", i))
			_ = tracker.LastActionID()
			_ = tracker.RecentActions()
		}(i)
	}
	wg.Wait()

	if got := len(tracker.RecentActions()); got != 10 {
		t.Errorf("len(RecentActions()) = %d, want 10", got)
	}
}

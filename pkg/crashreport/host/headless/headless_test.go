package headless

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport/clients/noop"
)

func TestHost_ImplementsHostInterfaces(t *testing.T) {
	var _ crashreport.Host = (*Host)(nil)
	var _ crashreport.BreadcrumbSource = (*Host)(nil)
}

func TestHost_RunWithProgress_Waits(t *testing.T) {
	h := New()
	defer h.Close()

	var ran atomic.Bool
	h.RunWithProgress(context.Background(), crashreport.ProgressTask{Title: "work"}, func(ctx context.Context) {
		time.Sleep(10 * time.Millisecond)
		ran.Store(true)
	})

	if !ran.Load() {
		t.Error("RunWithProgress should return after fn finished")
	}
}

func TestHost_InvokeLater_RunsInOrderOnOneGoroutine(t *testing.T) {
	h := New()
	defer h.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 20; i++ {
		i := i
		h.InvokeLater(func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
		})
	}

	if err := h.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 20 {
		t.Fatalf("callbacks run = %d, want 20", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestHost_InvokeLater_FromCallback(t *testing.T) {
	h := New()
	defer h.Close()

	const n = 200
	var count atomic.Int32
	queued := make(chan struct{})
	h.InvokeLater(func() {
		for i := 0; i < n; i++ {
			h.InvokeLater(func() { count.Add(1) })
		}
		close(queued)
	})

	select {
	case <-queued:
	case <-time.After(time.Second):
		t.Fatal("InvokeLater blocked when called from the UI goroutine")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Sync(ctx); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if count.Load() != n {
		t.Errorf("nested callbacks run = %d, want %d", count.Load(), n)
	}
}

func TestHost_InvokeLater_AfterClose(t *testing.T) {
	h := New()
	h.Close()

	ran := false
	h.InvokeLater(func() { ran = true })

	if !ran {
		t.Error("InvokeLater after Close should run fn inline")
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}
}

func TestHost_Close_RunsQueuedCallbacks(t *testing.T) {
	h := New()

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		h.InvokeLater(func() { count.Add(1) })
	}
	h.Close()

	if count.Load() != 10 {
		t.Errorf("callbacks run = %d, want 10", count.Load())
	}
}

func TestHost_Sync_HonorsContext(t *testing.T) {
	h := New()
	defer h.Close()

	release := make(chan struct{})
	h.InvokeLater(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.Sync(ctx); err != context.DeadlineExceeded {
		t.Errorf("Sync error = %v, want deadline exceeded", err)
	}
}

func TestHost_Messages(t *testing.T) {
	h := New()
	defer h.Close()

	h.ShowInfo("a", "saved", "Title")
	h.ShowError("b", "failed", "Title")

	msgs := h.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Error || msgs[0].Text != "saved" || msgs[0].Anchor != "a" {
		t.Errorf("messages[0] = %+v", msgs[0])
	}
	if !msgs[1].Error || msgs[1].Text != "failed" {
		t.Errorf("messages[1] = %+v", msgs[1])
	}
}

func TestHost_ProjectAndActions(t *testing.T) {
	tracker := crashreport.NewActionTracker(2)
	h := New(
		WithProjectResolver(func(anchor crashreport.Anchor) crashreport.Project { return "project-of-" + anchor.(string) }),
		WithActionTracker(tracker),
	)
	defer h.Close()

	if got := h.ProjectFor("x"); got != "project-of-x" {
		t.Errorf("ProjectFor() = %v", got)
	}
	plain := New()
	defer plain.Close()
	if got := plain.ProjectFor("x"); got != nil {
		t.Errorf("ProjectFor() without resolver = %v, want nil", got)
	}

	h.RecordAction("a")
	h.RecordAction("b")
	h.RecordAction("c")

	if h.LastActionID() != "c" || tracker.LastActionID() != "c" {
		t.Errorf("LastActionID() = %q, want c", h.LastActionID())
	}
	if got := h.RecentActions(); len(got) != 2 || got[0].ActionID != "b" {
		t.Errorf("RecentActions() = %+v", got)
	}
}

func TestHost_WithReporter(t *testing.T) {
	h := New()
	defer h.Close()
	h.RecordAction("Refactor.Rename")

	reporter := crashreport.NewReporter(h, crashreport.StaticClient(noop.NewNoopClient()))

	result := make(chan crashreport.SubmittedReportInfo, 2)
	record := crashreport.CausedMessage{Err: &crashreport.Failure{Type: "NullRef", Message: "null"}}
	if !reporter.Submit(context.Background(), []crashreport.Record{record}, "", "anchor", func(info crashreport.SubmittedReportInfo) {
		result <- info
	}) {
		t.Fatal("Submit() = false, want true")
	}

	if err := h.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("done calls = %d, want 1", len(result))
	}
	if info := <-result; info.Status != crashreport.StatusNewIssue || info.EventID == "" {
		t.Errorf("info = %+v", info)
	}

	msgs := h.Messages()
	if len(msgs) != 1 || msgs[0].Title != "Error Report" || msgs[0].Text != "Thank you for submitting your report!" {
		t.Errorf("messages = %+v", msgs)
	}
}

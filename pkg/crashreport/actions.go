// actions.go tracks the user's most recent actions for debugging context.

package crashreport

import (
	"sync"
	"time"
)

// DefaultActionHistorySize is the number of actions an ActionTracker keeps.
const DefaultActionHistorySize = 20

// ActionTracker records user-initiated actions. The last action id is sent
// with every event; the history is sent as breadcrumbs.
// Safe for concurrent use.
type ActionTracker struct {
	mu      sync.RWMutex
	last    string
	history actionHistoryBuffer
	now     func() time.Time
}

// NewActionTracker creates a tracker keeping up to size actions.
// A size <= 0 uses DefaultActionHistorySize.
func NewActionTracker(size int) *ActionTracker {
	if size <= 0 {
		size = DefaultActionHistorySize
	}
	return &ActionTracker{
		history: actionHistoryBuffer{maxSize: size},
		now:     time.Now,
	}
}

// Record notes that the user performed actionID.
func (t *ActionTracker) Record(actionID string) {
	if actionID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = actionID
	t.history.Add(Breadcrumb{ActionID: actionID, Timestamp: t.now()})
}

// LastActionID returns the most recent action id, or "" if none was recorded.
func (t *ActionTracker) LastActionID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// RecentActions returns a copy of the history, oldest first.
func (t *ActionTracker) RecentActions() []Breadcrumb {
	t.mu.RLock()
	defer t.mu.RUnlock()
	all := t.history.GetAll()
	result := make([]Breadcrumb, len(all))
	copy(result, all)
	return result
}

// actionHistoryBuffer is a bounded ring buffer.
type actionHistoryBuffer struct {
	records  []Breadcrumb
	maxSize  int
	writeIdx int
}

// Add appends a record, evicting the oldest if the buffer is full.
func (b *actionHistoryBuffer) Add(record Breadcrumb) {
	if len(b.records) < b.maxSize {
		b.records = append(b.records, record)
		return
	}
	b.records[b.writeIdx] = record
	b.writeIdx = (b.writeIdx + 1) % b.maxSize
}

// GetAll returns records in chronological order (oldest first).
func (b *actionHistoryBuffer) GetAll() []Breadcrumb {
	if len(b.records) < b.maxSize {
		return b.records
	}
	// full: writeIdx points to the oldest record
	result := make([]Breadcrumb, len(b.records))
	copy(result, b.records[b.writeIdx:])
	copy(result[len(b.records)-b.writeIdx:], b.records[:b.writeIdx])
	return result
}

package model

// DefaultHistoryLimit is the number of snapshots kept for undo.
const DefaultHistoryLimit = 10

// Snapshot is an immutable deep copy of the full item collection.
type Snapshot struct {
	items []WorkItem
}

func NewSnapshot(items []WorkItem) Snapshot {
	return Snapshot{items: CloneItems(items)}
}

// Items returns a fresh copy so callers cannot alter the snapshot.
func (s Snapshot) Items() []WorkItem {
	return CloneItems(s.items)
}

// History is a capped LIFO of snapshots; the oldest is evicted first.
// It is not safe for concurrent use.
type History struct {
	limit int
	stack []Snapshot
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

func (h *History) Push(s Snapshot) {
	h.stack = append(h.stack, s)
	if over := len(h.stack) - h.limit; over > 0 {
		h.stack = append([]Snapshot(nil), h.stack[over:]...)
	}
}

// Pop removes and returns the most recent snapshot.
func (h *History) Pop() (Snapshot, bool) {
	if len(h.stack) == 0 {
		return Snapshot{}, false
	}
	s := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]
	return s, true
}

func (h *History) Len() int { return len(h.stack) }

func (h *History) Clear() { h.stack = nil }

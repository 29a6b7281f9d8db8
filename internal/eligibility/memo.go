package eligibility

import (
	"sync"

	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// Memo caches weight figures per inventory. Entries are keyed by the
// inventory id and the store revision at which they were computed, so any
// reconciled push invalidates them without the memo inspecting the slots.
type Memo struct {
	mu      sync.Mutex
	entries map[string]memoEntry
}

type memoEntry struct {
	revision uint64
	total    float64
	percent  float64
}

// NewMemo creates an empty memo.
func NewMemo() *Memo {
	return &Memo{entries: make(map[string]memoEntry)}
}

// Weight returns the total weight and capacity percentage of inv as of
// revision, computing them only when the revision moved.
func (m *Memo) Weight(inv *inventory.Inventory, revision uint64) (total, percent float64) {
	if inv == nil {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[inv.ID]; ok && e.revision == revision {
		return e.total, e.percent
	}
	total = TotalWeight(inv.Items)
	percent = WeightPercent(total, inv.MaxWeight)
	m.entries[inv.ID] = memoEntry{revision: revision, total: total, percent: percent}
	return total, percent
}

// Forget drops the cached figures for an inventory.
func (m *Memo) Forget(id string) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}

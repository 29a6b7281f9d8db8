package reconcile

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/internal/transaction"
	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// Settler is told which slots a push replaced.
type Settler interface {
	Settle(touched []transaction.Key) []transaction.Record
}

// Listener applies host pushes to the Store. It replaces data and nothing
// else: weights and eligibility are derived later, on render.
type Listener struct {
	store   *Store
	settler Settler
}

// NewListener binds a listener to its store. settler may be nil.
func NewListener(store *Store, settler Settler) *Listener {
	return &Listener{store: store, settler: settler}
}

// Init replaces the whole mirror. Applying the same payload twice leaves
// the same state.
func (l *Listener) Init(p network.InitPayload) {
	catalog := inventory.NewCatalog()
	catalog.Merge(p.Items)
	catalog.SetImagePath(p.ImagePath)

	left := normalized(p.LeftInventory)

	s := l.store
	s.mu.Lock()
	var touched []transaction.Key
	touched = append(touched, allKeys(s.left)...)
	touched = append(touched, allKeys(s.right)...)
	s.catalog = catalog
	s.locale = inventory.NewLocale(p.Locale)
	s.left = left
	s.right = nil
	s.bump(left)
	s.mu.Unlock()

	l.settle(touched)
}

// Setup replaces the named sides. A nil side is left as it was. Every slot
// of a replaced inventory counts as touched.
func (l *Listener) Setup(p network.SetupInventoryPayload) {
	s := l.store
	var touched []transaction.Key

	s.mu.Lock()
	if p.LeftInventory != nil {
		touched = append(touched, allKeys(s.left)...)
		s.left = normalized(p.LeftInventory)
		s.bump(s.left)
	}
	if p.RightInventory != nil {
		touched = append(touched, allKeys(s.right)...)
		s.right = normalized(p.RightInventory)
		s.bump(s.right)
	}
	s.mu.Unlock()

	l.settle(touched)
}

// Refresh overwrites each named slot in full. Later entries for the same
// slot win. It returns the keys it replaced.
func (l *Listener) Refresh(p network.RefreshSlotsPayload) []transaction.Key {
	s := l.store
	var touched []transaction.Key

	s.mu.Lock()
	for _, u := range p.Items {
		inv := s.byID(u.Inventory)
		if inv == nil {
			log.Printf("Ignoring refresh for unknown inventory %q slot %d", u.Inventory, u.Item.Slot)
			continue
		}
		if err := inv.SetSlot(u.Item.Slot, u.Item.Clone()); err != nil {
			log.Printf("Ignoring refresh for %s: %v", inv.ID, err)
			continue
		}
		s.bump(inv)
		touched = append(touched, transaction.Key{InventoryID: inv.ID, Slot: u.Item.Slot})
	}
	if w := p.WeightData; w != nil {
		if inv := s.byID(w.InventoryID); inv != nil {
			max := w.MaxWeight
			inv.MaxWeight = &max
			s.bump(inv)
		}
	}
	if sd := p.SlotsData; sd != nil {
		if inv := s.byID(sd.InventoryID); inv != nil {
			for n := sd.Slots + 1; n <= inv.Slots; n++ {
				touched = append(touched, transaction.Key{InventoryID: inv.ID, Slot: n})
			}
			inv.Resize(sd.Slots)
			s.bump(inv)
		}
	}
	s.mu.Unlock()

	l.settle(touched)
	return touched
}

// Close discards the secondary inventory.
func (l *Listener) Close() {
	s := l.store
	s.mu.Lock()
	touched := allKeys(s.right)
	s.bump(s.right)
	s.right = nil
	s.mu.Unlock()

	l.settle(touched)
}

// HandleInit decodes and applies an init push.
func (l *Listener) HandleInit(raw json.RawMessage) {
	var p network.InitPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("Failed to parse init push: %v", err)
		return
	}
	l.Init(p)
}

// HandleSetup decodes and applies a setupInventory push.
func (l *Listener) HandleSetup(raw json.RawMessage) {
	var p network.SetupInventoryPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("Failed to parse setupInventory push: %v", err)
		return
	}
	l.Setup(p)
}

// HandleRefresh decodes and applies a refreshSlots push.
func (l *Listener) HandleRefresh(raw json.RawMessage) {
	var p network.RefreshSlotsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("Failed to parse refreshSlots push: %v", err)
		return
	}
	l.Refresh(p)
}

func (l *Listener) settle(touched []transaction.Key) {
	if l.settler != nil && len(touched) > 0 {
		l.settler.Settle(touched)
	}
}

func normalized(inv *inventory.Inventory) *inventory.Inventory {
	if inv == nil {
		return nil
	}
	out := inv.Clone()
	for _, err := range out.Normalize() {
		if errors.Is(err, inventory.ErrOutOfRange) {
			log.Printf("Dropped slot from %s: %v", out.ID, err)
		}
	}
	return out
}

func allKeys(inv *inventory.Inventory) []transaction.Key {
	if inv == nil {
		return nil
	}
	keys := make([]transaction.Key, 0, inv.Slots)
	for n := 1; n <= inv.Slots; n++ {
		keys = append(keys, transaction.Key{InventoryID: inv.ID, Slot: n})
	}
	return keys
}

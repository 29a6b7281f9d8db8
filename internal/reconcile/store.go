// Package reconcile holds the mirrored inventories and applies host pushes
// to them. The Listener is the only writer; everything else reads copies.
package reconcile

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gravitas-games/invmirror/internal/eligibility"
	"github.com/gravitas-games/invmirror/internal/transaction"
	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// Side is one of the two inventories the UI shows.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Store is the client-side mirror. Its mutators are unexported so only the
// Listener can change it.
type Store struct {
	mu        sync.RWMutex
	left      *inventory.Inventory
	right     *inventory.Inventory
	catalog   *inventory.Catalog
	locale    *inventory.Locale
	revisions map[string]uint64
}

// NewStore creates an empty mirror.
func NewStore() *Store {
	return &Store{
		catalog:   inventory.NewCatalog(),
		locale:    inventory.NewLocale(nil),
		revisions: make(map[string]uint64),
	}
}

// Inventory returns a copy of one side, or nil when nothing is open there.
func (s *Store) Inventory(side Side) *inventory.Inventory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.side(side).Clone()
}

// Snapshot returns copies of both sides.
func (s *Store) Snapshot() (left, right *inventory.Inventory) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.left.Clone(), s.right.Clone()
}

// Catalog returns the item catalog from the last init.
func (s *Store) Catalog() *inventory.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Locale returns the string table from the last init.
func (s *Store) Locale() *inventory.Locale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

// Revision counts the mutations applied to an inventory. Derived values
// keyed by it are stale once it moves.
func (s *Store) Revision(id string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revisions[id]
}

// Ref resolves a slot on one side as the mirror shows it now. Out-of-range
// slots resolve to a synthesized empty slot flagged OutOfRange, which no
// gate accepts as a source or a drop target.
func (s *Store) Ref(side Side, slot int) (transaction.Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv := s.side(side)
	if inv == nil {
		return transaction.Ref{}, fmt.Errorf("no %s inventory open", side)
	}
	sl, err := inv.GetSlot(slot)
	if err != nil {
		log.Printf("Clamped %s slot %d: %v", inv.ID, slot, err)
	}
	return transaction.Ref{
		InventoryID: inv.ID,
		Kind:        inv.Type,
		Slot:        sl.Clone(),
		OutOfRange:  errors.Is(err, inventory.ErrOutOfRange),
	}, nil
}

// PlayerItems returns the left inventory's slots when it is the player's.
func (s *Store) PlayerItems() []inventory.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.left == nil || s.left.Type != inventory.TypePlayer {
		return nil
	}
	return s.left.Clone().Items
}

// ShopContext describes the open shop, if any, for purchase eligibility.
// The viewer's groups come from the player inventory, and the budget for
// every currency the shop prices in is what the player holds of it.
func (s *Store) ShopContext() eligibility.ShopContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.right == nil || s.right.Type != inventory.TypeShop {
		return eligibility.ShopContext{}
	}
	ctx := eligibility.ShopContext{Type: inventory.TypeShop, Groups: s.right.Groups}
	if s.left == nil {
		return ctx
	}
	ctx.Viewer = s.left.Groups

	held := s.left.CountByName()
	ctx.Budget = make(map[string]float64)
	for _, item := range s.right.Items {
		if item.Price == nil {
			continue
		}
		currency := item.Currency
		if currency == "" {
			currency = "money"
		}
		ctx.Budget[currency] = float64(held[currency])
	}
	return ctx
}

func (s *Store) side(side Side) *inventory.Inventory {
	if side == Right {
		return s.right
	}
	return s.left
}

func (s *Store) byID(id string) *inventory.Inventory {
	if s.left != nil && s.left.ID == id {
		return s.left
	}
	if s.right != nil && s.right.ID == id {
		return s.right
	}
	return nil
}

func (s *Store) bump(inv *inventory.Inventory) {
	if inv != nil {
		s.revisions[inv.ID]++
	}
}

// Package inventory provides the client-side mirror of host-owned
// inventories. It only tracks what the host last told us: slot contents,
// capacity hints and item metadata. Nothing here is authoritative.
package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies the kind of inventory a slot lives in. The host sends
// these as lowercase strings.
type Type string

const (
	TypePlayer    Type = "player"
	TypeOther     Type = "other"
	TypeShop      Type = "shop"
	TypeCrafting  Type = "crafting"
	TypeContainer Type = "container"
	TypeDrop      Type = "drop"
	TypeStash     Type = "stash"
)

// RequestOnly reports whether the inventory type only accepts requests
// (buy, craft) and can never be a drop target.
func (t Type) RequestOnly() bool {
	return t == TypeShop || t == TypeCrafting
}

// ErrOutOfRange is returned when a slot number falls outside [1, Slots].
// Callers are expected to clamp rather than propagate it.
var ErrOutOfRange = errors.New("inventory: slot out of range")

// Grades is a shop grade requirement. The host sends either a single
// minimum grade or a list of accepted grades.
type Grades struct {
	Values []int
	// List is true when the host sent an array; membership is exact.
	List bool
}

// Empty reports whether no grade requirement was declared.
func (g Grades) Empty() bool { return len(g.Values) == 0 }

func (g Grades) MarshalJSON() ([]byte, error) {
	if g.Empty() {
		return []byte("null"), nil
	}
	if g.List {
		return json.Marshal(g.Values)
	}
	return json.Marshal(g.Values[0])
}

func (g *Grades) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*g = Grades{}
		return nil
	}
	var one int
	if err := json.Unmarshal(b, &one); err == nil {
		*g = Grades{Values: []int{one}}
		return nil
	}
	var many []int
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("inventory: invalid grade: %w", err)
	}
	*g = Grades{Values: many, List: true}
	return nil
}

// Slot is one addressable position. An empty slot only carries its number;
// an occupied slot also carries a name, count and weight.
type Slot struct {
	Slot        int                `json:"slot"`
	Name        string             `json:"name,omitempty"`
	Count       int                `json:"count,omitempty"`
	Weight      float64            `json:"weight,omitempty"`
	Metadata    Metadata           `json:"metadata,omitempty"`
	Durability  *float64           `json:"durability,omitempty"`
	Price       *float64           `json:"price,omitempty"`
	Currency    string             `json:"currency,omitempty"`
	Ingredients map[string]float64 `json:"ingredients,omitempty"`
	Grade       *Grades            `json:"grade,omitempty"`
}

// Empty returns an empty slot with the given number.
func Empty(n int) Slot { return Slot{Slot: n} }

// IsOccupied reports whether the slot holds a renderable item. A slot with
// a name but a zero count is logically empty.
func IsOccupied(s Slot) bool {
	return s.Name != "" && s.Count >= 1
}

// HasItem is the non-strict check used for shop rows, which may omit count.
func HasItem(s Slot) bool {
	return s.Name != ""
}

// ItemDurability returns the durability of the item in the slot, falling
// back to metadata and finally to def.
func (s Slot) ItemDurability(def float64) float64 {
	if s.Durability != nil {
		return *s.Durability
	}
	if d, ok := s.Metadata.Durability(); ok {
		return d
	}
	return def
}

// Inventory is the mirrored state of one host inventory. Items is kept
// dense once normalized: Items[i].Slot == i+1.
type Inventory struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Label     string         `json:"label,omitempty"`
	Slots     int            `json:"slots"`
	Weight    float64        `json:"weight,omitempty"`
	MaxWeight *float64       `json:"maxWeight,omitempty"`
	Groups    map[string]int `json:"groups,omitempty"`
	Items     []Slot         `json:"items"`
}

package inventory

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Option configures inventory construction.
type Option func(*Inventory)

// WithLabel sets the display label.
func WithLabel(label string) Option {
	return func(inv *Inventory) {
		inv.Label = label
	}
}

// WithMaxWeight sets the capacity hint used for the weight bar.
func WithMaxWeight(max float64) Option {
	return func(inv *Inventory) {
		inv.MaxWeight = &max
	}
}

// WithGroups sets the group requirements (shops) or memberships (player).
func WithGroups(groups map[string]int) Option {
	return func(inv *Inventory) {
		inv.Groups = groups
	}
}

// New creates an inventory with slots empty positions.
func New(id string, typ Type, slots int, opts ...Option) *Inventory {
	inv := &Inventory{
		ID:    id,
		Type:  typ,
		Slots: slots,
	}
	inv.Items = make([]Slot, slots)
	for i := range inv.Items {
		inv.Items[i] = Empty(i + 1)
	}
	applyOptions(inv, opts...)
	return inv
}

func applyOptions(inv *Inventory, opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}
}

// Decode parses a host inventory and normalizes it. Normalization problems
// are returned alongside the usable inventory so callers can log them.
func Decode(b []byte) (*Inventory, []error, error) {
	var inv Inventory
	if err := json.Unmarshal(b, &inv); err != nil {
		return nil, nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	problems := inv.Normalize()
	return &inv, problems, nil
}

// Normalize makes Items dense and index-stable so that Items[i].Slot == i+1
// and len(Items) == Slots. Sparse host input is padded with empty slots,
// duplicate slot numbers resolve to the last entry, and entries outside
// [1, Slots] are dropped and reported.
func (inv *Inventory) Normalize() []error {
	var problems []error
	if inv.Slots <= 0 {
		// Host omitted the slot count; size to the highest slot seen.
		for _, s := range inv.Items {
			if s.Slot > inv.Slots {
				inv.Slots = s.Slot
			}
		}
	}
	dense := make([]Slot, inv.Slots)
	for i := range dense {
		dense[i] = Empty(i + 1)
	}
	for _, s := range inv.Items {
		if s.Slot < 1 || s.Slot > inv.Slots {
			problems = append(problems, fmt.Errorf("%w: inventory=%s slot=%d slots=%d", ErrOutOfRange, inv.ID, s.Slot, inv.Slots))
			continue
		}
		dense[s.Slot-1] = s
	}
	inv.Items = dense
	return problems
}

// GetSlot returns slot n. Outside [1, Slots] it returns a synthesized empty
// slot together with ErrOutOfRange; the host can reference slots before the
// client has caught up, so callers should render the empty slot.
func (inv *Inventory) GetSlot(n int) (Slot, error) {
	if inv == nil || n < 1 || n > len(inv.Items) {
		return Empty(n), ErrOutOfRange
	}
	return inv.Items[n-1], nil
}

// SetSlot overwrites slot n in full. The slot number of the stored value is
// forced to n; no other slot is touched and the length never changes.
func (inv *Inventory) SetSlot(n int, s Slot) error {
	if inv == nil || n < 1 || n > len(inv.Items) {
		return fmt.Errorf("%w: slot=%d", ErrOutOfRange, n)
	}
	s.Slot = n
	inv.Items[n-1] = s
	return nil
}

// Resize changes the slot count, padding with empty slots or truncating.
func (inv *Inventory) Resize(slots int) {
	if slots < 0 {
		slots = 0
	}
	if slots < len(inv.Items) {
		inv.Items = inv.Items[:slots]
	}
	for n := len(inv.Items) + 1; n <= slots; n++ {
		inv.Items = append(inv.Items, Empty(n))
	}
	inv.Slots = slots
}

// Occupied returns the occupied slots in slot order.
func (inv *Inventory) Occupied() []Slot {
	out := make([]Slot, 0, len(inv.Items))
	for _, s := range inv.Items {
		if IsOccupied(s) {
			out = append(out, s)
		}
	}
	return out
}

// CountByName sums counts of occupied slots per item name.
func (inv *Inventory) CountByName() map[string]int {
	out := make(map[string]int)
	for _, s := range inv.Items {
		if IsOccupied(s) {
			out[s.Name] += s.Count
		}
	}
	return out
}

// Clone returns a deep copy safe to hand to renderers.
func (inv *Inventory) Clone() *Inventory {
	if inv == nil {
		return nil
	}
	out := *inv
	if inv.MaxWeight != nil {
		mw := *inv.MaxWeight
		out.MaxWeight = &mw
	}
	if inv.Groups != nil {
		out.Groups = make(map[string]int, len(inv.Groups))
		for k, v := range inv.Groups {
			out.Groups[k] = v
		}
	}
	out.Items = make([]Slot, len(inv.Items))
	for i, s := range inv.Items {
		out.Items[i] = s.Clone()
	}
	return &out
}

// Clone deep-copies a slot.
func (s Slot) Clone() Slot {
	out := s
	out.Metadata = s.Metadata.clone()
	if s.Durability != nil {
		d := *s.Durability
		out.Durability = &d
	}
	if s.Price != nil {
		p := *s.Price
		out.Price = &p
	}
	if s.Ingredients != nil {
		out.Ingredients = make(map[string]float64, len(s.Ingredients))
		for k, v := range s.Ingredients {
			out.Ingredients[k] = v
		}
	}
	if s.Grade != nil {
		g := Grades{Values: append([]int(nil), s.Grade.Values...), List: s.Grade.List}
		out.Grade = &g
	}
	return out
}

// IngredientNames returns the ingredient names sorted for stable output.
func (s Slot) IngredientNames() []string {
	names := make([]string, 0, len(s.Ingredients))
	for name := range s.Ingredients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

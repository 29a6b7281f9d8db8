package devhost

import (
	"errors"
	"fmt"
	"math"

	"github.com/gravitas-games/invmirror/internal/eligibility"
	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/pkg/inventory"
	"github.com/gravitas-games/invmirror/pkg/models"
)

// These rules are fixture behaviour for local runs. They are deliberately
// simple and make no attempt to match a real host.
var (
	errNothingThere   = errors.New("There is nothing in that slot")
	errNoFreeSlot     = errors.New("There is no free slot")
	errCannotStack    = errors.New("Cannot stack those items")
	errCannotAfford   = errors.New("You cannot afford that")
	errNotAllowed     = errors.New("You are not allowed to buy that")
	errMissingIngreds = errors.New("You are missing ingredients")
	errNotUsable      = errors.New("That item cannot be used")
)

type playerState struct {
	catalog *inventory.Catalog
	player  *models.Player
	left    *inventory.Inventory
	right   *inventory.Inventory
	touched network.SlotUpdates
	closing bool
}

func (st *playerState) apply(req network.TransferRequest) (network.SlotUpdates, error) {
	st.touched = nil
	st.closing = false

	var err error
	switch req.Kind {
	case network.KindMove:
		err = st.move(req)
	case network.KindBuy:
		err = st.buy(req)
	case network.KindCraft:
		err = st.craft(req)
	case network.KindUse:
		err = st.use(req)
	default:
		err = fmt.Errorf("unknown transfer kind %q", req.Kind)
	}
	if err != nil {
		return nil, err
	}
	return st.touched, nil
}

func (st *playerState) inventoryFor(kind inventory.Type) (*inventory.Inventory, error) {
	if kind == inventory.TypePlayer {
		return st.left, nil
	}
	if st.right != nil && st.right.Type == kind {
		return st.right, nil
	}
	return nil, fmt.Errorf("no %s inventory is open", kind)
}

func (st *playerState) endpoint(e network.Endpoint) (*inventory.Inventory, inventory.Slot, error) {
	inv, err := st.inventoryFor(e.InventoryKind)
	if err != nil {
		return nil, inventory.Slot{}, err
	}
	s, err := inv.GetSlot(e.Item.Slot)
	if err != nil {
		return nil, inventory.Slot{}, err
	}
	return inv, s, nil
}

// put stores s and records the update for the refresh push.
func (st *playerState) put(inv *inventory.Inventory, s inventory.Slot) {
	if s.Count <= 0 && inv.Type != inventory.TypeShop {
		s = inventory.Empty(s.Slot)
	}
	_ = inv.SetSlot(s.Slot, s)
	st.touched = append(st.touched, network.SlotUpdate{Inventory: inv.ID, Item: s.Clone()})
}

func (st *playerState) stackable(name string) bool {
	d, ok := st.catalog.Lookup(name)
	return ok && d.Stack
}

func firstFree(inv *inventory.Inventory) (inventory.Slot, bool) {
	for _, s := range inv.Items {
		if !inventory.IsOccupied(s) {
			return s, true
		}
	}
	return inventory.Slot{}, false
}

func (st *playerState) move(req network.TransferRequest) error {
	src, s, err := st.endpoint(req.Source)
	if err != nil {
		return err
	}
	if !inventory.IsOccupied(s) {
		return errNothingThere
	}

	var (
		dst *inventory.Inventory
		t   inventory.Slot
	)
	if req.Target == nil {
		// Quick move to the other side.
		dst = st.right
		if src != st.left {
			dst = st.left
		}
		if dst == nil || dst.Type.RequestOnly() {
			return errNoFreeSlot
		}
		var ok bool
		if t, ok = firstFree(dst); !ok {
			return errNoFreeSlot
		}
	} else {
		if dst, t, err = st.endpoint(*req.Target); err != nil {
			return err
		}
		if dst.Type.RequestOnly() {
			return fmt.Errorf("cannot move items into a %s", dst.Type)
		}
	}
	if src == dst && s.Slot == t.Slot {
		return nil
	}

	count := req.Count
	if count <= 0 || count > s.Count {
		count = s.Count
	}

	switch {
	case !inventory.IsOccupied(t):
		moved := s.Clone()
		moved.Slot = t.Slot
		moved.Count = count
		s.Count -= count
		st.put(src, s)
		st.put(dst, moved)
	case t.Name == s.Name && st.stackable(s.Name):
		t.Count += count
		s.Count -= count
		st.put(src, s)
		st.put(dst, t)
	case count == s.Count:
		s.Slot, t.Slot = t.Slot, s.Slot
		st.put(src, t)
		st.put(dst, s)
	default:
		return errCannotStack
	}
	return nil
}

// receive adds count of item to the target player slot.
func (st *playerState) receive(target *network.Endpoint, item inventory.Slot, count int) error {
	if target == nil || target.InventoryKind != inventory.TypePlayer {
		return fmt.Errorf("items can only be received into the player inventory")
	}
	_, t, err := st.endpoint(*target)
	if err != nil {
		return err
	}
	switch {
	case !inventory.IsOccupied(t):
		got := inventory.Slot{
			Slot:     t.Slot,
			Name:     item.Name,
			Count:    count,
			Weight:   item.Weight,
			Metadata: item.Clone().Metadata,
		}
		st.put(st.left, got)
	case t.Name == item.Name && st.stackable(item.Name):
		t.Count += count
		st.put(st.left, t)
	default:
		return errCannotStack
	}
	return nil
}

func (st *playerState) buy(req network.TransferRequest) error {
	shop, s, err := st.endpoint(req.Source)
	if err != nil {
		return err
	}
	if !inventory.HasItem(s) {
		return errNothingThere
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	currency := s.Currency
	if currency == "" {
		currency = "money"
	}
	held := st.left.CountByName()[currency]
	ctx := eligibility.ShopContext{
		Type:   inventory.TypeShop,
		Groups: shop.Groups,
		Viewer: st.player.Groups,
		Budget: map[string]float64{currency: float64(held)},
	}
	if !eligibility.CanPurchase(s, ctx) {
		if s.Price == nil || *s.Price <= float64(held) {
			return errNotAllowed
		}
		return errCannotAfford
	}

	cost := 0
	if s.Price != nil {
		cost = int(math.Ceil(*s.Price * float64(count)))
	}
	if cost > held {
		return errCannotAfford
	}

	// Validate the target before paying.
	if req.Target == nil {
		return fmt.Errorf("buying needs a target slot")
	}
	if _, t, err := st.endpoint(*req.Target); err != nil {
		return err
	} else if inventory.IsOccupied(t) && (t.Name != s.Name || !st.stackable(s.Name)) {
		return errCannotStack
	}

	st.take(currency, cost)
	return st.receive(req.Target, s, count)
}

// take removes n of an item from the player inventory, lowest slot first.
func (st *playerState) take(name string, n int) {
	for _, p := range st.left.Items {
		if n == 0 {
			return
		}
		if !inventory.IsOccupied(p) || p.Name != name {
			continue
		}
		d := min(n, p.Count)
		p.Count -= d
		n -= d
		st.put(st.left, p)
	}
}

// wear takes share*100 durability off the first item that has enough.
func (st *playerState) wear(name string, share float64) {
	need := share * 100
	for _, p := range st.left.Items {
		if !inventory.IsOccupied(p) || p.Name != name {
			continue
		}
		d := p.ItemDurability(100)
		if d < need {
			continue
		}
		p = p.Clone()
		if p.Metadata == nil {
			p.Metadata = inventory.Metadata{}
		}
		p.Metadata[inventory.MetaDurability] = d - need
		p.Durability = nil
		st.put(st.left, p)
		return
	}
}

func (st *playerState) craft(req network.TransferRequest) error {
	_, s, err := st.endpoint(req.Source)
	if err != nil {
		return err
	}
	if !inventory.HasItem(s) {
		return errNothingThere
	}
	if !eligibility.CanCraft(s, inventory.TypeCrafting, st.left.Items) {
		return errMissingIngreds
	}
	if req.Target == nil {
		return fmt.Errorf("crafting needs a target slot")
	}
	if _, t, err := st.endpoint(*req.Target); err != nil {
		return err
	} else if inventory.IsOccupied(t) && (t.Name != s.Name || !st.stackable(s.Name)) {
		return errCannotStack
	}

	for _, name := range s.IngredientNames() {
		need := s.Ingredients[name]
		if need >= 1 {
			st.take(name, int(need))
		} else {
			st.wear(name, need)
		}
	}
	count := s.Count
	if count <= 0 {
		count = 1
	}
	return st.receive(req.Target, s, count)
}

func (st *playerState) use(req network.TransferRequest) error {
	if req.Source.InventoryKind != inventory.TypePlayer {
		return errNotUsable
	}
	_, s, err := st.endpoint(req.Source)
	if err != nil {
		return err
	}
	if !inventory.IsOccupied(s) {
		return errNothingThere
	}
	d, ok := st.catalog.Lookup(s.Name)
	if ok && !d.Usable {
		return errNotUsable
	}
	st.closing = ok && d.Close
	s.Count--
	st.put(st.left, s)
	return nil
}

package app

import (
	"github.com/gravitas-games/invmirror/internal/drag"
	"github.com/gravitas-games/invmirror/internal/eligibility"
	"github.com/gravitas-games/invmirror/internal/reconcile"
	"github.com/gravitas-games/invmirror/internal/transaction"
	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// HotbarSlots is how many player slots the hotbar shows.
const HotbarSlots = 5

// SlotView is one slot as the renderer should draw it.
type SlotView struct {
	inventory.Slot
	// Visible is false for empty slots and slots hidden by the search.
	Visible  bool
	Label    string
	ImageURL string
	Price    string
	Dimmed   bool
	Pending  bool
	Opacity  float64
	Target   bool
}

// InventoryView is one side of the UI.
type InventoryView struct {
	ID        string
	Type      inventory.Type
	Label     string
	Slots     []SlotView
	ItemCount int
	Weight    float64
	MaxWeight *float64
	Percent   float64
	Level     inventory.WeightLevel
	// WeightText is "850g/5.0kg", empty when no capacity is declared.
	WeightText string
	Search     string
}

// View is a render snapshot. It shares nothing with the mirror.
type View struct {
	Left          *InventoryView
	Right         *InventoryView
	Hotbar        []SlotView
	HotbarVisible bool
	Drag          drag.Visual
	Tooltip       *Tooltip
	NoBackdrop    bool
	Busy          bool
	Amount        int
	Notices       []string
}

// View builds a snapshot on the loop.
func (a *App) View() (View, error) {
	var v View
	err := a.do(func() { v = a.view() })
	return v, err
}

func (a *App) view() View {
	left, right := a.store.Snapshot()
	shop := a.store.ShopContext()
	player := a.store.PlayerItems()
	visual := a.drag.Visual()

	v := View{
		HotbarVisible: a.hotbarVisible,
		Drag:          visual,
		NoBackdrop:    a.noBackdrop,
		Busy:          len(a.engine.Pending()) > 0,
		Amount:        a.amount,
	}
	if a.tooltip != nil {
		t := *a.tooltip
		v.Tooltip = &t
	}
	for _, n := range a.notices {
		v.Notices = append(v.Notices, n.text)
	}

	v.Left = a.inventoryView(left, a.search[reconcile.Left], shop, player, visual)
	v.Right = a.inventoryView(right, a.search[reconcile.Right], shop, player, visual)

	if v.Left != nil && left.Type == inventory.TypePlayer {
		// The hotbar ignores the search filter.
		hot := left.Items
		if len(hot) > HotbarSlots {
			hot = hot[:HotbarSlots]
		}
		for _, s := range hot {
			v.Hotbar = append(v.Hotbar, a.slotView(left, s, shop, player, visual))
		}
	}
	return v
}

func (a *App) inventoryView(inv *inventory.Inventory, term string, shop eligibility.ShopContext, player []inventory.Slot, visual drag.Visual) *InventoryView {
	if inv == nil {
		return nil
	}
	cat := a.store.Catalog()
	total, percent := a.memo.Weight(inv, a.store.Revision(inv.ID))

	iv := &InventoryView{
		ID:        inv.ID,
		Type:      inv.Type,
		Label:     inv.Label,
		ItemCount: inventory.CountItems(inv),
		Weight:    total,
		MaxWeight: inv.MaxWeight,
		Percent:   percent,
		Level:     inventory.LevelFor(percent),
		Search:    term,
	}
	if inv.MaxWeight != nil && *inv.MaxWeight > 0 {
		iv.WeightText = inventory.FormatWeight(total) + "/" + inventory.FormatWeight(*inv.MaxWeight)
	}

	for _, s := range inventory.Filter(inv.Items, term, cat.Label) {
		iv.Slots = append(iv.Slots, a.slotView(inv, s, shop, player, visual))
	}
	return iv
}

func (a *App) slotView(inv *inventory.Inventory, s inventory.Slot, shop eligibility.ShopContext, player []inventory.Slot, visual drag.Visual) SlotView {
	key := transaction.Key{InventoryID: inv.ID, Slot: s.Slot}
	sv := SlotView{
		Slot:    s,
		Opacity: 1,
		Pending: a.engine.IsPending(key),
	}
	if inv.Type.RequestOnly() {
		sv.Visible = inventory.HasItem(s)
	} else {
		sv.Visible = inventory.IsOccupied(s)
	}
	if visual.Active && visual.Source == key {
		sv.Opacity = visual.Opacity
	}
	if visual.Highlight != nil && *visual.Highlight == key {
		sv.Target = true
	}
	if !sv.Visible {
		return sv
	}

	cat := a.store.Catalog()
	sv.Label = cat.Label(s)
	sv.ImageURL = cat.ImageURL(s)
	sv.Dimmed = eligibility.Dimmed(s, inv.Type, shop, player)
	if s.Price != nil && inv.Type == inventory.TypeShop {
		sv.Price = inventory.NewPriceFormatter(a.store.Locale()).Format(*s.Price, s.Currency)
	}
	return sv
}

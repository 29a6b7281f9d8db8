package app

import (
	"fmt"
	"time"

	"github.com/gravitas-games/invmirror/internal/eligibility"
	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/internal/reconcile"
	"github.com/gravitas-games/invmirror/internal/transaction"
	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// Tooltip is the informational popup for a hovered slot.
type Tooltip struct {
	Side        reconcile.Side
	Kind        inventory.Type
	Slot        inventory.Slot
	Label       string
	Description string
}

// BeginDrag picks up a slot. Dimmed slots can still be dragged.
func (a *App) BeginDrag(side reconcile.Side, slot int) error {
	var err error
	if derr := a.do(func() {
		a.clearTooltip()
		var ref transaction.Ref
		ref, err = a.store.Ref(side, slot)
		if err != nil {
			return
		}
		dimmed := eligibility.Dimmed(ref.Slot, ref.Kind, a.store.ShopContext(), a.store.PlayerItems())
		err = a.drag.Begin(ref, dimmed)
	}); derr != nil {
		return derr
	}
	return err
}

// HoverDrag highlights the slot under a dragged item. slot 0 clears it.
func (a *App) HoverDrag(side reconcile.Side, slot int) error {
	return a.do(func() {
		if slot == 0 {
			a.drag.Hover(nil)
			return
		}
		ref, err := a.store.Ref(side, slot)
		if err != nil {
			a.drag.Hover(nil)
			return
		}
		a.drag.Hover(&ref)
	})
}

// Drop releases the dragged item over a slot.
func (a *App) Drop(side reconcile.Side, slot int) (transaction.Record, error) {
	var (
		rec transaction.Record
		err error
	)
	if derr := a.do(func() {
		a.clearTooltip()
		var target transaction.Ref
		target, err = a.store.Ref(side, slot)
		if err != nil {
			a.drag.Release()
			return
		}
		rec, err = a.drag.Drop(a.ctx, target, a.amount)
	}); derr != nil {
		return transaction.Record{}, derr
	}
	return rec, err
}

// ReleaseDrag ends a drag outside any slot.
func (a *App) ReleaseDrag() error {
	return a.do(a.drag.Release)
}

// Click handles a modified click: ModQuick moves the stack without a
// target, ModUse uses a player item. Plain clicks are no-ops.
func (a *App) Click(side reconcile.Side, slot int, mod transaction.Modifier) (transaction.Record, error) {
	var (
		rec transaction.Record
		err error
	)
	if derr := a.do(func() {
		a.clearTooltip()
		var ref transaction.Ref
		ref, err = a.store.Ref(side, slot)
		if err != nil {
			return
		}
		kind, ok := transaction.Classify(ref, nil, mod)
		if !ok {
			err = fmt.Errorf("%w: click on %s", transaction.ErrIneligible, ref.Key())
			return
		}
		rec, err = a.engine.Submit(a.ctx, transaction.Intent{Kind: kind, Source: ref, Count: a.amount})
	}); derr != nil {
		return transaction.Record{}, derr
	}
	return rec, err
}

// HoverSlot arms the tooltip for a slot. It shows after the tooltip delay
// unless the pointer leaves or clicks first.
func (a *App) HoverSlot(side reconcile.Side, slot int) error {
	return a.do(func() {
		a.clearTooltip()
		if a.drag.Active() {
			return
		}
		gen := a.tooltipGen
		delay := a.opts.TooltipDelay
		a.tooltipTimer = time.AfterFunc(delay, func() {
			a.Post(func() {
				if a.tooltipGen != gen {
					return
				}
				a.tooltipTimer = nil
				a.showTooltip(side, slot)
			})
		})
	})
}

// LeaveSlot cancels a pending tooltip and hides a visible one.
func (a *App) LeaveSlot() error {
	return a.do(a.clearTooltip)
}

func (a *App) showTooltip(side reconcile.Side, slot int) {
	ref, err := a.store.Ref(side, slot)
	if err != nil || !inventory.HasItem(ref.Slot) {
		return
	}
	cat := a.store.Catalog()
	desc, _ := ref.Slot.Metadata.Description()
	if desc == "" {
		if d, ok := cat.Lookup(ref.Slot.Name); ok {
			desc = d.Description
		}
	}
	a.tooltip = &Tooltip{
		Side:        side,
		Kind:        ref.Kind,
		Slot:        ref.Slot,
		Label:       cat.Label(ref.Slot),
		Description: desc,
	}
}

func (a *App) clearTooltip() {
	a.tooltipGen++
	if a.tooltipTimer != nil {
		a.tooltipTimer.Stop()
		a.tooltipTimer = nil
	}
	a.tooltip = nil
}

// PointerDown hands focus to the crafting UI when the user clicks the right
// half of the screen while the inventory has no backdrop.
func (a *App) PointerDown(x, width float64) error {
	var err error
	if derr := a.do(func() {
		if !a.noBackdrop || x <= width/2 {
			return
		}
		err = a.bridge.Notify(network.EventTransferFocusToCrafting, struct{}{})
	}); derr != nil {
		return derr
	}
	return err
}

// SearchFocus locks game controls while a search box has focus.
func (a *App) SearchFocus(focused bool) error {
	return a.bridge.Notify(network.EventLockControls, focused)
}

// SetSearch sets the search term for one side.
func (a *App) SetSearch(side reconcile.Side, term string) error {
	return a.do(func() { a.search[side] = term })
}

// SetAmount sets the count sent with transfers. 0 lets the host decide,
// which moves the whole stack.
func (a *App) SetAmount(n int) error {
	if n < 0 {
		n = 0
	}
	return a.do(func() { a.amount = n })
}

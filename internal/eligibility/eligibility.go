// Package eligibility computes weight totals and local action eligibility
// from the mirrored state. Everything here is pure: no I/O, no errors.
// An unsatisfiable predicate is false, which the caller renders as a
// dimmed affordance.
package eligibility

import (
	"math"

	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// TotalWeight sums weight*count over occupied slots, rounded to three
// decimals so repeated recomputation doesn't drift.
func TotalWeight(items []inventory.Slot) float64 {
	total := 0.0
	for _, s := range items {
		if inventory.IsOccupied(s) {
			total += s.Weight * float64(s.Count)
		}
	}
	return round3(total)
}

// WeightPercent is total as a percentage of maxWeight, or 0 when no
// capacity is declared.
func WeightPercent(total float64, maxWeight *float64) float64 {
	if maxWeight == nil || *maxWeight == 0 {
		return 0
	}
	return total / *maxWeight * 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ShopContext is what CanPurchase needs to know about the shop being
// browsed and the viewer browsing it.
type ShopContext struct {
	Type inventory.Type
	// Groups are the shop's group requirements.
	Groups map[string]int
	// Viewer holds the player's group grades, from the player inventory.
	Viewer map[string]int
	// Budget is an optional host-declared spending limit per currency.
	Budget map[string]float64
}

// CanPurchase evaluates the locally known purchase predicates: group grade
// gating and, when the host declared one, the budget for the currency.
func CanPurchase(s inventory.Slot, ctx ShopContext) bool {
	if ctx.Type != inventory.TypeShop || !inventory.HasItem(s) {
		return true
	}
	if s.Grade != nil && !s.Grade.Empty() && len(ctx.Groups) > 0 {
		if !gradeSatisfied(*s.Grade, ctx.Groups, ctx.Viewer) {
			return false
		}
	}
	if s.Price != nil && ctx.Budget != nil {
		currency := s.Currency
		if currency == "" {
			currency = "money"
		}
		if budget, ok := ctx.Budget[currency]; ok && *s.Price > budget {
			return false
		}
	}
	return true
}

func gradeSatisfied(g inventory.Grades, required, viewer map[string]int) bool {
	if viewer == nil {
		return false
	}
	for group := range required {
		have, ok := viewer[group]
		if !ok {
			continue
		}
		if !g.List {
			if have >= g.Values[0] {
				return true
			}
			continue
		}
		for _, want := range g.Values {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CanCraft reports whether every ingredient of a crafting slot is covered
// by the mirrored player inventory. Whole requirements compare against the
// summed count of that item. Fractional requirements (a tool losing 10% per
// craft is 0.1) need a single item with at least that share of durability
// left; items without durability count as fully intact.
func CanCraft(s inventory.Slot, kind inventory.Type, player []inventory.Slot) bool {
	if kind != inventory.TypeCrafting || !inventory.HasItem(s) || len(s.Ingredients) == 0 {
		return true
	}
	for _, name := range s.IngredientNames() {
		if !ingredientSatisfied(name, s.Ingredients[name], player) {
			return false
		}
	}
	return true
}

func ingredientSatisfied(name string, required float64, player []inventory.Slot) bool {
	if required >= 1 {
		return countItem(player, name) >= required
	}
	need := required * 100
	for _, p := range player {
		if !inventory.IsOccupied(p) || p.Name != name {
			continue
		}
		if p.ItemDurability(100) >= need {
			return true
		}
	}
	return false
}

// countItem counts the total quantity of an item across slots.
func countItem(items []inventory.Slot, name string) float64 {
	total := 0
	for _, s := range items {
		if inventory.IsOccupied(s) && s.Name == name {
			total += s.Count
		}
	}
	return float64(total)
}

// Dimmed reports whether a slot should render as visually illegal. This is
// advisory only: a dimmed source can still be dragged.
func Dimmed(s inventory.Slot, kind inventory.Type, shop ShopContext, player []inventory.Slot) bool {
	if !inventory.HasItem(s) {
		return false
	}
	shop.Type = kind
	return !CanPurchase(s, shop) || !CanCraft(s, kind, player)
}

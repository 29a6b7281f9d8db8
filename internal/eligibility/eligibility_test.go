package eligibility

import (
	"testing"

	"github.com/gravitas-games/invmirror/pkg/inventory"
)

func playerItems(copper int) []inventory.Slot {
	return []inventory.Slot{
		{Slot: 1, Name: "iron", Count: 5, Weight: 600},
		{Slot: 2, Name: "powersaw", Count: 1, Weight: 0},
		{Slot: 3, Name: "copper", Count: copper, Weight: 100},
		inventory.Empty(4),
	}
}

func lockpick() inventory.Slot {
	price := 300.0
	return inventory.Slot{
		Slot:        1,
		Name:        "lockpick",
		Weight:      500,
		Price:       &price,
		Ingredients: map[string]float64{"iron": 5, "copper": 12, "powersaw": 0.1},
	}
}

func TestTotalWeightSumsWeightTimesCount(t *testing.T) {
	items := playerItems(12)
	if got := TotalWeight(items); got != 4200 {
		t.Fatalf("expected 4200, got %v", got)
	}
	// Adding an occupied slot raises the total by exactly w*c.
	items = append(items, inventory.Slot{Slot: 5, Name: "water", Count: 3, Weight: 0.1})
	if got := TotalWeight(items); got != 4200.3 {
		t.Fatalf("expected 4200.3, got %v", got)
	}
	// Zero-count and empty slots contribute nothing.
	items = append(items, inventory.Slot{Slot: 6, Name: "ghost", Count: 0, Weight: 999})
	if got := TotalWeight(items); got != 4200.3 {
		t.Fatalf("expected zero-count slot to be ignored, got %v", got)
	}
}

func TestTotalWeightRoundsToThreeDecimals(t *testing.T) {
	items := make([]inventory.Slot, 0, 10)
	for i := 1; i <= 10; i++ {
		items = append(items, inventory.Slot{Slot: i, Name: "dust", Count: 1, Weight: 0.1})
	}
	if got := TotalWeight(items); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestWeightPercentGuardsZero(t *testing.T) {
	if got := WeightPercent(100, nil); got != 0 {
		t.Fatalf("expected 0 for nil max, got %v", got)
	}
	zero := 0.0
	if got := WeightPercent(100, &zero); got != 0 {
		t.Fatalf("expected 0 for zero max, got %v", got)
	}
	max := 5000.0
	if got := WeightPercent(2500, &max); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
}

func TestCanCraftIngredientScenario(t *testing.T) {
	item := lockpick()
	if !CanCraft(item, inventory.TypeCrafting, playerItems(12)) {
		t.Fatalf("expected craftable with copper=12")
	}
	if CanCraft(item, inventory.TypeCrafting, playerItems(11)) {
		t.Fatalf("expected not craftable with copper=11")
	}
}

func TestCanCraftFractionalUsesDurability(t *testing.T) {
	item := lockpick()
	items := playerItems(12)
	worn := 5.0
	items[1].Durability = &worn
	if CanCraft(item, inventory.TypeCrafting, items) {
		t.Fatalf("expected powersaw at 5%% durability to fail a 0.1 requirement")
	}
	items[1].Durability = nil
	items[1].Metadata = inventory.Metadata{"durability": 75.0}
	if !CanCraft(item, inventory.TypeCrafting, items) {
		t.Fatalf("expected powersaw at 75%% durability to satisfy 0.1")
	}
}

func TestCanCraftIgnoresOtherKinds(t *testing.T) {
	if !CanCraft(lockpick(), inventory.TypeShop, nil) {
		t.Fatalf("expected non-crafting context to be eligible")
	}
	if !CanCraft(inventory.Empty(1), inventory.TypeCrafting, nil) {
		t.Fatalf("expected empty slot to be eligible")
	}
}

func TestCanCraftSymmetry(t *testing.T) {
	item := lockpick()
	for copper := 0; copper <= 20; copper++ {
		got := CanCraft(item, inventory.TypeCrafting, playerItems(copper))
		want := copper >= 12
		if got != want {
			t.Fatalf("copper=%d: expected %v, got %v", copper, want, got)
		}
	}
}

func TestCanPurchaseGroupGrades(t *testing.T) {
	single := inventory.Slot{Slot: 1, Name: "rifle", Grade: &inventory.Grades{Values: []int{2}}}
	list := inventory.Slot{Slot: 2, Name: "badge", Grade: &inventory.Grades{Values: []int{0, 3}, List: true}}
	shop := ShopContext{Type: inventory.TypeShop, Groups: map[string]int{"police": 0}}

	shop.Viewer = map[string]int{"police": 2}
	if !CanPurchase(single, shop) {
		t.Fatalf("expected grade 2 to satisfy minimum 2")
	}
	if CanPurchase(list, shop) {
		t.Fatalf("expected grade 2 not in [0,3] to fail")
	}
	shop.Viewer = map[string]int{"police": 1}
	if CanPurchase(single, shop) {
		t.Fatalf("expected grade 1 to fail minimum 2")
	}
	shop.Viewer = nil
	if CanPurchase(single, shop) {
		t.Fatalf("expected viewer without groups to fail")
	}
	if !CanPurchase(inventory.Slot{Slot: 3, Name: "water"}, shop) {
		t.Fatalf("expected item without grade to be purchasable")
	}
	shop.Type = inventory.TypePlayer
	if !CanPurchase(single, shop) {
		t.Fatalf("expected non-shop context to be eligible")
	}
}

func TestCanPurchaseBudget(t *testing.T) {
	item := lockpick()
	shop := ShopContext{Type: inventory.TypeShop, Budget: map[string]float64{"money": 299}}
	if CanPurchase(item, shop) {
		t.Fatalf("expected price 300 over budget 299 to fail")
	}
	shop.Budget["money"] = 300
	if !CanPurchase(item, shop) {
		t.Fatalf("expected price within budget to pass")
	}
	item.Currency = "gold_coin"
	shop.Budget = map[string]float64{"money": 0}
	if !CanPurchase(item, shop) {
		t.Fatalf("expected undeclared currency budget to pass")
	}
}

func TestMemoRecomputesOnRevision(t *testing.T) {
	inv := inventory.New("p", inventory.TypePlayer, 2, inventory.WithMaxWeight(400))
	_ = inv.SetSlot(1, inventory.Slot{Name: "iron", Count: 1, Weight: 100})
	m := NewMemo()
	total, pct := m.Weight(inv, 1)
	if total != 100 || pct != 25 {
		t.Fatalf("expected 100/25, got %v/%v", total, pct)
	}
	_ = inv.SetSlot(2, inventory.Slot{Name: "iron", Count: 1, Weight: 100})
	if total, _ := m.Weight(inv, 1); total != 100 {
		t.Fatalf("expected cached total at same revision, got %v", total)
	}
	if total, _ := m.Weight(inv, 2); total != 200 {
		t.Fatalf("expected recomputed total, got %v", total)
	}
	// Forget drops the entry even at an unchanged revision.
	_ = inv.SetSlot(2, inventory.Empty(2))
	m.Forget("p")
	if total, _ := m.Weight(inv, 2); total != 100 {
		t.Fatalf("expected recomputed total after forget, got %v", total)
	}
}

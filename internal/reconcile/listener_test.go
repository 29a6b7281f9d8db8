package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/gravitas-games/invmirror/internal/bridge"
	"github.com/gravitas-games/invmirror/internal/drag"
	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/internal/transaction"
	"github.com/gravitas-games/invmirror/pkg/inventory"
)

type countingSender struct{ events []string }

func (s *countingSender) Send(_ context.Context, event string, _ any) (<-chan bridge.Result, error) {
	s.events = append(s.events, event)
	return make(chan bridge.Result), nil
}

type inlineScheduler struct{}

func (inlineScheduler) Post(fn func()) { fn() }

type fixture struct {
	store    *Store
	listener *Listener
	engine   *transaction.Engine
	drag     *drag.Controller
	sender   *countingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: NewStore(), sender: &countingSender{}}
	f.engine = transaction.NewEngine(transaction.Options{Sender: f.sender, Scheduler: inlineScheduler{}})
	f.drag = drag.NewController(f.engine)
	f.engine.SetDrag(f.drag)
	f.listener = NewListener(f.store, f.engine)

	player, _, catalog := inventory.SampleInventories()
	f.listener.Init(network.InitPayload{
		Locale:        map[string]string{"$": "$"},
		Items:         catalogMap(catalog),
		LeftInventory: player,
		ImagePath:     "nui://inventory/images",
	})
	return f
}

func catalogMap(c *inventory.Catalog) map[string]inventory.ItemDetails {
	out := make(map[string]inventory.ItemDetails)
	for _, d := range c.Export() {
		out[d.Name] = d
	}
	return out
}

func slotOf(t *testing.T, s *Store, side Side, n int) inventory.Slot {
	t.Helper()
	inv := s.Inventory(side)
	sl, err := inv.GetSlot(n)
	if err != nil {
		t.Fatalf("slot %d: %v", n, err)
	}
	return sl
}

func TestInitIsIdempotent(t *testing.T) {
	f := newFixture(t)
	player, _, catalog := inventory.SampleInventories()
	payload := network.InitPayload{Items: catalogMap(catalog), LeftInventory: player, ImagePath: "img"}

	f.listener.Init(payload)
	first, _ := f.store.Snapshot()
	f.listener.Init(payload)
	second, right := f.store.Snapshot()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical state after repeated init")
	}
	if right != nil {
		t.Fatalf("expected init to clear the right inventory")
	}
	if got := f.store.Catalog().ImagePath(); got != "img" {
		t.Fatalf("expected image path img, got %s", got)
	}
	if f.store.Catalog().Label(inventory.Slot{Name: "powersaw"}) != "Power Saw" {
		t.Fatalf("expected catalog to be replaced by init")
	}
}

func TestRefreshReplacesSlotInFull(t *testing.T) {
	f := newFixture(t)
	before := slotOf(t, f.store, Left, 1)
	if before.Metadata == nil {
		t.Fatalf("expected sample slot 1 to carry metadata")
	}

	f.listener.Refresh(network.RefreshSlotsPayload{Items: network.SlotUpdates{
		{Inventory: "test", Item: inventory.Slot{Slot: 1, Name: "iron", Count: 4, Weight: 600}},
	}})

	after := slotOf(t, f.store, Left, 1)
	if after.Count != 4 || after.Metadata != nil {
		t.Fatalf("expected full replace without metadata merge, got %+v", after)
	}
	if slotOf(t, f.store, Left, 2).Name != "powersaw" {
		t.Fatalf("expected untouched slots to survive")
	}
}

func TestRefreshLastWriterWins(t *testing.T) {
	f := newFixture(t)
	touched := f.listener.Refresh(network.RefreshSlotsPayload{Items: network.SlotUpdates{
		{Inventory: "test", Item: inventory.Slot{Slot: 7, Name: "water", Count: 1}},
		{Inventory: "test", Item: inventory.Slot{Slot: 7, Name: "copper", Count: 9}},
		{Inventory: "nobody", Item: inventory.Slot{Slot: 1, Name: "water", Count: 1}},
		{Inventory: "test", Item: inventory.Slot{Slot: 99, Name: "water", Count: 1}},
	}})
	if got := slotOf(t, f.store, Left, 7); got.Name != "copper" || got.Count != 9 {
		t.Fatalf("expected last entry to win, got %+v", got)
	}
	if len(touched) != 2 {
		t.Fatalf("expected only in-range known slots touched, got %v", touched)
	}
	if inv := f.store.Inventory(Left); len(inv.Items) != 52 {
		t.Fatalf("expected length to stay 52, got %d", len(inv.Items))
	}
}

func TestRefreshAppliesCapacityHints(t *testing.T) {
	f := newFixture(t)
	rev := f.store.Revision("test")
	f.listener.Refresh(network.RefreshSlotsPayload{
		WeightData: &network.WeightData{InventoryID: "test", MaxWeight: 8000},
		SlotsData:  &network.SlotsData{InventoryID: "test", Slots: 60},
	})
	inv := f.store.Inventory(Left)
	if inv.MaxWeight == nil || *inv.MaxWeight != 8000 {
		t.Fatalf("expected max weight 8000, got %v", inv.MaxWeight)
	}
	if inv.Slots != 60 || len(inv.Items) != 60 || inv.Items[59].Slot != 60 {
		t.Fatalf("expected 60 dense slots, got %d/%d", inv.Slots, len(inv.Items))
	}
	if f.store.Revision("test") == rev {
		t.Fatalf("expected revision to move")
	}
}

func TestSingleSourceOfTruthUnderInterleaving(t *testing.T) {
	f := newFixture(t)
	src, _ := f.store.Ref(Left, 4)
	dst, _ := f.store.Ref(Left, 10)

	if err := f.drag.Begin(src, false); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if _, err := f.drag.Drop(context.Background(), dst, 1); err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if len(f.sender.events) != 1 || f.sender.events[0] != network.EventSwapItems {
		t.Fatalf("expected one swapItems request, got %v", f.sender.events)
	}
	// Nothing moved locally.
	if slotOf(t, f.store, Left, 4).Name != "water" || slotOf(t, f.store, Left, 10).Name != "" {
		t.Fatalf("expected mirror untouched before the push")
	}

	// The host decided differently: the water went to slot 11.
	f.listener.Refresh(network.RefreshSlotsPayload{Items: network.SlotUpdates{
		{Inventory: "test", Item: inventory.Slot{Slot: 4}},
		{Inventory: "test", Item: inventory.Slot{Slot: 11, Name: "water", Count: 1, Weight: 100}},
	}})
	if slotOf(t, f.store, Left, 10).Name != "" || slotOf(t, f.store, Left, 11).Name != "water" {
		t.Fatalf("expected mirror to follow the push")
	}
	if len(f.engine.Pending()) != 0 {
		t.Fatalf("expected the push to settle the transaction")
	}
}

func TestPushForceCancelsDragOnTouchedSource(t *testing.T) {
	f := newFixture(t)
	src, _ := f.store.Ref(Left, 3)
	if err := f.drag.Begin(src, false); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	f.listener.Refresh(network.RefreshSlotsPayload{Items: network.SlotUpdates{
		{Inventory: "test", Item: inventory.Slot{Slot: 5}},
	}})
	if !f.drag.Active() {
		t.Fatalf("expected drag to survive an unrelated push")
	}

	f.listener.Refresh(network.RefreshSlotsPayload{Items: network.SlotUpdates{
		{Inventory: "test", Item: inventory.Slot{Slot: 3, Name: "copper", Count: 2, Weight: 100}},
	}})
	s := f.drag.Session()
	if s.Phase != drag.Cancelled || !errors.Is(s.Reason, drag.ErrStaleDragTarget) {
		t.Fatalf("expected forced cancel, got %+v", s)
	}
}

func TestBuyScenarioMutatesNothingUntilPush(t *testing.T) {
	f := newFixture(t)
	f.listener.Setup(network.SetupInventoryPayload{RightInventory: inventory.SampleShop()})

	src, _ := f.store.Ref(Right, 1)
	dst, _ := f.store.Ref(Left, 20)
	left, right := f.store.Snapshot()

	if err := f.drag.Begin(src, false); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if _, err := f.drag.Drop(context.Background(), dst, 1); err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if len(f.sender.events) != 1 || f.sender.events[0] != network.EventBuyItem {
		t.Fatalf("expected exactly one buyItem request, got %v", f.sender.events)
	}
	l2, r2 := f.store.Snapshot()
	if !reflect.DeepEqual(left, l2) || !reflect.DeepEqual(right, r2) {
		t.Fatalf("expected no mutation before refreshSlots")
	}

	raw, _ := json.Marshal(network.RefreshSlotsPayload{Items: network.SlotUpdates{
		{Inventory: "test", Item: inventory.Slot{Slot: 20, Name: "lockpick", Count: 1, Weight: 500}},
	}})
	f.listener.HandleRefresh(raw)
	if got := slotOf(t, f.store, Left, 20); got.Name != "lockpick" {
		t.Fatalf("expected lockpick in slot 20, got %+v", got)
	}
	if len(f.engine.Pending()) != 0 {
		t.Fatalf("expected buy to be committed")
	}
}

func TestCloseDiscardsRight(t *testing.T) {
	f := newFixture(t)
	f.listener.Setup(network.SetupInventoryPayload{RightInventory: inventory.SampleShop()})
	if f.store.Inventory(Right) == nil {
		t.Fatalf("expected shop to be open")
	}
	f.listener.Close()
	if f.store.Inventory(Right) != nil {
		t.Fatalf("expected right inventory discarded")
	}
	if _, err := f.store.Ref(Right, 1); err == nil {
		t.Fatalf("expected error resolving a slot with nothing open")
	}
}

func TestShopContextBudget(t *testing.T) {
	f := newFixture(t)
	f.listener.Setup(network.SetupInventoryPayload{RightInventory: inventory.SampleShop()})
	ctx := f.store.ShopContext()
	if ctx.Type != inventory.TypeShop || ctx.Groups["police"] != 0 {
		t.Fatalf("unexpected shop context: %+v", ctx)
	}
	if budget, ok := ctx.Budget["money"]; !ok || budget != 0 {
		t.Fatalf("expected zero money budget, got %v/%v", budget, ok)
	}

	f.listener.Refresh(network.RefreshSlotsPayload{Items: network.SlotUpdates{
		{Inventory: "test", Item: inventory.Slot{Slot: 30, Name: "money", Count: 500}},
	}})
	if got := f.store.ShopContext().Budget["money"]; got != 500 {
		t.Fatalf("expected money budget 500, got %v", got)
	}
}

func TestRefSynthesizesOutOfRange(t *testing.T) {
	f := newFixture(t)
	ref, err := f.store.Ref(Left, 200)
	if err != nil {
		t.Fatalf("expected clamped ref, got %v", err)
	}
	if ref.Slot.Slot != 200 || inventory.HasItem(ref.Slot) {
		t.Fatalf("expected synthesized empty slot, got %+v", ref.Slot)
	}
	if !ref.OutOfRange {
		t.Fatalf("expected synthesized slot to be flagged out of range")
	}
	if transaction.CanDragSource(ref.Slot, ref.Kind) {
		t.Fatalf("expected synthesized slot to be undraggable")
	}
	if in, _ := f.store.Ref(Left, 52); in.OutOfRange {
		t.Fatalf("expected last slot to be in range")
	}
}

func TestDropPastShrunkSlotsSendsNothing(t *testing.T) {
	f := newFixture(t)
	src, _ := f.store.Ref(Left, 1)
	if err := f.drag.Begin(src, false); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	f.listener.Refresh(network.RefreshSlotsPayload{
		SlotsData: &network.SlotsData{InventoryID: "test", Slots: 40},
	})
	target, err := f.store.Ref(Left, 45)
	if err != nil {
		t.Fatalf("expected clamped ref, got %v", err)
	}

	f.drag.Hover(&target)
	if f.drag.Visual().Highlight != nil {
		t.Fatalf("expected no highlight past the slot count")
	}
	if _, err := f.drag.Drop(context.Background(), target, 0); !errors.Is(err, transaction.ErrIneligible) {
		t.Fatalf("expected ErrIneligible, got %v", err)
	}
	if len(f.sender.events) != 0 {
		t.Fatalf("expected no request, got %v", f.sender.events)
	}
	if f.drag.Session().Phase != drag.Cancelled {
		t.Fatalf("expected drag cancelled, got %s", f.drag.Session().Phase)
	}
}

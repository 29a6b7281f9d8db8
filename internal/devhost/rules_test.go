package devhost

import (
	"errors"
	"testing"

	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/pkg/inventory"
	"github.com/gravitas-games/invmirror/pkg/models"
)

func newTestSession(t *testing.T, fixture *Fixture) (*Session, *playerState) {
	t.Helper()
	s := NewSession("test", fixture)
	player := &models.Player{ID: "1", Username: "bob", Activated: 1}
	if err := s.AddPlayer(player, nil); err != nil {
		t.Fatalf("failed to add player: %v", err)
	}
	return s, s.states["1"]
}

func playerEnd(slot int) network.Endpoint {
	return network.Endpoint{InventoryKind: inventory.TypePlayer, Item: network.SlotRef{Slot: slot}}
}

func otherEnd(kind inventory.Type, slot int) *network.Endpoint {
	return &network.Endpoint{InventoryKind: kind, Item: network.SlotRef{Slot: slot}}
}

func move(from, to, count int) network.TransferRequest {
	target := playerEnd(to)
	return network.TransferRequest{Kind: network.KindMove, Source: playerEnd(from), Target: &target, Count: count}
}

func leftSlot(st *playerState, n int) inventory.Slot {
	s, _ := st.left.GetSlot(n)
	return s
}

func TestMoveSwapsDifferentItems(t *testing.T) {
	s, st := newTestSession(t, SampleFixture())

	updates, _, err := s.Transfer("1", move(1, 3, 0))
	if err != nil {
		t.Fatalf("expected swap to succeed, got %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if leftSlot(st, 1).Name != "copper" || leftSlot(st, 3).Name != "iron" {
		t.Fatalf("expected iron and copper swapped, got %s/%s", leftSlot(st, 1).Name, leftSlot(st, 3).Name)
	}
	if leftSlot(st, 3).Slot != 3 || leftSlot(st, 3).Count != 5 {
		t.Fatalf("unexpected slot 3 %+v", leftSlot(st, 3))
	}
}

func TestMoveStacksAndSplits(t *testing.T) {
	s, st := newTestSession(t, SampleFixture())

	if _, _, err := s.Transfer("1", move(4, 5, 0)); err != nil {
		t.Fatalf("expected stack to succeed, got %v", err)
	}
	if leftSlot(st, 5).Count != 2 || inventory.IsOccupied(leftSlot(st, 4)) {
		t.Fatalf("expected waters stacked into slot 5, got %+v / %+v", leftSlot(st, 4), leftSlot(st, 5))
	}

	if _, _, err := s.Transfer("1", move(3, 20, 5)); err != nil {
		t.Fatalf("expected split to succeed, got %v", err)
	}
	if leftSlot(st, 3).Count != 7 || leftSlot(st, 20).Count != 5 || leftSlot(st, 20).Name != "copper" {
		t.Fatalf("expected 7/5 split, got %d/%d", leftSlot(st, 3).Count, leftSlot(st, 20).Count)
	}

	if _, _, err := s.Transfer("1", move(3, 1, 2)); !errors.Is(err, errCannotStack) {
		t.Fatalf("expected partial swap to fail, got %v", err)
	}
}

func TestQuickMoveNeedsOpenContainer(t *testing.T) {
	s, _ := newTestSession(t, SampleFixture())
	req := network.TransferRequest{Kind: network.KindMove, Source: playerEnd(1)}
	// The open right inventory is a shop.
	if _, _, err := s.Transfer("1", req); !errors.Is(err, errNoFreeSlot) {
		t.Fatalf("expected no destination, got %v", err)
	}

	stash := inventory.New("stash-1", inventory.TypeStash, 4)
	fixture := SampleFixture()
	fixture.Right = stash
	s, st := newTestSession(t, fixture)
	updates, _, err := s.Transfer("1", req)
	if err != nil {
		t.Fatalf("expected quick move to succeed, got %v", err)
	}
	if len(updates) != 2 || st.right.Items[0].Name != "iron" || inventory.IsOccupied(leftSlot(st, 1)) {
		t.Fatalf("expected iron moved to stash slot 1, got %+v", st.right.Items[0])
	}
	if updates[1].Inventory != "stash-1" {
		t.Fatalf("expected stash update, got %s", updates[1].Inventory)
	}
}

func TestBuyDeductsCurrency(t *testing.T) {
	s, st := newTestSession(t, SampleFixture())

	req := network.TransferRequest{
		Kind:   network.KindBuy,
		Source: *otherEnd(inventory.TypeShop, 1),
		Target: otherEnd(inventory.TypePlayer, 20),
	}
	updates, _, err := s.Transfer("1", req)
	if err != nil {
		t.Fatalf("expected purchase to succeed, got %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected money and target updates, got %d", len(updates))
	}
	if leftSlot(st, 7).Count != 700 {
		t.Fatalf("expected 700 money left, got %d", leftSlot(st, 7).Count)
	}
	got := leftSlot(st, 20)
	if got.Name != "lockpick" || got.Count != 1 || got.Weight != 500 {
		t.Fatalf("unexpected purchase %+v", got)
	}
}

func TestBuyRejections(t *testing.T) {
	s, st := newTestSession(t, SampleFixture())

	water := network.TransferRequest{
		Kind:   network.KindBuy,
		Source: *otherEnd(inventory.TypeShop, 2),
		Target: otherEnd(inventory.TypePlayer, 20),
	}
	if _, _, err := s.Transfer("1", water); !errors.Is(err, errNotAllowed) {
		t.Fatalf("expected grade gate, got %v", err)
	}

	_ = st.left.SetSlot(7, inventory.Slot{Name: "money", Count: 100})
	lockpick := water
	lockpick.Source = *otherEnd(inventory.TypeShop, 1)
	if _, _, err := s.Transfer("1", lockpick); !errors.Is(err, errCannotAfford) {
		t.Fatalf("expected budget gate, got %v", err)
	}
	if leftSlot(st, 7).Count != 100 || inventory.IsOccupied(leftSlot(st, 20)) {
		t.Fatalf("expected nothing to change on rejection")
	}

	_ = st.left.SetSlot(7, inventory.Slot{Name: "money", Count: 1000})
	lockpick.Target = otherEnd(inventory.TypePlayer, 1)
	if _, _, err := s.Transfer("1", lockpick); !errors.Is(err, errCannotStack) {
		t.Fatalf("expected occupied target to fail, got %v", err)
	}
	if leftSlot(st, 7).Count != 1000 {
		t.Fatalf("expected no charge for a failed purchase")
	}
}

func TestCraftConsumesIngredients(t *testing.T) {
	player, bench, _ := inventory.SampleInventories()
	fixture := SampleFixture()
	fixture.Left = player
	fixture.Right = bench
	s, st := newTestSession(t, fixture)

	req := network.TransferRequest{
		Kind:   network.KindCraft,
		Source: *otherEnd(inventory.TypeCrafting, 1),
		Target: otherEnd(inventory.TypePlayer, 30),
	}
	if _, _, err := s.Transfer("1", req); err != nil {
		t.Fatalf("expected craft to succeed, got %v", err)
	}
	if inventory.IsOccupied(leftSlot(st, 1)) || inventory.IsOccupied(leftSlot(st, 3)) {
		t.Fatalf("expected iron and copper consumed")
	}
	if d := leftSlot(st, 2).ItemDurability(100); d != 65 {
		t.Fatalf("expected powersaw durability 65, got %v", d)
	}
	if leftSlot(st, 30).Name != "lockpick" {
		t.Fatalf("expected lockpick crafted, got %+v", leftSlot(st, 30))
	}

	if _, _, err := s.Transfer("1", req); !errors.Is(err, errMissingIngreds) {
		t.Fatalf("expected second craft to fail, got %v", err)
	}
}

func TestUseDecrements(t *testing.T) {
	s, st := newTestSession(t, SampleFixture())

	use := network.TransferRequest{Kind: network.KindUse, Source: playerEnd(4)}
	_, closeUI, err := s.Transfer("1", use)
	if err != nil {
		t.Fatalf("expected use to succeed, got %v", err)
	}
	if inventory.IsOccupied(leftSlot(st, 4)) {
		t.Fatalf("expected last water used up")
	}
	// Water closes the inventory when used.
	if !closeUI || st.right != nil {
		t.Fatalf("expected use of water to close the shop")
	}

	use.Source = playerEnd(1)
	if _, _, err := s.Transfer("1", use); !errors.Is(err, errNotUsable) {
		t.Fatalf("expected iron to be unusable, got %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s, _ := newTestSession(t, SampleFixture())
	if err := s.AddPlayer(&models.Player{ID: "2", Username: "alice", Activated: 1}, nil); err != nil {
		t.Fatalf("failed to add second player: %v", err)
	}
	if _, _, err := s.Transfer("1", network.TransferRequest{Kind: network.KindUse, Source: playerEnd(4)}); err != nil {
		t.Fatalf("use failed: %v", err)
	}
	if !inventory.IsOccupied(leftSlot(s.states["2"], 4)) {
		t.Fatalf("expected second player's inventory untouched")
	}
	if err := s.AddPlayer(&models.Player{ID: "2"}, nil); err == nil {
		t.Fatalf("expected duplicate player to be refused")
	}
}

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture([]byte(`
locale:
  $: "€"
imagepath: nui://inv/images
items:
  bread: {label: Bread, weight: 150, stack: true}
left:
  id: player-1
  type: player
  slots: 5
  maxWeight: 10000
  items:
    - {slot: 2, name: bread, count: 3, weight: 150}
    - {slot: 9, name: bread, count: 1, weight: 150}
right:
  id: fridge
  type: stash
  slots: 2
  items: []
`))
	if err != nil {
		t.Fatalf("expected fixture to parse, got %v", err)
	}
	if len(f.Left.Items) != 5 || f.Left.Items[1].Count != 3 {
		t.Fatalf("expected dense left inventory, got %+v", f.Left.Items)
	}
	if f.Left.MaxWeight == nil || *f.Left.MaxWeight != 10000 {
		t.Fatalf("expected max weight 10000")
	}
	if f.Items["bread"].Label != "Bread" || f.Locale["$"] != "€" {
		t.Fatalf("unexpected catalog %+v / locale %+v", f.Items, f.Locale)
	}
	if f.Right == nil || f.Right.Type != inventory.TypeStash || len(f.Right.Items) != 2 {
		t.Fatalf("unexpected right inventory %+v", f.Right)
	}

	if _, err := ParseFixture([]byte("locale: {}\n")); err == nil {
		t.Fatalf("expected fixture without left inventory to fail")
	}
}

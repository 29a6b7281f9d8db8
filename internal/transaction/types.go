package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/gravitas-games/invmirror/internal/network"
	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// ErrIneligible means an interaction failed a local gate. It is a UI no-op:
// nothing is sent and nothing changes.
var ErrIneligible = errors.New("transaction: ineligible transfer")

// State of a slot pair under transaction.
type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending"
	StateCommitted  State = "committed"
	StateRejected   State = "rejected"
	StateSuperseded State = "superseded"
	// StateLost is a request the host never answered. It may still have
	// been applied; the next push decides.
	StateLost State = "lost"
)

// Terminal reports whether the state folds back to idle.
func (s State) Terminal() bool {
	switch s {
	case StateCommitted, StateRejected, StateSuperseded, StateLost:
		return true
	}
	return false
}

// Key identifies a slot across both mirrored inventories.
type Key struct {
	InventoryID string
	Slot        int
}

func (k Key) String() string { return fmt.Sprintf("%s:%d", k.InventoryID, k.Slot) }

// Ref is one side of an interaction: which inventory, of which kind, and
// the slot as the mirror showed it when the gesture happened.
type Ref struct {
	InventoryID string
	Kind        inventory.Type
	Slot        inventory.Slot
	// OutOfRange marks a slot past the mirrored slot count. Slot is then a
	// synthesized empty slot and nothing may be dropped on it.
	OutOfRange bool
}

func (r Ref) Key() Key { return Key{InventoryID: r.InventoryID, Slot: r.Slot.Slot} }

func (r Ref) endpoint(withName bool) network.Endpoint {
	ep := network.Endpoint{InventoryKind: r.Kind, Item: network.SlotRef{Slot: r.Slot.Slot}}
	if withName {
		ep.Item.Name = r.Slot.Name
	}
	return ep
}

// Modifier is the key held during a click.
type Modifier int

const (
	ModNone Modifier = iota
	// ModQuick moves the stack without choosing a target slot.
	ModQuick
	// ModUse uses the item in place.
	ModUse
)

// Intent is a completed interaction ready to become a request.
type Intent struct {
	Kind   network.Kind
	Source Ref
	Target *Ref
	Count  int
}

// Keys returns every slot the intent involves.
func (in Intent) Keys() []Key {
	keys := []Key{in.Source.Key()}
	if in.Target != nil && in.Target.Key() != in.Source.Key() {
		keys = append(keys, in.Target.Key())
	}
	return keys
}

// Request builds the wire payload. The source names its item so the host
// can detect that the slot changed under the request.
func (in Intent) Request() network.TransferRequest {
	req := network.TransferRequest{
		Kind:   in.Kind,
		Source: in.Source.endpoint(true),
		Count:  in.Count,
	}
	if in.Target != nil {
		t := in.Target.endpoint(false)
		req.Target = &t
	}
	return req
}

// Record is the bookkeeping for one request.
type Record struct {
	Seq       uint64
	RequestID string
	Intent    Intent
	Keys      []Key
	State     State
	Err       error
	Started   time.Time
	Settled   time.Time
}

func (r *Record) touches(set map[Key]bool) bool {
	for _, k := range r.Keys {
		if set[k] {
			return true
		}
	}
	return false
}

// KindFor classifies a drop purely by where the dragged item came from.
func KindFor(source inventory.Type) network.Kind {
	switch source {
	case inventory.TypeShop:
		return network.KindBuy
	case inventory.TypeCrafting:
		return network.KindCraft
	default:
		return network.KindMove
	}
}

// Classify resolves an interaction to a transfer kind. With a target it is
// a drop. Without one it is a modified click: ModUse on the player
// inventory uses the item, ModQuick moves it to wherever the host sees fit.
// ok is false when the interaction is not a transfer at all.
func Classify(source Ref, target *Ref, mod Modifier) (kind network.Kind, ok bool) {
	if target != nil {
		return KindFor(source.Kind), true
	}
	switch mod {
	case ModUse:
		if source.Kind == inventory.TypePlayer {
			return network.KindUse, true
		}
	case ModQuick:
		if !source.Kind.RequestOnly() {
			return network.KindMove, true
		}
	}
	return "", false
}

// CanDragSource reports whether a slot can start a transfer. Shop and
// crafting rows may omit a count, so only the item name is required there.
func CanDragSource(s inventory.Slot, kind inventory.Type) bool {
	if kind.RequestOnly() {
		return inventory.HasItem(s)
	}
	return inventory.IsOccupied(s)
}

// CanDrop reports whether target accepts a drop from source. Dropping a
// slot onto itself is a no-op, slots past the slot count do not exist, and
// shop and crafting inventories only serve requests.
func CanDrop(source, target Ref) bool {
	if target.OutOfRange || target.Slot.Slot < 1 {
		return false
	}
	if target.Slot.Slot == source.Slot.Slot && target.Kind == source.Kind {
		return false
	}
	return !target.Kind.RequestOnly()
}

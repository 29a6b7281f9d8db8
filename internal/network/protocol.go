package network

import (
	"encoding/json"

	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// Frame types
const (
	FrameRequest  = "request"
	FrameNotify   = "notify"
	FrameResponse = "response"
	FramePush     = "push"
)

// Push events - Host → UI
const (
	EventInit           = "init"
	EventSetupInventory = "setupInventory"
	EventRefreshSlots   = "refreshSlots"
	EventCloseInventory = "closeInventory"
	EventToggleHotbar   = "toggleHotbar"
	EventSetNoBackdrop  = "setNoBackdrop"
	EventEndDrag        = "endDrag"
)

// Outbound events - UI → Host
const (
	EventUILoaded                = "uiLoaded"
	EventLockControls            = "lockControls"
	EventTransferFocusToCrafting = "transferFocusToCrafting"
	EventSwapItems               = "swapItems"
	EventBuyItem                 = "buyItem"
	EventCraftItem               = "craftItem"
	EventUseItem                 = "useItem"
)

// ClientMessage is any frame the UI writes to the host.
type ClientMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is any frame the host writes to the UI.
type ServerMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Push Payloads ---

// InitPayload replaces all UI state.
type InitPayload struct {
	Locale        map[string]string                `json:"locale"`
	Items         map[string]inventory.ItemDetails `json:"items"`
	LeftInventory *inventory.Inventory             `json:"leftInventory"`
	ImagePath     string                           `json:"imagepath"`
}

// SetupInventoryPayload replaces one or both visible inventories.
type SetupInventoryPayload struct {
	LeftInventory  *inventory.Inventory `json:"leftInventory,omitempty"`
	RightInventory *inventory.Inventory `json:"rightInventory,omitempty"`
}

// SlotUpdate is one authoritative slot snapshot.
type SlotUpdate struct {
	Inventory string         `json:"inventory"`
	Item      inventory.Slot `json:"item"`
}

// WeightData updates the capacity hint of an inventory.
type WeightData struct {
	InventoryID string  `json:"inventoryId"`
	MaxWeight   float64 `json:"maxWeight"`
}

// SlotsData updates the slot count of an inventory.
type SlotsData struct {
	InventoryID string `json:"inventoryId"`
	Slots       int    `json:"slots"`
}

// RefreshSlotsPayload is an incremental slot replacement.
type RefreshSlotsPayload struct {
	Items      SlotUpdates `json:"items,omitempty"`
	WeightData *WeightData `json:"weightData,omitempty"`
	SlotsData  *SlotsData  `json:"slotsData,omitempty"`
}

// SlotUpdates accepts either a single update object or an array, since
// hosts send a bare object for single-slot refreshes.
type SlotUpdates []SlotUpdate

func (u *SlotUpdates) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '{' {
		var one SlotUpdate
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*u = SlotUpdates{one}
		return nil
	}
	var many []SlotUpdate
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*u = many
	return nil
}

// --- Outbound Payloads ---

// Kind is the normalized transfer kind.
type Kind string

const (
	KindMove  Kind = "MOVE"
	KindBuy   Kind = "BUY"
	KindCraft Kind = "CRAFT"
	KindUse   Kind = "USE"
)

// EventFor returns the outbound request event for a transfer kind.
func (k Kind) EventFor() string {
	switch k {
	case KindBuy:
		return EventBuyItem
	case KindCraft:
		return EventCraftItem
	case KindUse:
		return EventUseItem
	default:
		return EventSwapItems
	}
}

// SlotRef identifies a slot by number and, when known, the item in it.
type SlotRef struct {
	Slot int    `json:"slot"`
	Name string `json:"name,omitempty"`
}

// Endpoint is one side of a transfer.
type Endpoint struct {
	InventoryKind inventory.Type `json:"inventoryKind"`
	Item          SlotRef        `json:"item"`
}

// TransferRequest is the body of swapItems, buyItem, craftItem and useItem.
type TransferRequest struct {
	Kind   Kind      `json:"kind"`
	Source Endpoint  `json:"source"`
	Target *Endpoint `json:"target,omitempty"`
	Count  int       `json:"count,omitempty"`
}

package devhost

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/invmirror/pkg/inventory"
)

// Fixture is the starting state every development session is cloned from.
type Fixture struct {
	Locale    map[string]string                `json:"locale"`
	ImagePath string                           `json:"imagepath"`
	Items     map[string]inventory.ItemDetails `json:"items"`
	Left      *inventory.Inventory             `json:"left"`
	Right     *inventory.Inventory             `json:"right"`
}

// LoadFixture reads a YAML fixture. Keys follow the host JSON payloads, so
// an inventory is written the same way the host would send it.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes YAML fixture bytes.
func ParseFixture(data []byte) (*Fixture, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	// Round-trip through JSON so the payload tags apply.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	if f.Left == nil {
		return nil, fmt.Errorf("fixture has no left inventory")
	}
	f.normalize()
	return &f, nil
}

// SampleFixture is the built-in player inventory with some cash and the
// sample shop open on the right.
func SampleFixture() *Fixture {
	player, _, catalog := inventory.SampleInventories()
	_ = player.SetSlot(7, inventory.Slot{Name: "money", Count: 1000})

	items := make(map[string]inventory.ItemDetails)
	for _, d := range catalog.Export() {
		items[d.Name] = d
	}
	return &Fixture{
		Locale:    map[string]string{"$": "$"},
		ImagePath: "nui://ox_inventory/web/images",
		Items:     items,
		Left:      player,
		Right:     inventory.SampleShop(),
	}
}

func (f *Fixture) normalize() {
	for _, inv := range []*inventory.Inventory{f.Left, f.Right} {
		if inv == nil {
			continue
		}
		for _, problem := range inv.Normalize() {
			log.Printf("Fixture: %v", problem)
		}
	}
}

func (f *Fixture) clone() (left, right *inventory.Inventory) {
	left = f.Left.Clone()
	if f.Right != nil {
		right = f.Right.Clone()
	}
	return left, right
}

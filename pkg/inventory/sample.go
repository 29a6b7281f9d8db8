package inventory

// SampleInventories returns a player inventory and a crafting bench using
// the same items the UI is usually developed against. The catalog holds the
// labels so clients can resolve display data separately from slot contents.
func SampleInventories() (*Inventory, *Inventory, *Catalog) {
	cat := NewCatalog(
		ItemDetails{Name: "iron", Label: "Iron", Weight: 600, Stack: true},
		ItemDetails{Name: "copper", Label: "Copper", Weight: 100, Stack: true},
		ItemDetails{Name: "powersaw", Label: "Power Saw", Weight: 0},
		ItemDetails{Name: "water", Label: "Water", Weight: 100, Stack: true, Usable: true, Close: true},
		ItemDetails{Name: "backwoods", Label: "Backwoods", Weight: 100, Stack: true},
		ItemDetails{Name: "lockpick", Label: "Lockpick", Weight: 500, Stack: true, Usable: true},
		ItemDetails{Name: "money", Label: "Money"},
	)

	durability := 75.0
	player := New("test", TypePlayer, 52, WithLabel("Bob Smith"), WithMaxWeight(5000))
	_ = player.SetSlot(1, Slot{Name: "iron", Weight: 600, Count: 5, Metadata: Metadata{
		MetaDescription: "name: Svetozar Miletic  \n Gender: Male",
		"ammo":          3.0,
	}})
	_ = player.SetSlot(2, Slot{Name: "powersaw", Weight: 0, Count: 1, Metadata: Metadata{MetaDurability: durability}})
	_ = player.SetSlot(3, Slot{Name: "copper", Weight: 100, Count: 12, Metadata: Metadata{MetaType: "Special"}})
	_ = player.SetSlot(4, Slot{Name: "water", Weight: 100, Count: 1, Metadata: Metadata{MetaDescription: "Generic item description"}})
	_ = player.SetSlot(5, Slot{Name: "water", Weight: 100, Count: 1})
	_ = player.SetSlot(6, Slot{Name: "backwoods", Weight: 100, Count: 1, Metadata: Metadata{
		MetaLabel:    "Russian Cream",
		MetaImageURL: "https://i.imgur.com/2xHhTTz.png",
	}})

	price := 300.0
	bench := New("bench", TypeCrafting, 10, WithLabel("Workbench"))
	_ = bench.SetSlot(1, Slot{
		Name:        "lockpick",
		Weight:      500,
		Price:       &price,
		Ingredients: map[string]float64{"iron": 5, "copper": 12, "powersaw": 0.1},
		Metadata:    Metadata{MetaDescription: "Simple lockpick that breaks easily and can pick basic door locks"},
	})

	return player, bench, cat
}

// SampleShop returns a shop selling the same lockpick for cash.
func SampleShop() *Inventory {
	price := 300.0
	shop := New("shop", TypeShop, 10, WithLabel("General Store"), WithGroups(map[string]int{"police": 0}))
	_ = shop.SetSlot(1, Slot{
		Name:        "lockpick",
		Weight:      500,
		Price:       &price,
		Currency:    "money",
		Ingredients: map[string]float64{"iron": 5, "copper": 12, "powersaw": 0.1},
	})
	_ = shop.SetSlot(2, Slot{Name: "water", Weight: 100, Price: &price, Grade: &Grades{Values: []int{2}}})
	return shop
}

package inventory

import "strings"

// Filter hides occupied slots that don't match term. Non-matching slots keep
// their number but lose name, count and metadata so the grid renders them
// as empty. Empty slots and slot order are untouched. label resolves the
// display label used for matching in addition to the raw name.
func Filter(items []Slot, term string, label func(Slot) string) []Slot {
	if term == "" {
		return items
	}
	needle := strings.ToLower(term)
	out := make([]Slot, len(items))
	for i, s := range items {
		if s.Name == "" {
			out[i] = s
			continue
		}
		l := s.Name
		if label != nil {
			l = label(s)
		}
		if strings.Contains(strings.ToLower(s.Name), needle) || strings.Contains(strings.ToLower(l), needle) {
			out[i] = s
			continue
		}
		hidden := s
		hidden.Name = ""
		hidden.Count = 0
		hidden.Metadata = nil
		out[i] = hidden
	}
	return out
}

// CountItems counts the slots of inv that hold an item. Shop and crafting
// rows count by name alone; elsewhere a zero count is empty.
func CountItems(inv *Inventory) int {
	if inv == nil {
		return 0
	}
	if !inv.Type.RequestOnly() {
		return len(inv.Occupied())
	}
	n := 0
	for _, s := range inv.Items {
		if HasItem(s) {
			n++
		}
	}
	return n
}

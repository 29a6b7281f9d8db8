package inventory

import (
	"sort"
	"strings"
	"sync"
)

// ItemDetails captures static display data for an item name. The host
// ships the whole table with init; the client never interprets it beyond
// display.
type ItemDetails struct {
	Name        string   `json:"name"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Weight      float64  `json:"weight,omitempty"`
	Stack       bool     `json:"stack,omitempty"`
	Usable      bool     `json:"usable,omitempty"`
	Close       bool     `json:"close,omitempty"`
	Metadata    Metadata `json:"metadata,omitempty"`
}

// Catalog stores item details keyed by item name together with the base
// image path. Lookups never fail; unknown names fall back to the raw name.
type Catalog struct {
	mu        sync.RWMutex
	items     map[string]ItemDetails
	imagePath string
}

// NewCatalog constructs a catalog seeded with the given details.
func NewCatalog(details ...ItemDetails) *Catalog {
	c := &Catalog{items: make(map[string]ItemDetails, len(details))}
	for _, d := range details {
		if d.Name == "" {
			continue
		}
		c.items[d.Name] = d
	}
	return c
}

// Merge inserts or updates details. The map key wins over a missing
// ItemDetails.Name, matching the host payload shape.
func (c *Catalog) Merge(items map[string]ItemDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]ItemDetails, len(items))
	}
	for name, d := range items {
		if d.Name == "" {
			d.Name = name
		}
		c.items[name] = d
	}
}

// SetImagePath sets the base path used to build item image URLs.
func (c *Catalog) SetImagePath(path string) {
	c.mu.Lock()
	c.imagePath = strings.TrimRight(path, "/")
	c.mu.Unlock()
}

// ImagePath returns the base image path.
func (c *Catalog) ImagePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.imagePath
}

// Lookup returns details for the provided name, if present.
func (c *Catalog) Lookup(name string) (ItemDetails, bool) {
	if c == nil {
		return ItemDetails{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.items[name]
	return d, ok
}

// Label resolves the display label: metadata label, catalog label, then
// the raw item name.
func (c *Catalog) Label(s Slot) string {
	if l, ok := s.Metadata.Label(); ok {
		return l
	}
	if d, ok := c.Lookup(s.Name); ok && d.Label != "" {
		return d.Label
	}
	return s.Name
}

// ImageURL resolves the icon for an occupied slot.
func (c *Catalog) ImageURL(s Slot) string {
	if s.Name == "" {
		return ""
	}
	if u, ok := s.Metadata.ImageURL(); ok {
		return u
	}
	if img, ok := s.Metadata.Image(); ok {
		return c.ImagePath() + "/" + img + ".png"
	}
	return c.ItemImageURL(s.Name)
}

// ItemImageURL resolves the icon for a bare item name, such as a shop
// currency.
func (c *Catalog) ItemImageURL(name string) string {
	if d, ok := c.Lookup(name); ok && d.Image != "" {
		return d.Image
	}
	return c.ImagePath() + "/" + name + ".png"
}

// Export copies catalog contents into a slice sorted by name.
func (c *Catalog) Export() []ItemDetails {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ItemDetails, 0, len(c.items))
	for _, d := range c.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Locale is the host-supplied string table.
type Locale struct {
	mu      sync.RWMutex
	strings map[string]string
}

// NewLocale constructs a locale table.
func NewLocale(entries map[string]string) *Locale {
	l := &Locale{}
	l.Merge(entries)
	return l
}

// Merge copies entries into the table, overwriting existing keys.
func (l *Locale) Merge(entries map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.strings == nil {
		l.strings = make(map[string]string, len(entries))
	}
	for k, v := range entries {
		l.strings[k] = v
	}
}

// T returns the string for key or fallback when missing.
func (l *Locale) T(key, fallback string) string {
	if l == nil {
		return fallback
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if v, ok := l.strings[key]; ok && v != "" {
		return v
	}
	return fallback
}

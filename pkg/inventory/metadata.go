package inventory

// Metadata is the open key/value bag the host attaches to items. Known keys
// have typed accessors; everything else is passed through for display.
type Metadata map[string]any

// Known metadata keys.
const (
	MetaLabel       = "label"
	MetaDescription = "description"
	MetaDurability  = "durability"
	MetaImageURL    = "imageurl"
	MetaImage       = "image"
	MetaType        = "type"
)

func (m Metadata) Text(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key].(string)
	return v, ok && v != ""
}

func (m Metadata) Number(key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (m Metadata) Label() (string, bool)       { return m.Text(MetaLabel) }
func (m Metadata) Description() (string, bool) { return m.Text(MetaDescription) }
func (m Metadata) ImageURL() (string, bool)    { return m.Text(MetaImageURL) }
func (m Metadata) Image() (string, bool)       { return m.Text(MetaImage) }
func (m Metadata) Durability() (float64, bool) { return m.Number(MetaDurability) }

// Extra returns the keys without a typed accessor, for opaque display.
func (m Metadata) Extra() map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		switch k {
		case MetaLabel, MetaDescription, MetaDurability, MetaImageURL, MetaImage:
			continue
		}
		out[k] = v
	}
	return out
}

func (m Metadata) clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

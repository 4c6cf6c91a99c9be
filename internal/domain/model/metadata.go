package model

// Metadata is the generated SEO payload for one asset on one platform.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Clone returns a deep copy so the keyword slice is not shared.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Keywords != nil {
		out.Keywords = append([]string(nil), m.Keywords...)
	}
	return out
}

package catalog

import (
	"fmt"
	"log/slog"
)

// Registry indexes catalog entries by id while keeping file order for listing
type Registry struct {
	contacts     []ContactEntry
	contactsByID map[string]ContactEntry
	focusAreas   []FocusArea
	focusByID    map[string]FocusArea
	focusByLabel map[string]FocusArea
}

// NewRegistry builds a registry from a manifest. Duplicate ids are logged
// and skipped; the first occurrence wins.
func NewRegistry(m *Manifest) *Registry {
	r := &Registry{
		contactsByID: make(map[string]ContactEntry),
		focusByID:    make(map[string]FocusArea),
		focusByLabel: make(map[string]FocusArea),
	}

	for _, c := range m.Contacts {
		if _, exists := r.contactsByID[c.ID]; exists {
			slog.Warn("Duplicate catalog contact, skipping", "id", c.ID)
			continue
		}
		r.contactsByID[c.ID] = c
		r.contacts = append(r.contacts, c)
	}

	for _, f := range m.FocusAreas {
		if _, exists := r.focusByID[f.ID]; exists {
			slog.Warn("Duplicate catalog focus area, skipping", "id", f.ID)
			continue
		}
		r.focusByID[f.ID] = f
		r.focusByLabel[f.Label] = f
		r.focusAreas = append(r.focusAreas, f)
	}

	return r
}

// Load reads the catalog at path (built-in when empty) into a Registry
func Load(path string) (*Registry, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(m), nil
}

// Contacts returns all contacts in catalog order
func (r *Registry) Contacts() []ContactEntry {
	return append([]ContactEntry(nil), r.contacts...)
}

// Contact looks up a contact by id
func (r *Registry) Contact(id string) (ContactEntry, bool) {
	c, ok := r.contactsByID[id]
	return c, ok
}

// FocusAreas returns all focus areas in catalog order
func (r *Registry) FocusAreas() []FocusArea {
	return append([]FocusArea(nil), r.focusAreas...)
}

// ResolveFocusAreas maps ids or labels to labels, preserving order and
// dropping duplicates. Unknown entries are an error.
func (r *Registry) ResolveFocusAreas(values []string) ([]string, error) {
	labels := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))

	for _, v := range values {
		f, ok := r.focusByID[v]
		if !ok {
			f, ok = r.focusByLabel[v]
		}
		if !ok {
			return nil, fmt.Errorf("unknown focus area: %q", v)
		}
		if seen[f.Label] {
			continue
		}
		seen[f.Label] = true
		labels = append(labels, f.Label)
	}

	return labels, nil
}

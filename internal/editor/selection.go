package editor

import "github.com/starford/menuboard/internal/models"

// Selection is an ordered set of element ids.
type Selection struct {
	ids []string
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id unless it is already present.
func (s *Selection) Add(id string) {
	if !s.Has(id) {
		s.ids = append(s.ids, id)
	}
}

// Remove drops id.
func (s *Selection) Remove(id string) {
	out := s.ids[:0]
	for _, v := range s.ids {
		if v != id {
			out = append(out, v)
		}
	}
	s.ids = out
}

// Set replaces the selection.
func (s *Selection) Set(ids ...string) {
	s.ids = make([]string, 0, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() { s.ids = s.ids[:0] }

// Len is the number of selected ids.
func (s *Selection) Len() int { return len(s.ids) }

// IDs returns a copy of the selected ids in selection order.
func (s *Selection) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Prune drops ids that no longer exist in doc.
func (s *Selection) Prune(doc models.Document) {
	out := s.ids[:0]
	for _, id := range s.ids {
		if doc.IndexOf(id) >= 0 {
			out = append(out, id)
		}
	}
	s.ids = out
}

package services

import (
	"slices"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
)

// Apply returns items with ev applied. An insert for a known id acts as an
// update; updates and deletes of unknown ids are ignored. Timestamps play no
// part, so redelivered events are harmless. items is not modified.
func Apply(items []models.Bookmark, ev models.ChangeEvent) []models.Bookmark {
	idx := slices.IndexFunc(items, func(b models.Bookmark) bool { return b.ID == ev.ID() })

	switch ev.Type {
	case models.EventInsert:
		if idx < 0 {
			out := make([]models.Bookmark, len(items), len(items)+1)
			copy(out, items)
			return append(out, ev.Record)
		}
		fallthrough
	case models.EventUpdate:
		if idx < 0 {
			return items
		}
		out := slices.Clone(items)
		out[idx] = ev.Record
		return out
	case models.EventDelete:
		if idx < 0 {
			return items
		}
		return slices.Delete(slices.Clone(items), idx, idx+1)
	}
	return items
}

package services

import (
	"slices"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
)

// Project returns the display order: newest CreatedAt first. Items with
// equal timestamps keep their relative order.
func Project(items []models.Bookmark) []models.Bookmark {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b models.Bookmark) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

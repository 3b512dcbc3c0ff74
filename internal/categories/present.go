package categories

import (
	"slices"

	"github.com/desertthunder/clouder/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// MaxShown is the number of categories offered as move targets.
const MaxShown = 8

// Present sorts categories by display name and keeps at most limit of them. limit <= 0 keeps all.
func Present(categories []models.CategoryPlaylist, limit int) []models.CategoryPlaylist {
	col := collate.New(language.English, collate.IgnoreCase)
	sorted := make([]models.CategoryPlaylist, len(categories))
	copy(sorted, categories)
	slices.SortStableFunc(sorted, func(a, b models.CategoryPlaylist) int {
		return col.CompareString(a.DisplayName, b.DisplayName)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Trash returns the trash bin among categories.
func Trash(categories []models.CategoryPlaylist) (models.CategoryPlaylist, bool) {
	for _, c := range categories {
		if c.IsTrash() {
			return c, true
		}
	}
	return models.CategoryPlaylist{}, false
}

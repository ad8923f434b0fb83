package monitor

import (
	"strings"

	"vintedwatch/monitor-service/internal/model"
)

// Matches reports whether an item satisfies the profile's category, gender
// and size criteria. It is a pure function over its inputs: no state, no
// side effects.
//
// CategoryOther ignores gender and sizes entirely; CategoryClothing requires
// a clothing-class catalog id, a matching gender branch (unless the profile
// leaves gender open) and a size-label match (unless the size filter is
// empty).
func Matches(item model.Item, p model.SearchProfile) bool {
	switch p.Category {
	case model.CategoryOther:
		return !IsClothingCatalog(item.CatalogID)
	case model.CategoryClothing:
		if !IsClothingCatalog(item.CatalogID) {
			return false
		}
		if p.Gender != model.GenderNone && CatalogGender(item.CatalogID) != p.Gender {
			return false
		}
		return sizeMatches(item.Size, p.Sizes)
	}
	return false
}

// sizeMatches compares a listing's size label against the wanted set,
// case-insensitively. Composite labels like "42 / 43" match on either
// component.
func sizeMatches(label string, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == "" {
		return false
	}
	parts := strings.Split(label, " / ")
	for _, w := range wanted {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if w == label {
			return true
		}
		for _, part := range parts {
			if w == part {
				return true
			}
		}
	}
	return false
}

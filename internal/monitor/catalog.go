package monitor

import (
	"fmt"
	"strconv"

	"vintedwatch/monitor-service/internal/model"
)

// Catalog identifiers used by the search endpoint. 1 and 5 are the roots of
// the women's and men's clothing trees.
const (
	catalogWomenClothing = 1
	catalogMenClothing   = 5
)

// CatalogParam returns the catalog_ids query value for a profile, or "" when
// the search should not be narrowed to a catalog branch. Only Clothing
// profiles with an explicit gender map to a catalog identifier.
func CatalogParam(p model.SearchProfile) string {
	if p.Category != model.CategoryClothing {
		return ""
	}
	switch p.Gender {
	case model.GenderMen:
		return strconv.Itoa(catalogMenClothing)
	case model.GenderWomen:
		return strconv.Itoa(catalogWomenClothing)
	}
	return ""
}

// IsClothingCatalog reports whether a catalog identifier belongs to one of
// the clothing trees.
func IsClothingCatalog(id int) bool {
	return id == catalogMenClothing || id == catalogWomenClothing
}

// CatalogGender maps a clothing catalog identifier to the gender branch it
// belongs to. Non-clothing identifiers map to GenderNone.
func CatalogGender(id int) model.Gender {
	switch id {
	case catalogMenClothing:
		return model.GenderMen
	case catalogWomenClothing:
		return model.GenderWomen
	}
	return model.GenderNone
}

// countryDomains maps a marketplace country code to its base URL.
var countryDomains = map[string]string{
	".hu":  "https://www.vinted.hu",
	".de":  "https://www.vinted.de",
	".fr":  "https://www.vinted.fr",
	".com": "https://www.vinted.com",
	".es":  "https://www.vinted.es",
}

// DomainForCountry resolves a country code such as ".hu" to the marketplace
// base URL for that country.
func DomainForCountry(code string) (string, error) {
	base, ok := countryDomains[code]
	if !ok {
		return "", fmt.Errorf("unsupported country code %q", code)
	}
	return base, nil
}

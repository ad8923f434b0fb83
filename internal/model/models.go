// Package model defines shared data structures for the monitor service.
package model

import (
	"fmt"
	"time"
)

// Category selects which part of the marketplace catalog a profile searches.
type Category string

const (
	CategoryClothing Category = "Clothing"
	CategoryOther    Category = "Other"
)

// ParseCategory converts a raw string to a Category, returning an error for
// unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	switch c {
	case CategoryClothing, CategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Gender narrows a Clothing search to one catalog branch. GenderNone means
// both branches are searched. It carries no meaning for CategoryOther.
type Gender string

const (
	GenderNone  Gender = ""
	GenderMen   Gender = "Men"
	GenderWomen Gender = "Women"
)

// ParseGender converts a raw string to a Gender. The empty string is valid
// and maps to GenderNone.
func ParseGender(s string) (Gender, error) {
	g := Gender(s)
	switch g {
	case GenderNone, GenderMen, GenderWomen:
		return g, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// Item is a normalised listing fetched from the marketplace catalog API.
// Immutable once fetched.
type Item struct {
	ID        string
	Title     string
	Price     string
	Currency  string
	Size      string
	Brand     string
	Status    string // condition label, e.g. "Very good"
	Seller    string
	URL       string
	PhotoURL  string
	CatalogID int
}

// SearchProfile is one monitored search: immutable filter criteria plus the
// runtime stats mutated by its poll cycle. The seen-item set lives in the
// dedup store, keyed by profile ID.
type SearchProfile struct {
	ID          string
	Name        string
	Enabled     bool
	Destination string // opaque routing key handed to the notifier (Telegram chat ID)
	Query       string
	Category    Category
	Gender      Gender   // meaningful only when Category == CategoryClothing
	Sizes       []string // size labels; empty = no size filter

	ItemsFound int
	LastRun    time.Time
}

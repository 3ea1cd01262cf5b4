package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/paulmach/orb"
)

// ErrRecordIncomplete is returned by BusinessRecord.Validate when a detail
// panel read does not meet the minimum quality bar.
var ErrRecordIncomplete = errors.New("record incomplete")

// minNameLength is the shortest business name accepted.
const minNameLength = 2

// Coordinates is a latitude/longitude pair. The pair is always present or
// absent as a whole on a BusinessRecord.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are inside their geographic ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Point returns the coordinates as an orb.Point ([lng, lat]).
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// BusinessRecord is one business read from a verified detail panel.
type BusinessRecord struct {
	Name        string       `json:"name"`
	Address     string       `json:"address,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Email       string       `json:"email,omitempty"`
	Website     string       `json:"website,omitempty"`
	Instagram   string       `json:"instagram,omitempty"`
	Facebook    string       `json:"facebook,omitempty"`
	Rating      *float64     `json:"rating,omitempty"`
	ReviewCount *int         `json:"review_count,omitempty"`
	Category    string       `json:"category,omitempty"`
	Location    *Coordinates `json:"location,omitempty"`
	ScrapedAt   time.Time    `json:"scraped_at"`
	SearchGroup string       `json:"search_group,omitempty"`
}

// RecordFields holds raw values read from a detail panel, before the record
// invariants are applied.
type RecordFields struct {
	Name        string
	Address     string
	Phone       string
	Email       string
	Website     string
	Instagram   string
	Facebook    string
	Category    string
	Rating      *float64
	ReviewCount *int
	Location    *Coordinates
	SearchGroup string
}

// NewBusinessRecord builds a record from extracted fields and stamps it with
// now. Social-network URLs found in the website slot are moved into their
// dedicated fields, and out-of-range values are dropped.
func NewBusinessRecord(f RecordFields, now time.Time) *BusinessRecord {
	rec := &BusinessRecord{
		Name:        strings.TrimSpace(f.Name),
		Address:     strings.TrimSpace(f.Address),
		Phone:       strings.TrimSpace(f.Phone),
		Email:       strings.TrimSpace(f.Email),
		Instagram:   strings.TrimSpace(f.Instagram),
		Facebook:    strings.TrimSpace(f.Facebook),
		Category:    strings.TrimSpace(f.Category),
		ScrapedAt:   now,
		SearchGroup: f.SearchGroup,
	}

	website := strings.TrimSpace(f.Website)
	switch SocialNetwork(website) {
	case SocialInstagram:
		if rec.Instagram == "" {
			rec.Instagram = website
		}
	case SocialFacebook:
		if rec.Facebook == "" {
			rec.Facebook = website
		}
	default:
		rec.Website = website
	}

	if f.Rating != nil && *f.Rating >= 0 && *f.Rating <= 5 {
		r := *f.Rating
		rec.Rating = &r
	}
	if f.ReviewCount != nil && *f.ReviewCount >= 0 {
		n := *f.ReviewCount
		rec.ReviewCount = &n
	}
	if f.Location != nil && f.Location.Valid() {
		loc := *f.Location
		rec.Location = &loc
	}
	return rec
}

// Validate applies the quality gate: a name of at least two characters and
// at least one of address or category. Anything less means the panel never
// finished loading.
func (r *BusinessRecord) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(r.Name)) < minNameLength {
		return fmt.Errorf("%w: name %q too short", ErrRecordIncomplete, r.Name)
	}
	if strings.TrimSpace(r.Address) == "" && strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: %q has neither address nor category", ErrRecordIncomplete, r.Name)
	}
	return nil
}

// Social network identifiers returned by SocialNetwork.
const (
	SocialInstagram = "instagram"
	SocialFacebook  = "facebook"
)

// SocialNetwork classifies a URL by substring match on its domain. It returns
// "" for anything that is not a known social network.
func SocialNetwork(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case lower == "":
		return ""
	case strings.Contains(lower, "instagram.com"):
		return SocialInstagram
	case strings.Contains(lower, "facebook.com"):
		return SocialFacebook
	}
	return ""
}

package models

import (
	"regexp"
	"strings"
)

// Summary holds aggregate counts over a set of records.
type Summary struct {
	Total                int            `json:"total"`
	WithValidPhone       int            `json:"with_valid_phone"`
	WithValidEmail       int            `json:"with_valid_email"`
	WithValidWebsite     int            `json:"with_valid_website"`
	WithValidCoordinates int            `json:"with_valid_coordinates"`
	WithRating           int            `json:"with_rating"`
	AverageRating        float64        `json:"average_rating"`
	UniqueCategories     int            `json:"unique_categories"`
	Groups               map[string]int `json:"groups,omitempty"`
	Extent               *Extent        `json:"extent,omitempty"`
}

// Extent is the bounding box of all records with valid coordinates.
type Extent struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// MinPhoneDigits is the digit count below which a phone is not considered
// structurally valid.
const MinPhoneDigits = 7

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidPhone reports whether phone carries at least minDigits digits.
func ValidPhone(phone string, minDigits int) bool {
	if phone == "" {
		return false
	}
	return CountDigits(phone) >= minDigits
}

// CountDigits returns the number of ASCII digits in s.
func CountDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ValidEmail reports whether email is RFC-shaped.
func ValidEmail(email string) bool {
	return email != "" && emailRe.MatchString(email)
}

// ValidURL reports whether u is an absolute http(s) URL.
func ValidURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

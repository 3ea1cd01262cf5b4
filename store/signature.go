package store

import (
	"fmt"
	"strings"

	"github.com/use-agent/mapleads/models"
)

// placeholderNames are values the source shows when a listing has no real name.
var placeholderNames = map[string]bool{
	"":           true,
	"n/a":        true,
	"-":          true,
	"sin nombre": true,
}

// Signature returns the identity key used for duplicate detection: the
// lower-cased, trimmed name and address. Records without a usable name fall
// back to their coordinates rounded to six decimals, or to their address and
// category when no coordinates are known. The result is never empty.
func Signature(r models.BusinessRecord) string {
	name := strings.ToLower(strings.TrimSpace(r.Name))
	if !placeholderNames[name] {
		return name + "|" + strings.ToLower(strings.TrimSpace(r.Address))
	}
	if r.Location != nil {
		return fmt.Sprintf("geo:%.6f,%.6f", r.Location.Lat, r.Location.Lng)
	}
	return "anon|" + strings.ToLower(strings.TrimSpace(r.Address)) + "|" + strings.ToLower(strings.TrimSpace(r.Category))
}

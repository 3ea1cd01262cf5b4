package store

import (
	"github.com/paulmach/orb"

	"github.com/use-agent/mapleads/models"
)

// Summarize computes aggregate counts over recs in a single pass. Phones
// count as valid with at least minPhoneDigits digits.
func Summarize(recs []models.BusinessRecord, minPhoneDigits int) models.Summary {
	s := models.Summary{Total: len(recs)}
	if len(recs) == 0 {
		return s
	}

	var (
		ratingSum  float64
		categories = make(map[string]struct{})
		groups     = make(map[string]int)
		bound      orb.Bound
		located    bool
	)
	for _, r := range recs {
		if models.ValidPhone(r.Phone, minPhoneDigits) {
			s.WithValidPhone++
		}
		if models.ValidEmail(r.Email) {
			s.WithValidEmail++
		}
		if models.ValidURL(r.Website) {
			s.WithValidWebsite++
		}
		if r.Location != nil && r.Location.Valid() {
			s.WithValidCoordinates++
			p := r.Location.Point()
			if !located {
				bound = p.Bound()
				located = true
			} else {
				bound = bound.Extend(p)
			}
		}
		if r.Rating != nil {
			s.WithRating++
			ratingSum += *r.Rating
		}
		if r.Category != "" {
			categories[r.Category] = struct{}{}
		}
		if r.SearchGroup != "" {
			groups[r.SearchGroup]++
		}
	}

	if s.WithRating > 0 {
		s.AverageRating = ratingSum / float64(s.WithRating)
	}
	s.UniqueCategories = len(categories)
	if len(groups) > 0 {
		s.Groups = groups
	}
	if located {
		s.Extent = &models.Extent{
			MinLat: bound.Min.Lat(),
			MinLng: bound.Min.Lon(),
			MaxLat: bound.Max.Lat(),
			MaxLng: bound.Max.Lon(),
		}
	}
	return s
}

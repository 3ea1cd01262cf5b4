package models

import (
	"errors"
	"testing"
	"time"
)

func TestNewBusinessRecord(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	bad, good := 7.5, 4.3
	neg := -3

	tests := []struct {
		name  string
		in    RecordFields
		check func(t *testing.T, r *BusinessRecord)
	}{
		{
			name: "instagram website rerouted",
			in:   RecordFields{Name: "Café Luna", Website: "https://www.instagram.com/cafeluna/"},
			check: func(t *testing.T, r *BusinessRecord) {
				if r.Website != "" || r.Instagram != "https://www.instagram.com/cafeluna/" {
					t.Errorf("Website = %q, Instagram = %q", r.Website, r.Instagram)
				}
			},
		},
		{
			name: "facebook website keeps explicit facebook",
			in:   RecordFields{Name: "Bar Sol", Website: "https://facebook.com/barsol2", Facebook: "https://facebook.com/barsol"},
			check: func(t *testing.T, r *BusinessRecord) {
				if r.Website != "" || r.Facebook != "https://facebook.com/barsol" {
					t.Errorf("Website = %q, Facebook = %q", r.Website, r.Facebook)
				}
			},
		},
		{
			name: "out of range values dropped",
			in: RecordFields{
				Name: "Bar Sol", Rating: &bad, ReviewCount: &neg,
				Location: &Coordinates{Lat: 95, Lng: -3.7},
			},
			check: func(t *testing.T, r *BusinessRecord) {
				if r.Rating != nil || r.ReviewCount != nil || r.Location != nil {
					t.Errorf("record = %+v, want rating, reviews and location dropped", r)
				}
			},
		},
		{
			name: "valid values kept and trimmed",
			in: RecordFields{
				Name: "  Café Luna ", Website: " https://cafeluna.com ", Rating: &good,
				Location: &Coordinates{Lat: 40.4168, Lng: -3.7038}, SearchGroup: "g",
			},
			check: func(t *testing.T, r *BusinessRecord) {
				if r.Name != "Café Luna" || r.Website != "https://cafeluna.com" || *r.Rating != 4.3 {
					t.Errorf("record = %+v", r)
				}
				if r.Location == nil || r.Location.Point().Lat() != 40.4168 || r.Location.Point().Lon() != -3.7038 {
					t.Errorf("Location = %+v", r.Location)
				}
				if !r.ScrapedAt.Equal(now) || r.SearchGroup != "g" {
					t.Errorf("ScrapedAt = %v, SearchGroup = %q", r.ScrapedAt, r.SearchGroup)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, NewBusinessRecord(tt.in, now))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		rec  BusinessRecord
		ok   bool
	}{
		{"name and address", BusinessRecord{Name: "Café Luna", Address: "Calle Mayor 1"}, true},
		{"name and category", BusinessRecord{Name: "Bar Sol", Category: "Bar"}, true},
		{"two rune name", BusinessRecord{Name: "Óx", Category: "Bar"}, true},
		{"name too short", BusinessRecord{Name: "A", Address: "Calle Mayor 1"}, false},
		{"blank name", BusinessRecord{Name: "   ", Category: "Bar"}, false},
		{"no address or category", BusinessRecord{Name: "Café Luna", Phone: "912 345 678"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrRecordIncomplete) {
				t.Errorf("Validate() = %v, want ErrRecordIncomplete", err)
			}
		})
	}
}

func TestSearchJob(t *testing.T) {
	job := SearchJob{Category: " restaurantes ", Location: "Madrid", MaxResults: 10}
	if got := job.Query("en"); got != "restaurantes en Madrid" {
		t.Errorf("Query() = %q", got)
	}
	if got := job.Query(""); got != "restaurantes Madrid" {
		t.Errorf("Query(\"\") = %q", got)
	}
	if got := job.Label(); got != "restaurantes_Madrid" {
		t.Errorf("Label() = %q", got)
	}
	if err := job.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	var se *ScrapeError
	if err := (SearchJob{Category: "bares", Location: "Sevilla"}).Validate(); !errors.As(err, &se) || se.Code != ErrCodeInvalidInput {
		t.Errorf("Validate(max 0) = %v, want INVALID_INPUT", err)
	}
}

func TestValidators(t *testing.T) {
	if !ValidPhone("+34 912 345 678", MinPhoneDigits) || ValidPhone("12-34", MinPhoneDigits) || ValidPhone("", 1) {
		t.Error("ValidPhone misclassified")
	}
	if !ValidEmail("info@cafeluna.com") || ValidEmail("info@cafeluna") || ValidEmail("") {
		t.Error("ValidEmail misclassified")
	}
	if !ValidURL("https://cafeluna.com") || ValidURL("cafeluna.com") {
		t.Error("ValidURL misclassified")
	}
}

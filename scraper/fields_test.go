package scraper

import (
	"context"
	"errors"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"Dirección: Calle Mayor 1, Madrid", "Calle Mayor 1, Madrid", true},
		{"Address: 10 Downing St", "10 Downing St", true},
		{"Adresse: 5 Rue de Rivoli", "5 Rue de Rivoli", true},
		{"Endereço: Av. Paulista 1000", "Av. Paulista 1000", true},
		{"Gran Vía 28", "Gran Vía 28", true},
		{"Dirección: ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := parseAddress(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseAddress(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPhoneParser(t *testing.T) {
	parse := phoneParser(7)
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"Teléfono: 912 34 56 78", "912 34 56 78", true},
		{"Phone: +1 (555) 123-4567", "+1 (555) 123-4567", true},
		{"Llamar al +34 912 345 678", "+34 912 345 678", true},
		{"Ext. 12", "", false},
		{"sin teléfono", "", false},
	}
	for _, tt := range tests {
		got, ok := parse(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("phone(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRatingAndReviews(t *testing.T) {
	ratings := map[string]string{
		"4,5 estrellas":    "4.5",
		"Rated 4.7 stars":  "4.7",
		"5 estrellas":      "5",
		"sin valoraciones": "",
	}
	for in, want := range ratings {
		got, ok := parseRating(in)
		if got != want || ok != (want != "") {
			t.Errorf("parseRating(%q) = %q, %v, want %q", in, got, ok, want)
		}
	}

	reviews := map[string]string{
		"(1.234)":       "1234",
		"2,501 reviews": "2501",
		"(87)":          "87",
		"ninguna":       "",
	}
	for in, want := range reviews {
		got, ok := parseReviews(in)
		if got != want || ok != (want != "") {
			t.Errorf("parseReviews(%q) = %q, %v, want %q", in, got, ok, want)
		}
	}
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		lat, lng float64
		ok       bool
	}{
		{"pin preferred", "https://www.google.com/maps/place/X/@10.5,20.5,17z/data=!3d-34.6037!4d-58.3816", -34.6037, -58.3816, true},
		{"center fallback", "https://www.google.com/maps/search/cafe/@40.4168,-3.7038,14z", 40.4168, -3.7038, true},
		{"out of range", "https://www.google.com/maps/@95.0,10.0,14z", 0, 0, false},
		{"none", "https://www.google.com/maps/search/cafe", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := parseCoordinates(tt.url)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (c.Lat != tt.lat || c.Lng != tt.lng) {
				t.Errorf("coords = %v,%v, want %v,%v", c.Lat, c.Lng, tt.lat, tt.lng)
			}
		})
	}
}

func TestParseMailto(t *testing.T) {
	tests := map[string]string{
		"mailto:info@cafeluna.com":             "info@cafeluna.com",
		"MAILTO:Ventas@Cafeluna.com?subject=x": "Ventas@Cafeluna.com",
		"mailto:":                              "",
		"https://cafeluna.com":                 "",
	}
	for in, want := range tests {
		got, ok := parseMailto(in)
		if ok != (want != "") || (ok && got != want) {
			t.Errorf("parseMailto(%q) = %q, %v, want %q", in, got, ok, want)
		}
	}
}

func TestTitleMatches(t *testing.T) {
	tests := []struct {
		expected, title string
		want            bool
	}{
		{"café luna", "Café Luna", true},
		{"café luna", "Café Luna - Centro", true},
		{"café luna centro histórico", "Café Luna", true},
		{"café luna", "Panadería Sol", false},
		{"", "Café Luna", true},
		{"café luna", "", false},
	}
	for _, tt := range tests {
		if got := titleMatches(tt.expected, tt.title); got != tt.want {
			t.Errorf("titleMatches(%q, %q) = %v, want %v", tt.expected, tt.title, got, tt.want)
		}
	}
}

func TestUsableTitle(t *testing.T) {
	for _, bad := range []string{"", "Resultados", "Results", "Google Maps", "Patrocinado", "Sponsored", "Anuncio", "Ad", "Patrocinado · Café"} {
		if usableTitle(bad) {
			t.Errorf("usableTitle(%q) = true, want false", bad)
		}
	}
	if !usableTitle("Adela's Bakery") {
		t.Error(`usableTitle("Adela's Bakery") = false, want true`)
	}
}

func TestReadField_FirstStrategyWins(t *testing.T) {
	s := newFakeSession()
	s.static["a"] = []Element{&fakeElement{text: "  "}}
	s.static["b"] = []Element{&fakeElement{text: "second"}}
	s.static["c"] = []Element{&fakeElement{text: "third"}}

	list := []FieldStrategy{
		{Name: "missing", Selector: "z"},
		{Name: "blank", Selector: "a"},
		{Name: "second", Selector: "b"},
		{Name: "third", Selector: "c"},
	}
	got, ok, err := readField(context.Background(), s, list)
	if err != nil || !ok || got != "second" {
		t.Errorf("readField() = %q, %v, %v, want second, true, nil", got, ok, err)
	}
}

func TestReadField_CancelledIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := readField(ctx, newFakeSession(), []FieldStrategy{{Name: "x", Selector: "x"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("readField() error = %v, want context.Canceled", err)
	}
}

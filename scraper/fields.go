package scraper

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/use-agent/mapleads/models"
)

// FieldStrategy is one named way of reading a field from the detail panel.
// Strategies for a field are tried in order; the first that yields a value
// wins.
type FieldStrategy struct {
	Name     string
	Selector string

	// Attr names the attribute to read. Empty reads the element text.
	Attr string

	// Parse turns the raw string into the field value. Nil accepts any
	// non-empty trimmed string.
	Parse func(string) (string, bool)
}

var (
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}`),
		regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`),
	}
	ratingRe    = regexp.MustCompile(`\d+[,.]?\d*`)
	reviewsRe   = regexp.MustCompile(`\d+`)
	pinCoordsRe = regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`)
	mapCenterRe = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
	textEmailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// addressPrefixes are the localized labels the panel puts in front of the
// address in its aria-label.
var addressPrefixes = []string{"Dirección: ", "Address: ", "Adresse: ", "Endereço: "}

func parseText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

func parseAddress(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, p := range addressPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}
	return s, s != ""
}

// phoneParser returns a parser that keeps the first pattern match carrying
// at least minDigits digits. International formats are tried first.
func phoneParser(minDigits int) func(string) (string, bool) {
	return func(s string) (string, bool) {
		for _, re := range phonePatterns {
			if m := strings.TrimSpace(re.FindString(s)); models.ValidPhone(m, minDigits) {
				return m, true
			}
		}
		return "", false
	}
}

// parseRating returns the first numeric token with a dot decimal separator.
func parseRating(s string) (string, bool) {
	m := ratingRe.FindString(s)
	if m == "" {
		return "", false
	}
	m = strings.Replace(m, ",", ".", 1)
	m = strings.TrimSuffix(m, ".")
	if _, err := strconv.ParseFloat(m, 64); err != nil {
		return "", false
	}
	return m, true
}

// parseReviews strips thousands separators and returns the first integer.
func parseReviews(s string) (string, bool) {
	s = strings.NewReplacer(".", "", ",", "").Replace(s)
	m := reviewsRe.FindString(s)
	return m, m != ""
}

func parseMailto(href string) (string, bool) {
	s := strings.TrimSpace(href)
	if len(s) < len("mailto:") || !strings.EqualFold(s[:len("mailto:")], "mailto:") {
		return "", false
	}
	s = s[len("mailto:"):]
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	return s, models.ValidEmail(s)
}

// findTextEmail returns the first email-shaped token in free text.
func findTextEmail(s string) (string, bool) {
	m := textEmailRe.FindString(s)
	return m, m != "" && models.ValidEmail(m)
}

// parseCoordinates reads the pin coordinates from a map URL, falling back
// to the viewport center.
func parseCoordinates(u string) (*models.Coordinates, bool) {
	m := pinCoordsRe.FindStringSubmatch(u)
	if m == nil {
		m = mapCenterRe.FindStringSubmatch(u)
	}
	if m == nil {
		return nil, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return nil, false
	}
	c := models.Coordinates{Lat: lat, Lng: lng}
	if !c.Valid() {
		return nil, false
	}
	return &c, true
}

// strategies builds a strategy list from selectors sharing attr and parse.
func strategies(name string, selectors []string, attr string, parse func(string) (string, bool)) []FieldStrategy {
	out := make([]FieldStrategy, len(selectors))
	for i, sel := range selectors {
		out[i] = FieldStrategy{
			Name:     name + "/" + strconv.Itoa(i),
			Selector: sel,
			Attr:     attr,
			Parse:    parse,
		}
	}
	return out
}

// readField runs strategies in order. Session errors count as misses
// unless they are fatal, in which case they are returned.
func readField(ctx context.Context, s Session, list []FieldStrategy) (string, bool, error) {
	for _, st := range list {
		els, err := s.Elements(ctx, st.Selector)
		if err != nil {
			if fatal(ctx, err) {
				return "", false, err
			}
			continue
		}
		if len(els) == 0 {
			continue
		}
		raw, ok := readRaw(els[0], st.Attr)
		if !ok {
			continue
		}
		parse := st.Parse
		if parse == nil {
			parse = parseText
		}
		if v, ok := parse(raw); ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

func readRaw(el Element, attr string) (string, bool) {
	if attr == "" {
		t, err := el.Text()
		return t, err == nil
	}
	v, ok, err := el.Attribute(attr)
	return v, ok && err == nil
}

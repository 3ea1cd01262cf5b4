package scraper

import (
	"context"
	"strings"
)

// titleBlacklist holds headings that belong to the results page or to ads
// rather than to a business panel.
var titleBlacklist = map[string]struct{}{
	"resultados":  {},
	"results":     {},
	"google maps": {},
	"patrocinado": {},
	"sponsored":   {},
	"anuncio":     {},
	"ad":          {},
}

// firstLine returns the first non-empty trimmed line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// usableTitle reports whether a heading can name a business.
func usableTitle(t string) bool {
	if t == "" {
		return false
	}
	if _, bad := titleBlacklist[strings.ToLower(t)]; bad {
		return false
	}
	return !strings.Contains(t, "Patrocinado") && !strings.Contains(t, "Sponsored")
}

// titleMatches compares the label read from the list item with the panel
// title. Either containing the other is a match; an empty label accepts
// any title.
func titleMatches(expected, title string) bool {
	if title == "" {
		return false
	}
	if expected == "" {
		return true
	}
	t := strings.ToLower(title)
	return strings.Contains(t, expected) || strings.Contains(expected, t)
}

// readTitle returns the first usable heading found by the title strategies,
// or "" when none is present yet.
func (d *DetailExtractor) readTitle(ctx context.Context) (string, error) {
	for _, sel := range d.sel.Title {
		els, err := d.session.Elements(ctx, sel)
		if err != nil {
			if fatal(ctx, err) {
				return "", err
			}
			continue
		}
		for _, el := range els {
			raw, err := el.Text()
			if err != nil || strings.TrimSpace(raw) == "" {
				raw, _, _ = el.Attribute("aria-label")
			}
			if line := firstLine(raw); usableTitle(line) {
				return line, nil
			}
		}
	}
	return "", nil
}

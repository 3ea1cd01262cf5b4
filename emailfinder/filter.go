package emailfinder

import (
	"regexp"
	"sort"
	"strings"
)

// maxEmailLength rejects tokens that are almost certainly not addresses.
const maxEmailLength = 100

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var (
	obfuscatedAt  = regexp.MustCompile(`(?i)\s*\\?[\[({]\s*(?:at|arroba)\s*\\?[\])}]\s*`)
	obfuscatedDot = regexp.MustCompile(`(?i)\s*\\?[\[({]\s*(?:dot|punto)\s*\\?[\])}]\s*`)
)

// deobfuscate rewrites "ventas [at] tienda (dot) com" to a plain address.
func deobfuscate(s string) string {
	s = obfuscatedAt.ReplaceAllString(s, "@")
	return obfuscatedDot.ReplaceAllString(s, ".")
}

// assetSuffixes catch file names like logo@2x.png that look like addresses.
var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

// placeholderDomains show up in templates, error trackers and site builders.
var placeholderDomains = []string{"example.com", "domain.com", "sentry.io", "wixpress.com"}

// priorityLocalParts are preferred, in no particular order, over personal
// addresses.
var priorityLocalParts = []string{"info", "contacto", "contact", "hola", "ventas", "admin"}

// Acceptable reports whether a candidate survives the junk filters.
func Acceptable(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	lower := strings.ToLower(email)
	for _, suf := range assetSuffixes {
		if strings.HasSuffix(lower, suf) {
			return false
		}
	}
	for _, d := range placeholderDomains {
		if strings.Contains(lower, d) {
			return false
		}
	}
	return true
}

// candidates accumulates unique acceptable addresses.
type candidates map[string]struct{}

func (c candidates) add(email string) {
	email = strings.Trim(strings.TrimSpace(email), ".")
	if Acceptable(email) {
		c[email] = struct{}{}
	}
}

// addText adds every address-shaped token in s.
func (c candidates) addText(s string) {
	for _, m := range emailRe.FindAllString(s, -1) {
		c.add(m)
	}
}

// addMailto adds the address of a mailto href.
func (c candidates) addMailto(href string) {
	s := strings.TrimSpace(href)
	if len(s) >= len("mailto:") && strings.EqualFold(s[:len("mailto:")], "mailto:") {
		s = s[len("mailto:"):]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	c.add(s)
}

// Select picks the best address: a priority local part first, then the
// shortest, then lexical order so the choice is deterministic.
func Select(emails []string) (string, bool) {
	if len(emails) == 0 {
		return "", false
	}
	sorted := append([]string(nil), emails...)
	sort.Slice(sorted, func(i, j int) bool {
		pi, pj := hasPriority(sorted[i]), hasPriority(sorted[j])
		if pi != pj {
			return pi
		}
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) < len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	return sorted[0], true
}

func (c candidates) best() (string, bool) {
	list := make([]string, 0, len(c))
	for e := range c {
		list = append(list, e)
	}
	return Select(list)
}

func hasPriority(email string) bool {
	lower := strings.ToLower(email)
	for _, p := range priorityLocalParts {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

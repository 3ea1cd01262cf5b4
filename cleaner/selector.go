package cleaner

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// SelectHTML parses rawHTML, matches elements against every selector group
// and returns the concatenated outer HTML of all matched elements, in
// selector order. Nested matches are rendered once.
//
// It returns "" when nothing matches.
func SelectHTML(rawHTML string, selectors []string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	seen := make(map[*html.Node]struct{})
	var buf bytes.Buffer
	for _, selector := range selectors {
		sel, err := cascadia.ParseGroup(selector)
		if err != nil {
			return "", err
		}
		for _, node := range cascadia.QueryAll(doc, sel) {
			if coveredBy(node, seen) {
				continue
			}
			seen[node] = struct{}{}
			if err := html.Render(&buf, node); err != nil {
				return "", err
			}
		}
	}
	return buf.String(), nil
}

// coveredBy reports whether node or one of its ancestors was already
// rendered.
func coveredBy(node *html.Node, seen map[*html.Node]struct{}) bool {
	for n := node; n != nil; n = n.Parent {
		if _, ok := seen[n]; ok {
			return true
		}
	}
	return false
}

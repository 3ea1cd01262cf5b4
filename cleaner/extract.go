package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/mapleads/models"
)

// Parse builds a goquery document from raw HTML. Callers that run several
// extractions over the same page parse once.
func Parse(rawHTML string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
}

// ExtractLinks separates the document's links into internal and external
// based on whether their host matches the source URL's host.
func ExtractLinks(doc *goquery.Document, sourceURL string) models.LinksResult {
	result := models.LinksResult{
		Internal: []models.Link{},
		External: []models.Link{},
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return result
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		// Resolve relative URLs against the base.
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}

		// Skip javascript:, mailto:, tel: etc.
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		absURL := resolved.String()

		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}

		text := strings.TrimSpace(s.Text())
		link := models.Link{Href: absURL, Text: text}

		if sameHost(resolved.Host, base.Host) {
			result.Internal = append(result.Internal, link)
		} else {
			result.External = append(result.External, link)
		}
	})

	return result
}

// sameHost compares hosts ignoring case and a leading "www.".
func sameHost(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b
}

// MailtoTargets returns the raw href of every mailto link, in document order.
func MailtoTargets(doc *goquery.Document) []string {
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if len(href) > len("mailto:") && strings.EqualFold(href[:len("mailto:")], "mailto:") {
			out = append(out, href)
		}
	})
	return out
}

// MetaContents returns the content attribute of every element matching the
// selectors, skipping empty values.
func MetaContents(doc *goquery.Document, selectors ...string) []string {
	var out []string
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if content, ok := s.Attr("content"); ok && strings.TrimSpace(content) != "" {
				out = append(out, content)
			}
		})
	}
	return out
}

// ScriptBlocks returns the bodies of script elements with the given type,
// e.g. "application/ld+json".
func ScriptBlocks(doc *goquery.Document, scriptType string) []string {
	var out []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if t, _ := s.Attr("type"); strings.EqualFold(strings.TrimSpace(t), scriptType) {
			if body := strings.TrimSpace(s.Text()); body != "" {
				out = append(out, body)
			}
		}
	})
	return out
}

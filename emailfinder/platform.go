package emailfinder

import "strings"

// Platform is a site family that needs a dedicated scan.
type Platform string

const (
	PlatformGeneric     Platform = ""
	PlatformShopify     Platform = "shopify"
	PlatformTiendanube  Platform = "tiendanube"
	PlatformWooCommerce Platform = "woocommerce"
	PlatformSocial      Platform = "social"
)

// socialHosts only expose contact data through page metadata.
var socialHosts = []string{"instagram.com", "facebook.com", "linktr.ee", "tiktok.com", "twitter.com", "x.com"}

// shopFooterSelectors are where store themes put contact details.
var shopFooterSelectors = []string{
	"footer",
	".footer",
	"#footer",
	".site-footer",
	".contact-info",
	".footer__content-top",
	"[class*='contact']",
}

// contactKeywords mark a link as leading to a contact page.
var contactKeywords = []string{"contact", "contacto", "about", "sobre-nosotros", "contactanos", "contact-us"}

// IsSocialHost reports whether host is, or is under, a social network domain.
func IsSocialHost(host string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for _, s := range socialHosts {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// DetectShop classifies a page by markers in its markup.
func DetectShop(rawHTML string) Platform {
	lower := strings.ToLower(rawHTML)
	switch {
	case strings.Contains(lower, "cdn.shopify.com"), strings.Contains(lower, "myshopify.com"):
		return PlatformShopify
	case strings.Contains(lower, "tiendanube"), strings.Contains(lower, "nuvemshop"):
		return PlatformTiendanube
	case strings.Contains(lower, "woocommerce"):
		return PlatformWooCommerce
	}
	return PlatformGeneric
}

// isContactLink reports whether an href or its anchor text looks like a
// contact page.
func isContactLink(href, text string) bool {
	href, text = strings.ToLower(href), strings.ToLower(text)
	for _, k := range contactKeywords {
		if strings.Contains(href, k) || strings.Contains(text, k) {
			return true
		}
	}
	return false
}

package emailfinder

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/mapleads/cleaner"
	"github.com/use-agent/mapleads/config"
	"github.com/use-agent/mapleads/engine"
)

// Finder looks for a contact address on a business website: the landing
// page first, then a store footer or a single contact page.
// It is safe for concurrent use.
type Finder struct {
	engine engine.Engine
	conv   *converter.Converter
	memory *engine.DomainMemory
	cfg    config.EmailConfig
	logger *slog.Logger
}

// New returns a Finder fetching through eng. A nil memory disables
// per-site remembering.
func New(eng engine.Engine, memory *engine.DomainMemory, cfg config.EmailConfig, logger *slog.Logger) *Finder {
	return &Finder{
		engine: eng,
		conv:   cleaner.NewTextConverter(),
		memory: memory,
		cfg:    cfg,
		logger: logger,
	}
}

// page is a fetched and parsed document.
type page struct {
	url  string
	html string
	doc  *goquery.Document
}

// Find returns the best contact address found for rawURL. A URL without a
// scheme is fetched over http. Failures are logged and reported as not
// found.
func (f *Finder) Find(ctx context.Context, rawURL string) (string, bool) {
	target := NormalizeURL(rawURL)
	if target == "" {
		return "", false
	}
	if f.memory != nil {
		if email, found, ok := f.memory.Get(target); ok {
			f.logger.Debug("email lookup remembered", "url", target, "found", found)
			return email, found
		}
	}

	email, found := f.find(ctx, target)
	if f.memory != nil && ctx.Err() == nil {
		f.memory.Set(target, email, found)
	}
	return email, found
}

func (f *Finder) find(ctx context.Context, target string) (string, bool) {
	home, err := f.fetch(ctx, target)
	if err != nil {
		f.logger.Debug("email fetch failed", "url", target, "error", err)
		return "", false
	}

	found := make(candidates)
	f.scanPage(home, found)
	if email, ok := found.best(); ok {
		return email, true
	}

	if u, err := url.Parse(home.url); err == nil && IsSocialHost(u.Hostname()) {
		return f.scanSocial(home, u.Hostname()).best()
	}

	if platform := DetectShop(home.html); platform != PlatformGeneric {
		f.logger.Debug("store platform detected", "url", home.url, "platform", platform)
		f.scanFooter(home, found)
		if email, ok := found.best(); ok {
			return email, true
		}
	}

	contact := contactURL(home)
	if contact == "" {
		return "", false
	}
	f.logger.Debug("following contact link", "url", contact)
	next, err := f.fetch(ctx, contact)
	if err != nil {
		f.logger.Debug("contact page fetch failed", "url", contact, "error", err)
		return "", false
	}
	f.scanPage(next, found)
	return found.best()
}

func (f *Finder) fetch(ctx context.Context, target string) (*page, error) {
	res, err := f.engine.Fetch(ctx, &engine.FetchRequest{
		URL:     target,
		Timeout: f.cfg.Timeout,
		MaxBody: f.cfg.MaxBodyBytes,
	})
	if err != nil {
		return nil, err
	}
	doc, err := cleaner.Parse(res.HTML)
	if err != nil {
		return nil, err
	}
	finalURL := res.FinalURL
	if finalURL == "" {
		finalURL = target
	}
	return &page{url: finalURL, html: res.HTML, doc: doc}, nil
}

// scanPage runs the three tiers over a page: mailto links, the raw markup
// and the rendered text. Results are merged.
func (f *Finder) scanPage(p *page, found candidates) {
	for _, href := range cleaner.MailtoTargets(p.doc) {
		found.addMailto(href)
	}
	found.addText(p.html)
	f.scanRendered(p.html, p.url, found)
}

func (f *Finder) scanRendered(rawHTML, pageURL string, found candidates) {
	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Host
	}
	text, err := cleaner.ToText(f.conv, rawHTML, domain)
	if err != nil {
		f.logger.Debug("render failed", "url", pageURL, "error", err)
		return
	}
	found.addText(text)
}

// scanFooter scans the blocks store themes use for contact details, undoing
// the "[at]"/"(dot)" spelling those themes use against harvesters. The
// rewrite is limited to these blocks; on a whole page it misreads prose.
func (f *Finder) scanFooter(p *page, found candidates) {
	block, err := cleaner.SelectHTML(p.html, shopFooterSelectors)
	if err != nil || block == "" {
		return
	}
	found.addText(deobfuscate(block))

	domain := ""
	if u, err := url.Parse(p.url); err == nil {
		domain = u.Host
	}
	text, err := cleaner.ToText(f.conv, block, domain)
	if err != nil {
		f.logger.Debug("render failed", "url", p.url, "error", err)
		return
	}
	found.addText(deobfuscate(text))
}

// scanSocial reads page metadata only. It runs after the page tiers found
// nothing, and profile pages are never traversed.
func (f *Finder) scanSocial(p *page, host string) candidates {
	found := make(candidates)
	for _, s := range cleaner.MetaContents(p.doc, "meta[name='description']", "meta[property='og:description']") {
		found.addText(s)
	}
	if strings.Contains(strings.ToLower(host), "instagram.com") {
		for _, s := range cleaner.ScriptBlocks(p.doc, "application/ld+json") {
			found.addText(s)
		}
	}
	return found
}

// contactURL returns the first same-host link that looks like a contact
// page, or "".
func contactURL(p *page) string {
	for _, l := range cleaner.ExtractLinks(p.doc, p.url).Internal {
		if l.Href == p.url {
			continue
		}
		if isContactLink(l.Href, l.Text) {
			return l.Href
		}
	}
	return ""
}

// NormalizeURL trims rawURL and prepends http:// when no scheme is given.
// It returns "" for input that cannot name a website.
func NormalizeURL(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(s), "http://") && !strings.HasPrefix(strings.ToLower(s), "https://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.String()
}

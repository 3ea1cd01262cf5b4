package cleaner

import (
	"strings"
	"testing"
)

const samplePage = `<html><head>
<meta name="description" content="Café Luna. Escríbenos a hola@cafeluna.com">
<meta property="og:description" content="Café de especialidad">
<script type="application/ld+json">{"email":"info@cafeluna.com"}</script>
<script>var x = "ignored@script.com";</script>
</head><body>
<nav><a href="/contacto">Contacto</a><a href="https://www.cafeluna.com/menu#top">Menú</a></nav>
<p>Reservas: reservas&#64;cafeluna.com &amp; más</p>
<a href="mailto:ventas@cafeluna.com?subject=Hola">Escríbenos</a>
<a href="https://instagram.com/cafeluna">IG</a>
<a href="javascript:void(0)">noop</a>
<footer class="site-footer"><div class="contact-info">Tel 912 345 678</div></footer>
</body></html>`

func TestExtractLinks(t *testing.T) {
	doc, err := Parse(samplePage)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	links := ExtractLinks(doc, "https://cafeluna.com/")

	if len(links.Internal) != 2 {
		t.Fatalf("len(Internal) = %d, want 2: %+v", len(links.Internal), links.Internal)
	}
	if links.Internal[0].Href != "https://cafeluna.com/contacto" || links.Internal[0].Text != "Contacto" {
		t.Errorf("Internal[0] = %+v", links.Internal[0])
	}
	if links.Internal[1].Href != "https://www.cafeluna.com/menu" {
		t.Errorf("Internal[1].Href = %q, want fragment stripped", links.Internal[1].Href)
	}
	if len(links.External) != 1 || links.External[0].Href != "https://instagram.com/cafeluna" {
		t.Errorf("External = %+v", links.External)
	}
}

func TestMetaScriptsAndMailto(t *testing.T) {
	doc, err := Parse(samplePage)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	meta := MetaContents(doc, "meta[name='description']", "meta[property='og:description']")
	if len(meta) != 2 || !strings.Contains(meta[0], "hola@cafeluna.com") {
		t.Errorf("MetaContents() = %v", meta)
	}

	blocks := ScriptBlocks(doc, "application/ld+json")
	if len(blocks) != 1 || !strings.Contains(blocks[0], "info@cafeluna.com") {
		t.Errorf("ScriptBlocks() = %v", blocks)
	}

	mailto := MailtoTargets(doc)
	if len(mailto) != 1 || mailto[0] != "mailto:ventas@cafeluna.com?subject=Hola" {
		t.Errorf("MailtoTargets() = %v", mailto)
	}
}

func TestToTextDecodesEntities(t *testing.T) {
	text, err := ToText(NewTextConverter(), samplePage, "cafeluna.com")
	if err != nil {
		t.Fatalf("ToText() error = %v", err)
	}
	if !strings.Contains(text, "reservas@cafeluna.com") {
		t.Errorf("ToText() missing decoded address:\n%s", text)
	}
	if strings.Contains(text, "ignored@script.com") {
		t.Error("ToText() kept script content")
	}
}

func TestSelectHTML(t *testing.T) {
	out, err := SelectHTML(samplePage, []string{"footer, .footer", ".contact-info"})
	if err != nil {
		t.Fatalf("SelectHTML() error = %v", err)
	}
	if strings.Count(out, "912 345 678") != 1 {
		t.Errorf("SelectHTML() rendered nested match twice or not at all:\n%s", out)
	}

	none, err := SelectHTML(samplePage, []string{"#nothing"})
	if err != nil || none != "" {
		t.Errorf("SelectHTML(no match) = %q, %v, want empty", none, err)
	}

	if _, err := SelectHTML(samplePage, []string{"[[bad"}); err == nil {
		t.Error("SelectHTML(invalid) error = nil")
	}
}

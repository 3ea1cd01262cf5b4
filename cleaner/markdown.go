package cleaner

import (
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// NewTextConverter creates a reusable, goroutine-safe Converter that renders
// a page roughly the way a reader sees it:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta and
//     comments, so addresses hidden in markup do not reappear.
//   - commonmark plugin: headings, lists, links and emphasis.
//   - table plugin: contact details often sit in footer tables.
func NewTextConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToText renders htmlContent to readable text with entities decoded.
//
// The domain parameter resolves relative link targets so mailto links and
// absolute URLs survive in the output.
func ToText(conv *converter.Converter, htmlContent string, domain string) (string, error) {
	md, err := conv.ConvertString(htmlContent, converter.WithDomain(domain))
	if err != nil {
		return "", err
	}
	// Markdown escapes underscores and dots in some positions; undo that so
	// addresses like first_last@host read intact.
	md = strings.NewReplacer(`\_`, "_", `\.`, ".", `\-`, "-").Replace(md)
	return html.UnescapeString(md), nil
}

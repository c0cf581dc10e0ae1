package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractReadable reduces an HTML page to plain article text: the title as
// a heading, then paragraph-ish block text with script/style/nav noise
// removed. Used only in direct mode; a reader endpoint already returns
// markdown.
func extractReadable(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, nav, header, footer, aside, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}

	scope := doc.Find("article").First()
	if scope.Length() == 0 {
		scope = doc.Find("main").First()
	}
	if scope.Length() == 0 {
		scope = doc.Find("body").First()
	}

	var blocks []string
	scope.Find("h1, h2, h3, p, li, pre, blockquote").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			blocks = append(blocks, text)
		}
	})

	var b strings.Builder
	if title != "" {
		b.WriteString("# ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString(strings.Join(blocks, "\n\n"))
	return b.String(), nil
}

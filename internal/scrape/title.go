package scrape

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxTitleRunes bounds the title shown in captions.
const maxTitleRunes = 200

// PageTitle returns the trimmed text of the document's first <title>
// element, or "" when there is none or the body cannot be parsed.
func PageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes]) + "…"
	}
	return title
}

package pageinsight

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bahjat/seo-audit/internal/model"
	"github.com/Bahjat/seo-audit/internal/scoring"
)

var doctypeMarker = []byte("<!doctype")

// ExtractSignals reads the SEO-relevant facts from a parsed page. body is
// the raw markup the document was parsed from.
func ExtractSignals(doc *goquery.Document, body []byte) scoring.Signals {
	s := scoring.Signals{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaContent(doc, "description"),
		Author:      metaContent(doc, "author"),
		Keywords:    metaContent(doc, "keywords"),
		Canonical:   strings.TrimSpace(doc.Find(`link[rel="canonical"]`).First().AttrOr("href", "")),
		Headers:     headings(doc),
		H1:          strings.ReplaceAll(strings.TrimSpace(doc.Find("body h1").First().Text()), "\n", ""),
		H1Count:     doc.Find("h1").Length(),
		HasDoctype:  bytes.Contains(bytes.ToLower(body), doctypeMarker),
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		s.ImagesTotal++
		if img.AttrOr("alt", "") != "" || img.AttrOr("title", "") != "" {
			return
		}
		s.MissingAlt = append(s.MissingAlt, img.AttrOr("src", ""))
	})

	return s
}

// metaContent returns the content of the first <meta> whose name matches,
// ignoring case.
func metaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta[name]").EachWithBreak(func(_ int, m *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(m.AttrOr("name", "")), name) {
			return true
		}
		content = strings.TrimSpace(m.AttrOr("content", ""))
		return false
	})
	return content
}

// headings collects the trimmed text of every heading in the body, in
// document order. Every level is present, possibly empty.
func headings(doc *goquery.Document) map[string][]string {
	out := make(map[string][]string, len(model.HeadingLevels))
	for _, level := range model.HeadingLevels {
		texts := []string{}
		doc.Find("body " + level).Each(func(_ int, h *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(h.Text()))
		})
		out[level] = texts
	}
	return out
}

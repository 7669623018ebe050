package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractText converts an HTML fragment into plain text, dropping
// script, style, meta, and link elements and collapsing whitespace.
// Invalid markup is treated as best-effort; an empty string is returned
// when nothing parseable remains.
func ExtractText(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Clean(html)
	}
	doc.Find("script, style, meta, link").Remove()

	text := doc.Text()

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// ExtractImageURLs returns the absolute image URLs referenced by an
// HTML fragment.
func ExtractImageURLs(html string) []string {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if ok && (strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")) {
			urls = append(urls, src)
		}
	})
	return urls
}

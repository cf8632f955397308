package utils

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// linkImages replaces every img element with a link to its source, labelled
// with the alt text or the URL.
func linkImages(htmlStr string) string {
	if !strings.Contains(htmlStr, "<img") {
		return htmlStr
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			s.Remove()
			return
		}
		label := strings.TrimSpace(s.AttrOr("alt", ""))
		if label == "" {
			label = src
		}
		s.ReplaceWithHtml(`<a href="` + html.EscapeString(src) + `">` + html.EscapeString(label) + `</a>`)
	})

	// goquery wraps fragments in a full document; keep the body only.
	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlStr
	}
	return out
}

// Excerpt returns the plain text of rendered HTML, cut to at most n runes
// on a word boundary.
func Excerpt(htmlStr string, n int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}

	runes := []rune(text)[:n]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

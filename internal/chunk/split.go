package chunk

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	hrTag      = regexp.MustCompile(`(?i)<hr\b[^>]*>`)
	looksHTML  = regexp.MustCompile(`(?i)</?[a-z][a-z0-9]*[\s>/]`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// SplitByHR splits raw HTML at every <hr> tag and drops blank parts.
func SplitByHR(markup string) []string {
	var out []string
	for _, part := range hrTag.Split(markup, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitByTable cuts the top-level body content after each <table>, so that
// every part but the last ends in exactly one table.
func SplitByTable(markup string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return []string{markup}
	}

	var parts []string
	var sb strings.Builder
	flush := func() {
		if strings.TrimSpace(sb.String()) != "" {
			parts = append(parts, sb.String())
		}
		sb.Reset()
	}

	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		if err := html.Render(&sb, s.Nodes[0]); err != nil {
			return
		}
		if goquery.NodeName(s) == "table" {
			flush()
		}
	})
	flush()

	return parts
}

// SplitHTML applies SplitByHR and then SplitByTable to each block.
func SplitHTML(markup string) []string {
	var out []string
	for _, block := range SplitByHR(markup) {
		out = append(out, SplitByTable(block)...)
	}
	return out
}

// PlainText converts inline HTML to Markdown text so that line structure
// survives for sentence splitting. Input without markup is returned trimmed.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if !looksHTML.MatchString(s) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		doc, derr := goquery.NewDocumentFromReader(strings.NewReader(s))
		if derr != nil {
			return s
		}
		return cleanText(doc.Text())
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(md, "\n\n"))
}

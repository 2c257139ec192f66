// Package chunk splits source documents into ordered table and text segments.
package chunk

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

// maxPrecedingParagraphs bounds the context carried by a table segment.
const maxPrecedingParagraphs = 2

var spaceRun = regexp.MustCompile(`\s+`)

// Chunker implements domain.Chunker for every supported document type.
type Chunker struct{}

// New returns a Chunker.
func New() *Chunker {
	return &Chunker{}
}

// Chunk splits content according to docType. Segment indices are stable
// positions within the document and increase in document order.
func (c *Chunker) Chunk(content string, docType domain.DocType) ([]domain.RawSegment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.ValidationError("cannot chunk document", domain.ErrEmptyDocument)
	}

	switch docType {
	case domain.DocTypeFiling10K, domain.DocTypeFiling10Q:
		return chunkFiling(content)
	case domain.DocTypeEarningsCall:
		return chunkEarnings(content)
	case domain.DocTypeFiling8K, domain.DocTypeFilingDEF14A:
		return chunkJSON(content)
	case domain.DocTypePlain:
		return chunkLines(content), nil
	default:
		return nil, domain.ValidationError("cannot chunk document", fmt.Errorf("%w: %q", domain.ErrUnknownDocType, docType))
	}
}

// chunkFiling emits <p> and <table> elements in document order. Paragraphs
// inside tables belong to the table. Each table carries the paragraphs and
// headings right before it as context.
func chunkFiling(content string) ([]domain.RawSegment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, domain.ParseError("parse filing html", err)
	}

	var segments []domain.RawSegment
	var recent []string
	idx := 0

	doc.Find("p, table, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("table").Length() > 0 {
			return
		}
		name := goquery.NodeName(s)
		text := cleanText(s.Text())

		switch name {
		case "table":
			if text != "" {
				markup, err := goquery.OuterHtml(s)
				if err == nil {
					segments = append(segments, domain.RawSegment{
						Index:         idx,
						Kind:          domain.SegmentTable,
						Content:       markup,
						PrecedingText: strings.Join(recent, "\n"),
					})
				}
			}
			recent = recent[:0]
			idx++
		case "p":
			if text != "" {
				segments = append(segments, domain.RawSegment{Index: idx, Kind: domain.SegmentText, Content: text})
				recent = remember(recent, text)
			}
			idx++
		default:
			// headings only feed table context
			if text != "" {
				recent = remember(recent, text)
			}
		}
	})

	return segments, nil
}

// chunkEarnings emits speaker lines (<strong>, formatted "name - role") and
// speech paragraphs in document order.
func chunkEarnings(content string) ([]domain.RawSegment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, domain.ParseError("parse transcript html", err)
	}

	var segments []domain.RawSegment
	doc.Find("strong, p").Each(func(idx int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if text == "" {
			return
		}

		if goquery.NodeName(s) == "strong" {
			segments = append(segments, domain.RawSegment{Index: idx, Kind: domain.SegmentText, Content: formatSpeaker(text)})
			return
		}

		// a paragraph that only wraps the speaker line was already emitted
		if strong := s.Find("strong"); strong.Length() == 1 && cleanText(strong.Text()) == text {
			return
		}
		segments = append(segments, domain.RawSegment{Index: idx, Kind: domain.SegmentText, Content: text})
	})

	return segments, nil
}

func formatSpeaker(text string) string {
	parts := strings.Split(text, " - ")
	if len(parts) < 2 {
		return text
	}
	return strings.TrimSpace(parts[0]) + " - " + strings.TrimSpace(parts[1])
}

// chunkJSON reads a JSON list of objects and emits each non-empty "content".
// Content holding table markup is split at <hr> and after every table so
// that each table becomes its own segment.
func chunkJSON(content string) ([]domain.RawSegment, error) {
	var items []map[string]any
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, domain.ParseError("parse filing json", err)
	}

	var segments []domain.RawSegment
	idx := 0
	for _, item := range items {
		body, _ := item["content"].(string)
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}

		if !hasTable(body) {
			segments = append(segments, domain.RawSegment{Index: idx, Kind: domain.SegmentText, Content: PlainText(body)})
			idx++
			continue
		}

		for _, block := range SplitHTML(body) {
			seg, ok := blockSegment(block)
			if !ok {
				continue
			}
			seg.Index = idx
			segments = append(segments, seg)
			idx++
		}
	}
	return segments, nil
}

// chunkLines emits one text segment per non-blank line, indexed by line number.
func chunkLines(content string) []domain.RawSegment {
	var segments []domain.RawSegment
	for idx, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		segments = append(segments, domain.RawSegment{Index: idx, Kind: domain.SegmentText, Content: line})
	}
	return segments
}

// blockSegment turns one block of SplitHTML output into a segment. A block
// ending in a table becomes a table segment whose preceding text is the
// prose before it.
func blockSegment(block string) (domain.RawSegment, bool) {
	if !hasTable(block) {
		text := PlainText(block)
		return domain.RawSegment{Kind: domain.SegmentText, Content: text}, text != ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(block))
	if err != nil {
		return domain.RawSegment{}, false
	}
	tbl := doc.Find("table").First()
	markup, err := goquery.OuterHtml(tbl)
	if err != nil || cleanText(tbl.Text()) == "" {
		return domain.RawSegment{}, false
	}
	tbl.Remove()

	return domain.RawSegment{
		Kind:          domain.SegmentTable,
		Content:       markup,
		PrecedingText: cleanText(doc.Text()),
	}, true
}

func hasTable(s string) bool {
	return strings.Contains(strings.ToLower(s), "<table")
}

func cleanText(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

func remember(recent []string, text string) []string {
	recent = append(recent, text)
	if len(recent) > maxPrecedingParagraphs {
		recent = recent[len(recent)-maxPrecedingParagraphs:]
	}
	return recent
}

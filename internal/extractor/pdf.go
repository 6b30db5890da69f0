package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const (
	minReadableRunes = 20
	minReadableShare = 0.6
	// columnGap is the horizontal distance (in points) treated as a column break.
	columnGap = 15.0
)

var errUnreadablePDF = errors.New("no readable text in PDF; it may be scanned or use custom font encodings")

// pdfDoc is an upload as the strategies see it. reader is nil when the
// library could not open the file.
type pdfDoc struct {
	data   []byte
	reader *pdf.Reader
}

// pdfStrategies are tried in order until one yields readable text. Row
// grouping keeps statement tables intact best; the raw stream scan is last
// because it knows nothing about layout.
var pdfStrategies = []struct {
	name string
	read func(doc pdfDoc) []string
}{
	{"rows", libraryPages(rowPages)},
	{"positions", libraryPages(positionPages)},
	{"plain", libraryPages(plainPages)},
	{"raw streams", rawStreamPages},
}

// extractPDF returns the text of each page.
func extractPDF(data []byte) ([]string, error) {
	doc := pdfDoc{data: data}
	r, openErr := openPDF(data)
	if openErr == nil {
		doc.reader = r
	}

	for _, s := range pdfStrategies {
		if pages := runStrategy(s.read, doc); isReadableText(pages) {
			return pages, nil
		}
	}
	if openErr != nil {
		return nil, openErr
	}
	return nil, fmt.Errorf("%w (%d pages)", errUnreadablePDF, r.NumPage())
}

func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("PDF reader panicked: %v", p)
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	if r.NumPage() == 0 {
		return nil, errors.New("PDF has no pages")
	}
	return r, nil
}

// runStrategy counts a panicking strategy as one that found nothing.
func runStrategy(read func(pdfDoc) []string, doc pdfDoc) (pages []string) {
	defer func() {
		if recover() != nil {
			pages = nil
		}
	}()
	return read(doc)
}

func libraryPages(read func(r *pdf.Reader) []string) func(pdfDoc) []string {
	return func(doc pdfDoc) []string {
		if doc.reader == nil {
			return nil
		}
		return read(doc.reader)
	}
}

// rowPages joins the words of each text row with single spaces.
func rowPages(r *pdf.Reader) []string {
	out := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		text := make([]string, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			text = appendNonEmpty(text, strings.Join(words, " "))
		}
		out = append(out, strings.Join(text, "\n"))
	}
	return out
}

// positionPages rebuilds lines from glyph coordinates: pieces sharing a
// rounded Y form a line, top to bottom, left to right. Space glyphs are
// kept so words stay apart.
func positionPages(r *pdf.Reader) []string {
	type glyph struct {
		x, y float64
		s    string
	}

	out := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		var glyphs []glyph
		for _, t := range p.Content().Text {
			if t.S != "" {
				glyphs = append(glyphs, glyph{x: t.X, y: math.Round(t.Y), s: t.S})
			}
		}
		if len(glyphs) == 0 {
			continue
		}
		// PDF Y grows upwards.
		sort.SliceStable(glyphs, func(a, b int) bool {
			if glyphs[a].y != glyphs[b].y {
				return glyphs[a].y > glyphs[b].y
			}
			return glyphs[a].x < glyphs[b].x
		})

		var text []string
		var line strings.Builder
		for j, g := range glyphs {
			if j > 0 {
				prev := glyphs[j-1]
				switch {
				case g.y != prev.y:
					text = appendNonEmpty(text, line.String())
					line.Reset()
				case g.x-prev.x > columnGap:
					line.WriteString("  ")
				}
			}
			line.WriteString(g.s)
		}
		text = appendNonEmpty(text, line.String())
		out = append(out, strings.Join(text, "\n"))
	}
	return out
}

// plainPages is the library's whole-document text as a single page.
func plainPages(r *pdf.Reader) []string {
	rd, err := r.GetPlainText()
	if err != nil {
		return nil
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil
	}
	return []string{strings.TrimSpace(string(b))}
}

func appendNonEmpty(lines []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		return append(lines, s)
	}
	return lines
}

// isReadableText rejects empty output and the symbol soup produced by
// identity-encoded fonts.
func isReadableText(pages []string) bool {
	var runes, readable int
	for _, page := range pages {
		for _, c := range strings.TrimSpace(page) {
			runes++
			if isReadableRune(c) {
				readable++
			}
		}
	}
	return runes >= minReadableRunes && float64(readable)/float64(runes) > minReadableShare
}

// isReadableRune accepts printable ASCII, whitespace and the currency
// symbols statements commonly use.
func isReadableRune(c rune) bool {
	switch c {
	case '₹', '€', '£':
		return true
	}
	return c < unicode.MaxASCII && (unicode.IsPrint(c) || unicode.IsSpace(c))
}

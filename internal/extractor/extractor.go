// Package extractor turns an uploaded statement (PDF or plain text) into a
// single string of line-separated text.
package extractor

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/insightdelivered/finfeex/internal/models"
)

var (
	// ErrEmptyInput is returned for a zero-length upload.
	ErrEmptyInput = errors.New("empty statement")
	// ErrTooLarge is returned when the upload exceeds the configured limit.
	ErrTooLarge = errors.New("statement exceeds upload limit")
)

var pdfMagic = []byte("%PDF-")

// Result is the text extracted from one upload.
type Result struct {
	Text   string
	Source models.SourceKind
	Pages  int
	// PDFError is set when the upload looked like a PDF but the PDF reader
	// failed and the text fallback was used instead.
	PDFError error
}

// Extractor extracts text with an optional size limit (0 = unlimited).
type Extractor struct {
	MaxBytes int64
}

// New returns an Extractor that rejects uploads larger than maxBytes.
func New(maxBytes int64) *Extractor {
	return &Extractor{MaxBytes: maxBytes}
}

// Extract reads a PDF when the data or file name says it is one, and
// otherwise (or when PDF reading fails) decodes the bytes as UTF-8,
// replacing invalid sequences. Only empty or oversized input is an error.
func (e *Extractor) Extract(name string, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrEmptyInput
	}
	if e.MaxBytes > 0 && int64(len(data)) > e.MaxBytes {
		return Result{}, ErrTooLarge
	}

	if IsPDF(name, data) {
		pages, err := extractPDF(data)
		if err == nil {
			return Result{
				Text:   strings.Join(pages, "\n"),
				Source: models.SourcePDF,
				Pages:  len(pages),
			}, nil
		}
		res := decodeText(data)
		res.PDFError = err
		return res, nil
	}

	return decodeText(data), nil
}

// Extract is a convenience wrapper around an unlimited Extractor.
func Extract(name string, data []byte) (Result, error) {
	return (&Extractor{}).Extract(name, data)
}

// IsPDF reports whether the upload should be treated as a PDF.
func IsPDF(name string, data []byte) bool {
	if bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func decodeText(data []byte) Result {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return Result{Text: text, Source: models.SourceText}
}

// Preview returns the first n runes of text, followed by "..." when the
// text was cut.
func Preview(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

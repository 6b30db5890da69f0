package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
)

const (
	// wordGapKerning is the TJ adjustment (thousandths of an em) below which
	// two pieces of text are read as separate words.
	wordGapKerning = -200
	// maxInflatedStream caps a single decompressed stream.
	maxInflatedStream = 16 << 20
)

var (
	streamKeyword    = []byte("stream")
	endstreamKeyword = []byte("endstream")
)

// rawStreamPages reads text straight from the file's content streams.
// Flate streams are inflated and the ToUnicode maps of every font are
// merged to decode the show-text operands, which recovers Type0 fonts the
// library cannot map and files whose cross-reference table is broken.
// Each content stream with text becomes one page.
func rawStreamPages(doc pdfDoc) []string {
	streams := pdfStreams(doc.data)
	cmap := collectToUnicode(streams)

	var pages []string
	for _, s := range streams {
		if isCMapStream(s) {
			continue
		}
		pages = appendNonEmpty(pages, contentText(s, cmap))
	}
	return pages
}

// pdfStreams returns the body of every stream object, inflated when it is
// zlib compressed.
func pdfStreams(data []byte) [][]byte {
	var out [][]byte
	rest := data
	for {
		i := bytes.Index(rest, streamKeyword)
		if i < 0 {
			return out
		}
		if bytes.HasSuffix(rest[:i], []byte("end")) {
			rest = rest[i+len(streamKeyword):]
			continue
		}

		body := skipEOL(rest[i+len(streamKeyword):])
		end := bytes.Index(body, endstreamKeyword)
		if end < 0 {
			return out
		}
		if end > 0 {
			out = append(out, inflate(body[:end]))
		}
		rest = body[end+len(endstreamKeyword):]
	}
}

func skipEOL(b []byte) []byte {
	if len(b) > 0 && b[0] == '\r' {
		b = b[1:]
	}
	if len(b) > 0 && b[0] == '\n' {
		b = b[1:]
	}
	return b
}

// inflate returns b decompressed, or b itself when it is not zlib data.
// A truncated stream keeps whatever was inflated before the error.
func inflate(b []byte) []byte {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return b
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxInflatedStream))
	if err != nil && len(out) == 0 {
		return b
	}
	return out
}

// contentText interprets the text operators of one content stream. A new
// line starts at ET, T*, ' and " and at any Td, TD or Tm that moves
// vertically; horizontal moves become a space.
func contentText(content []byte, cmap *toUnicode) string {
	if !bytes.Contains(content, []byte("BT")) {
		return ""
	}

	var (
		lines   []string
		line    strings.Builder
		shown   []string
		nums    []float64
		inText  bool
		inArray bool
		lastY   float64
		haveY   bool
	)
	newLine := func() {
		lines = appendNonEmpty(lines, line.String())
		line.Reset()
	}
	gap := func() {
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
	}

	sc := &contentScanner{data: content}
	for tok, ok := sc.next(); ok; tok, ok = sc.next() {
		switch tok.kind {
		case tokString:
			shown = append(shown, cmap.decode(tok.bytes))
		case tokNumber:
			if inArray && tok.num < wordGapKerning {
				shown = append(shown, " ")
			}
			nums = append(nums, tok.num)
		case tokArrayOpen:
			inArray = true
		case tokArrayClose:
			inArray = false
		case tokOperator:
			switch string(tok.bytes) {
			case "BT":
				inText, haveY = true, false
			case "ET":
				inText = false
				newLine()
			case "T*":
				newLine()
			case "Td", "TD":
				if len(nums) >= 2 && nums[len(nums)-1] != 0 {
					newLine()
					haveY = false
				} else {
					gap()
				}
			case "Tm":
				if len(nums) >= 6 {
					if y := nums[len(nums)-1]; haveY && y == lastY {
						gap()
					} else {
						newLine()
						lastY, haveY = y, true
					}
				}
			case "'", "\"":
				newLine()
				fallthrough
			case "Tj", "TJ":
				if inText {
					for _, s := range shown {
						line.WriteString(s)
					}
				}
			case "ID":
				sc.skipInlineImage()
			}
			shown, nums = shown[:0], nums[:0]
		}
	}
	newLine()
	return strings.Join(lines, "\n")
}

type tokenKind int

const (
	tokOther tokenKind = iota
	tokString
	tokNumber
	tokOperator
	tokArrayOpen
	tokArrayClose
)

type token struct {
	kind  tokenKind
	bytes []byte
	num   float64
}

// contentScanner splits content streams and CMaps into tokens. Names,
// dictionaries and procedures come back as tokOther.
type contentScanner struct {
	data []byte
	pos  int
}

func (s *contentScanner) next() (token, bool) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return token{}, false
	}

	switch s.data[s.pos] {
	case '(':
		return token{kind: tokString, bytes: s.literal()}, true
	case '<':
		if s.peek(1) == '<' {
			s.pos += 2
			return token{kind: tokOther}, true
		}
		return token{kind: tokString, bytes: s.hexString()}, true
	case '>':
		s.pos++
		if s.peek(0) == '>' {
			s.pos++
		}
		return token{kind: tokOther}, true
	case '[':
		s.pos++
		return token{kind: tokArrayOpen}, true
	case ']':
		s.pos++
		return token{kind: tokArrayClose}, true
	case '/':
		s.pos++
		s.word()
		return token{kind: tokOther}, true
	}

	w := s.word()
	if len(w) == 0 {
		// stray ')' '{' '}'
		s.pos++
		return token{kind: tokOther}, true
	}
	if v, err := strconv.ParseFloat(string(w), 64); err == nil {
		return token{kind: tokNumber, num: v}, true
	}
	return token{kind: tokOperator, bytes: w}, true
}

func (s *contentScanner) peek(n int) byte {
	if s.pos+n < len(s.data) {
		return s.data[s.pos+n]
	}
	return 0
}

func (s *contentScanner) skipSpace() {
	for s.pos < len(s.data) {
		switch c := s.data[s.pos]; {
		case isPDFSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *contentScanner) word() []byte {
	start := s.pos
	for s.pos < len(s.data) && !isPDFSpace(s.data[s.pos]) && !isPDFDelimiter(s.data[s.pos]) {
		s.pos++
	}
	return s.data[start:s.pos]
}

// literal reads a (string) with balanced parentheses and escapes.
func (s *contentScanner) literal() []byte {
	var out []byte
	depth := 0
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				return out
			}
		case '\\':
			out = s.escape(out)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *contentScanner) escape(out []byte) []byte {
	if s.pos >= len(s.data) {
		return out
	}
	c := s.data[s.pos]
	s.pos++

	switch c {
	case 'n':
		return append(out, '\n')
	case 'r':
		return append(out, '\r')
	case 't':
		return append(out, '\t')
	case 'b':
		return append(out, '\b')
	case 'f':
		return append(out, '\f')
	case '\r':
		if s.peek(0) == '\n' {
			s.pos++
		}
		return out
	case '\n':
		return out
	}

	if c >= '0' && c <= '7' {
		v := int(c - '0')
		for i := 0; i < 2 && s.peek(0) >= '0' && s.peek(0) <= '7'; i++ {
			v = v*8 + int(s.data[s.pos]-'0')
			s.pos++
		}
		return append(out, byte(v))
	}
	// \( \) \\ and unknown escapes keep the character
	return append(out, c)
}

// hexString reads a <hex string>. Whitespace is ignored and an odd final
// digit is padded with 0.
func (s *contentScanner) hexString() []byte {
	s.pos++
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		if c := s.data[s.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out, err := hex.DecodeString(string(digits))
	if err != nil {
		return nil
	}
	return out
}

// skipInlineImage jumps over the binary data between ID and EI.
func (s *contentScanner) skipInlineImage() {
	if i := bytes.Index(s.data[s.pos:], []byte("EI")); i >= 0 {
		s.pos += i + 2
		return
	}
	s.pos = len(s.data)
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

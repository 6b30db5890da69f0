package extractor

import (
	"bytes"
	"strings"
	"unicode/utf16"
)

// maxRangeCodes bounds one bfrange entry so a corrupt CMap cannot make the
// map explode.
const maxRangeCodes = 1 << 16

// toUnicode maps font character codes to text. It is merged from every
// ToUnicode CMap in the file; codes are keyed by their raw bytes so one
// and two byte fonts do not collide.
type toUnicode struct {
	codes    map[string]string
	maxWidth int
}

func collectToUnicode(streams [][]byte) *toUnicode {
	m := &toUnicode{codes: map[string]string{}}
	for _, s := range streams {
		if isCMapStream(s) {
			m.parse(s)
		}
	}
	return m
}

func isCMapStream(s []byte) bool {
	return bytes.Contains(s, []byte("beginbfchar")) || bytes.Contains(s, []byte("beginbfrange"))
}

// parse reads the bfchar and bfrange sections of a CMap:
//
//	<0003> <0041>                    one code
//	<0010> <0012> <0061>             a run of consecutive codes
//	<0020> <0021> [<0062> <0063>]    one target per code
func (m *toUnicode) parse(cmap []byte) {
	var (
		section string
		args    [][]byte
		list    [][]byte
		inList  bool
	)

	sc := &contentScanner{data: cmap}
	for tok, ok := sc.next(); ok; tok, ok = sc.next() {
		switch tok.kind {
		case tokOperator:
			section = string(tok.bytes)
			args = args[:0]
		case tokArrayOpen:
			inList, list = true, nil
		case tokArrayClose:
			inList = false
			if section == "beginbfrange" && len(args) == 2 {
				m.addList(args[0], list)
			}
			args = args[:0]
		case tokString:
			if inList {
				list = append(list, tok.bytes)
				continue
			}
			args = append(args, tok.bytes)
			switch {
			case section == "beginbfchar" && len(args) == 2:
				m.add(args[0], utf16Text(args[1]))
				args = args[:0]
			case section == "beginbfrange" && len(args) == 3:
				m.addRange(args[0], args[1], args[2])
				args = args[:0]
			}
		}
	}
}

func (m *toUnicode) add(code []byte, text string) {
	if len(code) == 0 || text == "" {
		return
	}
	m.codes[string(code)] = text
	if len(code) > m.maxWidth {
		m.maxWidth = len(code)
	}
}

func (m *toUnicode) addRange(lo, hi, dst []byte) {
	if len(lo) == 0 || len(lo) > 4 || len(lo) != len(hi) {
		return
	}
	start, end := codeValue(lo), codeValue(hi)
	units := utf16Units(dst)
	if end < start || end-start >= maxRangeCodes || len(units) == 0 {
		return
	}
	for c := start; c <= end; c++ {
		u := append([]uint16(nil), units...)
		u[len(u)-1] += uint16(c - start)
		m.add(codeBytes(c, len(lo)), string(utf16.Decode(u)))
	}
}

func (m *toUnicode) addList(lo []byte, targets [][]byte) {
	if len(lo) == 0 || len(lo) > 4 {
		return
	}
	start := codeValue(lo)
	for i, t := range targets {
		m.add(codeBytes(start+uint32(i), len(lo)), utf16Text(t))
	}
}

// decode turns a show-text operand into text. Codes missing from the map
// fall back to printable ASCII; without any map the bytes are read as
// Latin-1, or UTF-16BE when they start with a byte order mark.
func (m *toUnicode) decode(b []byte) string {
	if len(m.codes) == 0 {
		return plainPDFString(b)
	}

	var sb strings.Builder
	for i := 0; i < len(b); {
		if text, n := m.lookup(b[i:]); n > 0 {
			sb.WriteString(text)
			i += n
			continue
		}
		if b[i] >= 0x20 && b[i] < 0x7f {
			sb.WriteByte(b[i])
		}
		i++
	}
	return sb.String()
}

// lookup tries the longest code first.
func (m *toUnicode) lookup(b []byte) (string, int) {
	for w := min(m.maxWidth, len(b)); w > 0; w-- {
		if text, ok := m.codes[string(b[:w])]; ok {
			return text, w
		}
	}
	return "", 0
}

func plainPDFString(b []byte) string {
	if bytes.HasPrefix(b, []byte{0xfe, 0xff}) {
		return utf16Text(b[2:])
	}
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\t':
			sb.WriteByte(' ')
		case c >= 0x20 && c < 0x7f, c >= 0xa0:
			sb.WriteRune(rune(c))
		}
	}
	return sb.String()
}

func utf16Units(b []byte) []uint16 {
	if len(b)%2 == 1 {
		b = append([]byte{0}, b...)
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return units
}

func utf16Text(b []byte) string {
	return string(utf16.Decode(utf16Units(b)))
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func codeBytes(v uint32, width int) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

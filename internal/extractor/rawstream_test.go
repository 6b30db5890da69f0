package extractor

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentText(t *testing.T) {
	noMap := collectToUnicode(nil)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no text block", "q 1 0 0 1 0 0 cm Q", ""},
		{"escapes", `BT (Fee \(waived\)) Tj ET`, "Fee (waived)"},
		{"octal escape", `BT (\101TM fee 20) Tj ET`, "ATM fee 20"},
		{"nested parens", `BT (Late fee (penalty) 500) Tj ET`, "Late fee (penalty) 500"},
		{"horizontal move is a space", "BT (SMS) Tj 30 0 Td (fee 15) Tj ET", "SMS fee 15"},
		{"vertical move is a line", "BT (Opening balance) Tj 0 -12 Td (Card fee 99) Tj ET", "Opening balance\nCard fee 99"},
		{"next line operator", "BT (a line) Tj T* (b line) Tj ET", "a line\nb line"},
		{"quote operator", "BT (first) Tj (second) ' ET", "first\nsecond"},
		{"same row Tm", "BT 1 0 0 1 10 500 Tm (Service) Tj 1 0 0 1 60 500 Tm (charge 5) Tj ET", "Service charge 5"},
		{"small kerning joins", "BT [(Mark) -20 (up)] TJ ET", "Markup"},
		{"text outside BT ignored", "(stray) Tj BT (kept) Tj ET", "kept"},
		{"comment skipped", "BT % (not text) Tj\n(text) Tj ET", "text"},
		{"latin-1", "BT (Caf\\351 fee) Tj ET", "Café fee"},
		{"utf-16 with BOM", "BT <FEFF20B9> Tj ET", "₹"},
		{"inline image skipped", "BT (before) Tj ET BI /W 1 /H 1 ID \x00)(\xff EI BT (after) Tj ET", "before\nafter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contentText([]byte(tt.content), noMap))
		})
	}
}

func TestToUnicode_Parse(t *testing.T) {
	cmap := `2 beginbfchar
<01> <0046>
<02> <0058>
endbfchar
1 beginbfrange
<0003> <0004> [<0041> <D83DDE00>]
endbfrange
1 beginbfrange
<10> <12> <0061>
endbfrange`

	m := collectToUnicode([][]byte{[]byte(cmap)})
	assert.Equal(t, 2, m.maxWidth)
	assert.Equal(t, "FX", m.decode([]byte{0x01, 0x02}))
	assert.Equal(t, "abc", m.decode([]byte{0x10, 0x11, 0x12}))
	assert.Equal(t, "A😀", m.decode([]byte{0x00, 0x03, 0x00, 0x04}))
	// unmapped printable bytes pass through
	assert.Equal(t, "F 9", m.decode([]byte{0x01, ' ', '9'}))
}

func TestToUnicode_RejectsHugeRange(t *testing.T) {
	m := collectToUnicode([][]byte{[]byte("1 beginbfrange\n<00000000> <FFFFFFFF> <0041>\nendbfrange")})
	assert.Empty(t, m.codes)
}

func TestPDFStreams(t *testing.T) {
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, err := zw.Write([]byte("BT (compressed) Tj ET"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	data := []byte("1 0 obj\n<<>>\nstream\r\nBT (plain) Tj ET\nendstream\nendobj\n2 0 obj\n<<>>\nstream\n")
	data = append(data, z.Bytes()...)
	data = append(data, []byte("\nendstream\nendobj\n3 0 obj\n<<>>\nstream\nunterminated")...)

	streams := pdfStreams(data)
	require.Len(t, streams, 2)
	assert.Equal(t, "BT (plain) Tj ET\n", string(streams[0]))
	assert.Equal(t, "BT (compressed) Tj ET", string(streams[1]))
}

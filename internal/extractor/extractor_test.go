package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/finfeex/internal/models"
)

func TestExtract_PlainText(t *testing.T) {
	res, err := Extract("statement.txt", []byte("Convenience fee ₹49\nFX markup 2.5%\n"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceText, res.Source)
	assert.Equal(t, "Convenience fee ₹49\nFX markup 2.5%\n", res.Text)
	assert.Nil(t, res.PDFError)
}

func TestExtract_StripsBOM(t *testing.T) {
	res, err := Extract("s.txt", []byte("\xef\xbb\xbfAnnual fee 499"))
	require.NoError(t, err)
	assert.Equal(t, "Annual fee 499", res.Text)
}

func TestExtract_InvalidUTF8IsReplaced(t *testing.T) {
	res, err := Extract("s.txt", []byte("SMS fee \xff\xfe 15"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(res.Text, "�"))
	assert.True(t, strings.HasPrefix(res.Text, "SMS fee "))
	assert.True(t, strings.HasSuffix(res.Text, " 15"))
}

func TestExtract_BrokenPDFFallsBackToText(t *testing.T) {
	data := []byte("%PDF-1.4\nnot really a pdf\nProcessing fee 99\n")
	res, err := Extract("statement.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, models.SourceText, res.Source)
	assert.Error(t, res.PDFError)
	assert.Contains(t, res.Text, "Processing fee 99")
}

func TestExtract_PDFExtensionWithTextBody(t *testing.T) {
	res, err := Extract("renamed.PDF", []byte("Late payment fee $35"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceText, res.Source)
	assert.Error(t, res.PDFError)
	assert.Equal(t, "Late payment fee $35", res.Text)
}

func TestExtract_Empty(t *testing.T) {
	_, err := Extract("s.txt", nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestExtractor_TooLarge(t *testing.T) {
	_, err := New(4).Extract("s.txt", []byte("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	res, err := New(5).Extract("s.txt", []byte("12345"))
	require.NoError(t, err)
	assert.Equal(t, "12345", res.Text)
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want bool
	}{
		{"magic", "upload", "%PDF-1.7 ...", true},
		{"magic after whitespace", "upload", "\n %PDF-1.7", true},
		{"extension", "jan.pdf", "hello", true},
		{"upper extension", "JAN.PDF", "hello", true},
		{"text", "jan.txt", "hello", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPDF(tt.file, []byte(tt.data)))
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "", Preview("abc", 0))
	assert.Equal(t, "abc", Preview("abc", 3))
	assert.Equal(t, "ab...", Preview("abc", 2))
	assert.Equal(t, "₹₹...", Preview("₹₹₹", 2))
}

func TestIsReadableText(t *testing.T) {
	assert.False(t, isReadableText([]string{"short"}))
	assert.True(t, isReadableText([]string{"Statement of account\nConvenience fee ₹49"}))
	assert.False(t, isReadableText([]string{strings.Repeat("ИЖБ", 20)}))
}

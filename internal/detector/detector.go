// Package detector finds fee lines in extracted statement text.
//
// Detection is keyword driven: a line qualifies when its lowercase text
// contains any fee keyword (plain substring, so "feet" matches "fee").
// A qualifying line yields exactly one FeeCandidate:
//
//	"Foreign transaction markup 2.5%"  -> percent 2.5
//	"Processing Fee ₹1,299.00"         -> amount 1299, currency ₹
//	"Annual fee waived"                -> unknown
//
// A percentage anywhere on the line wins over any amount.
package detector

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/insightdelivered/finfeex/internal/models"
)

// feeKeywords qualify a line as a fee line.
var feeKeywords = []string{
	"fee", "charge", "convenience", "processing", "service", "markup",
	"foreign transaction", "fx", "txn charge", "transaction fee",
	"annual", "renewal", "penalty", "late payment", "overdraft",
	"atm", "withdrawal", "sms", "courier", "interchange", "lounge access",
	"maintenance", "minimum balance", "surcharge",
}

var (
	// 2.5% or 3 %. The optional gap may be any Unicode space, NBSP included.
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)[\s\p{Zs}]?%`)
	// ₹49, $ 1,299.00, 99
	amountPattern = regexp.MustCompile(`([₹$€£])?[\s\p{Zs}]?(\d{1,3}[,\d]*(?:\.\d+)?)`)
	// \r\n, or a single \n \r \v \f, file/group/record separator, NEL,
	// line separator or paragraph separator.
	lineBreak = regexp.MustCompile(`\r\n|[\n\r\v\f\x1c-\x1e\x{85}\x{2028}\x{2029}]`)
)

// Detect scans text line by line and returns one candidate per fee line,
// in input order. It never fails; text without fee lines gives an empty slice.
func Detect(text string) []models.FeeCandidate {
	candidates := []models.FeeCandidate{}
	for _, raw := range lineBreak.Split(text, -1) {
		line := strings.TrimSpace(raw)
		if line == "" || !IsFeeLine(line) {
			continue
		}
		candidates = append(candidates, classify(line))
	}
	return candidates
}

// IsFeeLine reports whether line contains at least one fee keyword.
func IsFeeLine(line string) bool {
	return containsAny(strings.ToLower(line), feeKeywords)
}

func classify(line string) models.FeeCandidate {
	c := models.FeeCandidate{
		Line:     line,
		Type:     models.FeeUnknown,
		Category: Categorize(line),
	}

	if m := percentPattern.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			c.Type = models.FeePercent
			c.Value = &v
		}
		return c
	}

	m := amountPattern.FindStringSubmatch(line)
	if m == nil {
		return c
	}
	v, err := parseAmount(m[2])
	if err != nil {
		return c
	}
	c.Type = models.FeeAmount
	c.Value = &v
	if m[1] != "" {
		c.Currency = &m[1]
	}
	return c
}

// parseAmount converts "1,234.56" to 1234.56. Thousands separators are
// dropped; anything else strconv rejects is reported as an error.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

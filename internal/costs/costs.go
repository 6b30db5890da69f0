// Package costs turns detected fee lines into yearly cost estimates.
package costs

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/finfeex/internal/models"
)

// DefaultAssumedTxnValue stands in for an average transaction amount when
// annualizing percentage fees.
const DefaultAssumedTxnValue = 100.0

var (
	monthlyWords = []string{"monthly", "per month", "every month"}
	yearlyWords  = []string{"annual", "per year", "yearly", "annually"}
	perTxnWords  = []string{"per transaction", "per txn"}

	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// GuessFrequency infers how often a fee is charged from its line text.
// Monthly words are checked first, then yearly, then per-transaction.
func GuessFrequency(line string) models.Frequency {
	l := strings.ToLower(line)
	switch {
	case containsAny(l, monthlyWords):
		return models.FrequencyMonthly
	case containsAny(l, yearlyWords):
		return models.FrequencyYearly
	case containsAny(l, perTxnWords):
		return models.FrequencyPerTxn
	default:
		return models.FrequencyUnknown
	}
}

// Annualize estimates a yearly cost for every candidate, keeping order.
//
// estimatedAnnualTxns <= 0 means the transaction volume is unknown: per
// transaction and percentage fees then get a nil estimate instead of a
// made-up number. assumedTxnValue is only used for percentage fees. A NaN or
// infinite value or assumedTxnValue also gives a nil estimate.
func Annualize(candidates []models.FeeCandidate, estimatedAnnualTxns int, assumedTxnValue float64) []models.AnnualizedFee {
	out := make([]models.AnnualizedFee, 0, len(candidates))
	for _, c := range candidates {
		freq := GuessFrequency(c.Line)
		out = append(out, models.AnnualizedFee{
			Line:               c.Line,
			Type:               c.Type,
			Value:              c.Value,
			Currency:           c.Currency,
			Category:           c.Category,
			Frequency:          freq,
			AnnualCostEstimate: annualCost(c, freq, estimatedAnnualTxns, assumedTxnValue),
		})
	}
	return out
}

func annualCost(c models.FeeCandidate, freq models.Frequency, txns int, txnValue float64) *float64 {
	if c.Value == nil || !IsFinite(*c.Value) {
		return nil
	}
	v := decimal.NewFromFloat(*c.Value)

	switch c.Type {
	case models.FeeAmount:
		switch freq {
		case models.FrequencyMonthly:
			return toFloat(v.Mul(twelve))
		case models.FrequencyPerTxn:
			if txns <= 0 {
				return nil
			}
			return toFloat(v.Mul(decimal.NewFromInt(int64(txns))))
		default:
			// yearly, or a one-off charge counted once a year
			return toFloat(v)
		}
	case models.FeePercent:
		if txns <= 0 || !IsFinite(txnValue) {
			return nil
		}
		volume := decimal.NewFromInt(int64(txns)).Mul(decimal.NewFromFloat(txnValue))
		return toFloat(v.Div(hundred).Mul(volume))
	}
	return nil
}

// Total sums every non-nil, finite annual estimate.
func Total(fees []models.AnnualizedFee) float64 {
	sum := decimal.Zero
	for _, f := range fees {
		if f.AnnualCostEstimate != nil && IsFinite(*f.AnnualCostEstimate) {
			sum = sum.Add(decimal.NewFromFloat(*f.AnnualCostEstimate))
		}
	}
	f, _ := sum.Float64()
	return f
}

// IsFinite reports whether v is neither NaN nor infinite. decimal panics on
// non-finite floats, so every value crosses this check first.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// toFloat drops results too large for a float64.
func toFloat(d decimal.Decimal) *float64 {
	f, _ := d.Float64()
	if !IsFinite(f) {
		return nil
	}
	return &f
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

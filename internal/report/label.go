// Package report renders analysed fees for people: the fee label, the
// complaint email draft and the side-by-side statement comparison.
package report

import (
	"fmt"
	"math"

	"github.com/insightdelivered/finfeex/internal/costs"
	"github.com/insightdelivered/finfeex/internal/models"
)

// DefaultCurrency is shown when no fee line carried a currency symbol.
const DefaultCurrency = "₹"

const (
	maxScorePenalty = 80.0
	costPerPoint    = 20.0
)

// NewLabel summarises annualized fees. Fees without an estimate count
// towards FeeCount but add nothing to the totals.
func NewLabel(fees []models.AnnualizedFee) models.Label {
	total := costs.Total(fees)
	return models.Label{
		TransparencyScore: TransparencyScore(total),
		TotalAnnualCost:   total,
		FeeCount:          len(fees),
		Currency:          currencyOf(fees),
		ByCategory:        categoryTotals(fees),
	}
}

// TransparencyScore maps a yearly hidden cost to a 20..100 score.
// Every 20 currency units cost one point, capped at 80 points.
func TransparencyScore(totalAnnualCost float64) int {
	if totalAnnualCost <= 0 {
		return 100
	}
	return int(math.Floor(100 - math.Min(maxScorePenalty, totalAnnualCost/costPerPoint)))
}

// Markdown renders the label as three markdown paragraphs.
func Markdown(l models.Label) string {
	currency := l.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return fmt.Sprintf("**Transparency Score:** %d%%  \n\n**Total Annual Hidden Cost (estimate):** %s%d  \n\n**Detected fee lines:** %d",
		l.TransparencyScore, currency, int64(l.TotalAnnualCost), l.FeeCount)
}

func currencyOf(fees []models.AnnualizedFee) string {
	for _, f := range fees {
		if f.Symbol() != "" {
			return f.Symbol()
		}
	}
	return DefaultCurrency
}

func categoryTotals(fees []models.AnnualizedFee) map[models.Category]float64 {
	groups := make(map[models.Category][]models.AnnualizedFee)
	for _, f := range fees {
		groups[f.Category] = append(groups[f.Category], f)
	}
	totals := make(map[models.Category]float64, len(groups))
	for cat, group := range groups {
		totals[cat] = costs.Total(group)
	}
	return totals
}

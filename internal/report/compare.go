package report

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/finfeex/internal/costs"
	"github.com/insightdelivered/finfeex/internal/models"
)

// ErrNotEnoughStatements is returned by Compare for fewer than two records.
var ErrNotEnoughStatements = errors.New("at least two statements are needed for a comparison")

// StatementTotals is one row of a comparison.
type StatementTotals struct {
	Name            string                      `json:"name" yaml:"name"`
	Date            string                      `json:"date,omitempty" yaml:"date,omitempty"`
	TotalAnnualCost float64                     `json:"totalAnnualCost" yaml:"total_annual_cost"`
	AverageFee      float64                     `json:"averageFee" yaml:"average_fee"`
	FeeCount        int                         `json:"feeCount" yaml:"fee_count"`
	ByCategory      map[models.Category]float64 `json:"byCategory" yaml:"by_category"`
}

// Comparison lines up several statements and names the cheapest one.
type Comparison struct {
	Statements       []StatementTotals `json:"statements" yaml:"statements"`
	Best             string            `json:"best" yaml:"best"`
	Worst            string            `json:"worst" yaml:"worst"`
	PotentialSavings float64           `json:"potentialSavings" yaml:"potential_savings"`
}

// Compare totals each statement. Best and Worst are the first statements
// with the lowest and highest yearly cost; PotentialSavings is their gap.
func Compare(records []models.StatementRecord) (Comparison, error) {
	if len(records) < 2 {
		return Comparison{}, ErrNotEnoughStatements
	}

	rows := make([]StatementTotals, 0, len(records))
	best, worst := 0, 0
	for i, rec := range records {
		row := StatementTotals{
			Name:            rec.Name,
			Date:            rec.Date,
			TotalAnnualCost: costs.Total(rec.Fees),
			AverageFee:      averageFee(rec.Fees),
			FeeCount:        len(rec.Fees),
			ByCategory:      categoryTotals(rec.Fees),
		}
		rows = append(rows, row)

		if row.TotalAnnualCost < rows[best].TotalAnnualCost {
			best = i
		}
		if row.TotalAnnualCost > rows[worst].TotalAnnualCost {
			worst = i
		}
	}

	savings := decimal.NewFromFloat(rows[worst].TotalAnnualCost).
		Sub(decimal.NewFromFloat(rows[best].TotalAnnualCost))

	return Comparison{
		Statements:       rows,
		Best:             rows[best].Name,
		Worst:            rows[worst].Name,
		PotentialSavings: savings.InexactFloat64(),
	}, nil
}

// averageFee is the mean over fees that have an estimate, 0 when none do.
func averageFee(fees []models.AnnualizedFee) float64 {
	n := 0
	for _, f := range fees {
		if f.AnnualCostEstimate != nil {
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return decimal.NewFromFloat(costs.Total(fees)).
		Div(decimal.NewFromInt(int64(n))).
		InexactFloat64()
}

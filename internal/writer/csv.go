package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/insightdelivered/finfeex/internal/models"
)

// feeRow is the CSV shape of an AnnualizedFee. Missing numbers are empty cells.
type feeRow struct {
	Line               string `csv:"Line"`
	Type               string `csv:"Type"`
	Value              string `csv:"Value"`
	Currency           string `csv:"Currency"`
	Category           string `csv:"Category"`
	Frequency          string `csv:"Frequency"`
	AnnualCostEstimate string `csv:"AnnualCostEstimate"`
}

func writeCSV(out io.Writer, fees []models.AnnualizedFee) error {
	rows := make([]*feeRow, 0, len(fees))
	for _, f := range fees {
		rows = append(rows, &feeRow{
			Line:               f.Line,
			Type:               string(f.Type),
			Value:              formatAmount(f.Value),
			Currency:           f.Symbol(),
			Category:           string(f.Category),
			Frequency:          string(f.Frequency),
			AnnualCostEstimate: formatAmount(f.AnnualCostEstimate),
		})
	}

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csv.NewWriter(out))); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func formatAmount(amount *float64) string {
	if amount == nil {
		return ""
	}
	return strconv.FormatFloat(*amount, 'f', -1, 64)
}

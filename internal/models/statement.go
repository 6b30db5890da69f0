package models

// SourceKind records how the statement text was obtained.
type SourceKind string

const (
	SourcePDF  SourceKind = "pdf"
	SourceText SourceKind = "text"
)

// StatementRecord is one analysed statement kept by the caller
// (browser, CLI run) for side-by-side comparison. The server never stores it.
type StatementRecord struct {
	Name string          `json:"name" validate:"required,max=200"`
	Date string          `json:"date,omitempty"`
	Fees []AnnualizedFee `json:"fees"`
}

// Label is the fee "nutrition label" shown next to the fee table.
type Label struct {
	TransparencyScore int                  `json:"transparencyScore" yaml:"transparency_score"`
	TotalAnnualCost   float64              `json:"totalAnnualCost" yaml:"total_annual_cost"`
	FeeCount          int                  `json:"feeCount" yaml:"fee_count"`
	Currency          string               `json:"currency" yaml:"currency"`
	ByCategory        map[Category]float64 `json:"byCategory" yaml:"by_category"`
}

// Analysis bundles everything produced for one uploaded statement.
type Analysis struct {
	Source    SourceKind      `json:"source"`
	Pages     int             `json:"pages,omitempty"`
	Preview   string          `json:"preview"`
	Fees      []AnnualizedFee `json:"fees"`
	Label     Label           `json:"label"`
	LabelText string          `json:"labelMarkdown"`
	Complaint string          `json:"complaint"`
	Summary   string          `json:"summary,omitempty"`
}

package models

// FeeType says what kind of number was found on a fee line.
type FeeType string

const (
	FeePercent FeeType = "percent"
	FeeAmount  FeeType = "amount"
	FeeUnknown FeeType = "unknown"
)

// Frequency is how often a fee is charged, guessed from the line text.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	FrequencyPerTxn  Frequency = "per_txn"
	FrequencyUnknown Frequency = "unknown"
)

// Category is a coarse fee label from a fixed set.
type Category string

const (
	CategoryForeignExchange    Category = "Foreign Exchange"
	CategoryAnnualRenewal      Category = "Annual/Renewal"
	CategoryAccountMaintenance Category = "Account Maintenance"
	CategoryPenalties          Category = "Penalties"
	CategoryATMWithdrawal      Category = "ATM/Withdrawal"
	CategoryTransactionFees    Category = "Transaction Fees"
	CategoryCommunication      Category = "Communication"
	CategoryOtherFees          Category = "Other Fees"
)

// Categories lists every category in priority order, fallback last.
var Categories = []Category{
	CategoryForeignExchange,
	CategoryAnnualRenewal,
	CategoryAccountMaintenance,
	CategoryPenalties,
	CategoryATMWithdrawal,
	CategoryTransactionFees,
	CategoryCommunication,
	CategoryOtherFees,
}

// FeeCandidate is a statement line that looks like a fee.
type FeeCandidate struct {
	Line     string   `json:"line" yaml:"line"`
	Type     FeeType  `json:"type" yaml:"type"`
	Value    *float64 `json:"value" yaml:"value"`       // nil when Type is unknown
	Currency *string  `json:"currency" yaml:"currency"` // ₹ $ € £ when the amount carries one
	Category Category `json:"category" yaml:"category"`
}

// AnnualizedFee is a FeeCandidate with a yearly cost estimate.
type AnnualizedFee struct {
	Line               string    `json:"line" yaml:"line"`
	Type               FeeType   `json:"type" yaml:"type"`
	Value              *float64  `json:"value" yaml:"value"`
	Currency           *string   `json:"currency" yaml:"currency"`
	Category           Category  `json:"category" yaml:"category"`
	Frequency          Frequency `json:"frequency" yaml:"frequency"`
	AnnualCostEstimate *float64  `json:"annual_cost_estimate" yaml:"annual_cost_estimate"`
}

// Symbol returns the currency symbol, or "" when the line had none.
func (f AnnualizedFee) Symbol() string {
	return deref(f.Currency)
}

// Symbol returns the currency symbol, or "" when the line had none.
func (c FeeCandidate) Symbol() string {
	return deref(c.Currency)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// Float returns a pointer to v. Handy for building fee values in tests and callers.
func Float(v float64) *float64 {
	return &v
}

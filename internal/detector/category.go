package detector

import (
	"strings"

	"github.com/insightdelivered/finfeex/internal/models"
)

// categoryRule maps a set of lowercase keywords to a category.
type categoryRule struct {
	category models.Category
	keywords []string
}

// categoryRules is evaluated top to bottom; the first rule with a matching
// keyword wins. Order matters: "Foreign transaction fee" must land in
// Foreign Exchange, not Transaction Fees.
var categoryRules = []categoryRule{
	{models.CategoryForeignExchange, []string{
		"foreign", "fx", "forex", "currency conversion", "cross currency", "cross-currency", "markup",
	}},
	{models.CategoryAnnualRenewal, []string{
		"annual", "renewal", "membership", "yearly",
	}},
	{models.CategoryAccountMaintenance, []string{
		"maintenance", "minimum balance", "min balance", "average balance", "account keeping", "folio",
	}},
	{models.CategoryPenalties, []string{
		"penalty", "late payment", "late fee", "overdraft", "over limit", "overlimit", "bounce", "dishonour",
	}},
	{models.CategoryATMWithdrawal, []string{
		"atm", "withdrawal", "cash advance",
	}},
	{models.CategoryTransactionFees, []string{
		"convenience", "processing", "transaction", "txn", "surcharge", "interchange",
	}},
	{models.CategoryCommunication, []string{
		"sms", "alert", "courier", "statement", "postage",
	}},
}

// Categorize returns the category of a fee line. Lines that match no rule
// are Other Fees.
func Categorize(line string) models.Category {
	l := strings.ToLower(line)
	for _, rule := range categoryRules {
		if containsAny(l, rule.keywords) {
			return rule.category
		}
	}
	return models.CategoryOtherFees
}

package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/insightdelivered/finfeex/internal/models"
)

func TestDraftComplaint(t *testing.T) {
	fees := []models.AnnualizedFee{
		fee("Convenience fee ₹49", models.CategoryTransactionFees, "₹", models.Float(49)),
		fee("Late payment fee ₹500", models.CategoryPenalties, "₹", models.Float(500)),
	}

	email := DraftComplaint(fees, "Acme Bank")

	assert.True(t, strings.HasPrefix(email, "Dear Acme Bank,\n\n"))
	assert.Contains(t, email, "unclear or undisclosed:\n\nConvenience fee ₹49\nLate payment fee ₹500\n\nPlease clarify")
	assert.Contains(t, email, "within 14 days.")
	assert.True(t, strings.HasSuffix(email, "Thanks,\n[Your name]"))
}

func TestDraftComplaint_DefaultRecipient(t *testing.T) {
	for _, recipient := range []string{"", "   "} {
		assert.True(t, strings.HasPrefix(DraftComplaint(nil, recipient), "Dear Support,"))
	}
}

func TestDraftComplaint_QuotesFirstFiveLines(t *testing.T) {
	var fees []models.AnnualizedFee
	for _, line := range []string{"fee 1", "fee 2", "fee 3", "fee 4", "fee 5", "fee 6", "fee 7"} {
		fees = append(fees, fee(line, models.CategoryOtherFees, "", nil))
	}

	email := DraftComplaint(fees, "Support")

	assert.Contains(t, email, "fee 1\nfee 2\nfee 3\nfee 4\nfee 5\n\n")
	assert.NotContains(t, email, "fee 6")
	assert.NotContains(t, email, "fee 7")
}

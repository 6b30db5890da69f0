package report

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/finfeex/internal/models"
)

// DefaultRecipient is used when the caller leaves the recipient blank.
const DefaultRecipient = "Support"

// complaintLines caps how many fee lines are quoted in the email.
const complaintLines = 5

const complaintTemplate = `Dear %s,

I have reviewed my recent statements and found recurring fees that are unclear or undisclosed:

%s

Please clarify the purpose of these fees and provide a refund if they were charged in error. I would like a written response within 14 days.

Thanks,
[Your name]`

// DraftComplaint writes a plain-text email quoting the first few fee lines.
func DraftComplaint(fees []models.AnnualizedFee, recipient string) string {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		recipient = DefaultRecipient
	}

	n := min(len(fees), complaintLines)
	lines := make([]string, 0, n)
	for _, f := range fees[:n] {
		lines = append(lines, f.Line)
	}
	return fmt.Sprintf(complaintTemplate, recipient, strings.Join(lines, "\n"))
}

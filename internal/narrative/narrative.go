// Package narrative produces an optional plain-language summary of the
// detected fees through an external text model. Nothing in the analysis
// pipeline depends on it.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/insightdelivered/finfeex/internal/models"
)

var (
	// ErrDisabled means no summarizer is configured (no API key).
	ErrDisabled = errors.New("narrative summary is not configured")
	// ErrRateLimited means the request budget is used up for now.
	ErrRateLimited = errors.New("narrative summary rate limit exceeded")
	// ErrEmptyResponse means the model answered without any text.
	ErrEmptyResponse = errors.New("no text in model response")
)

// Summarizer turns a prompt into a short narrative.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// maxPromptFees caps the fee lines sent to the model.
const maxPromptFees = 25

// BuildPrompt renders the fee table and label into a model prompt.
func BuildPrompt(fees []models.AnnualizedFee, label models.Label) string {
	var sb strings.Builder
	sb.WriteString("You are helping a consumer understand the fees on their bank or card statement.\n")
	sb.WriteString("In plain language and under 150 words: explain what these fees are, point out the costliest ones, ")
	sb.WriteString("and suggest concrete actions to reduce or avoid them.\n\n")

	fmt.Fprintf(&sb, "Transparency score: %d%%\n", label.TransparencyScore)
	fmt.Fprintf(&sb, "Estimated yearly hidden cost: %s%.2f\n", label.Currency, label.TotalAnnualCost)
	fmt.Fprintf(&sb, "Fee lines detected: %d\n\n", label.FeeCount)

	sb.WriteString("Fee lines (category | frequency | yearly estimate | line):\n")
	for i, f := range fees {
		if i == maxPromptFees {
			fmt.Fprintf(&sb, "... and %d more\n", len(fees)-maxPromptFees)
			break
		}
		estimate := "unknown"
		if f.AnnualCostEstimate != nil {
			estimate = fmt.Sprintf("%.2f", *f.AnnualCostEstimate)
		}
		fmt.Fprintf(&sb, "- %s | %s | %s | %s\n", f.Category, f.Frequency, estimate, f.Line)
	}
	return sb.String()
}

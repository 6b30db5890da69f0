package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiSummarizer calls the Gemini API.
type GeminiSummarizer struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGeminiSummarizer returns ErrDisabled when apiKey is empty.
func NewGeminiSummarizer(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, ErrDisabled
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(0.3)

	return &GeminiSummarizer{client: client, model: m, timeout: timeout}, nil
}

// Summarize sends the prompt and joins the text parts of the first candidate.
func (g *GeminiSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Close releases the underlying client.
func (g *GeminiSummarizer) Close() error {
	return g.client.Close()
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brunobiangulo/georisk/llm"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("georisk: empty model response")

// systemPrompt fixes the reply format the parser expects.
const systemPrompt = `You are a geopolitical risk analyst covering the mining and critical-minerals sector.
For each news headline you receive, identify:
1. The primary country involved.
2. The mineral concerned (for example Lithium, Copper, Nickel, Rare Earth).
3. A supply risk score from 1 (negligible) to 10 (severe), as an integer.
4. A historical note: which past event does this repeat?

Reply with exactly one line and nothing else, formatted EXACTLY as:
Country | Mineral | Score | HistoricalNote

If no country stands out, use Global. If no single mineral stands out, use Diversified.`

// Analyzer asks a chat model for the pipe-delimited analysis of a headline.
type Analyzer struct {
	chat        llm.Provider
	model       string
	temperature float64
	maxTokens   int
}

// NewAnalyzer creates an Analyzer on top of a chat provider. An empty model
// uses the provider's configured default.
func NewAnalyzer(chat llm.Provider, model string) *Analyzer {
	return &Analyzer{
		chat:        chat,
		model:       model,
		temperature: 0.0,
		maxTokens:   256,
	}
}

// Analyze returns the model's raw reply for headline. The reply is not
// validated here; pass it to Parse.
func (a *Analyzer) Analyze(ctx context.Context, headline string) (string, error) {
	resp, err := a.chat.Chat(ctx, llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Headline: %q", headline)},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("analyzing headline: %w", err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

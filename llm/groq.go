package llm

import "context"

// DefaultGroqModel is the chat model used when none is configured.
const DefaultGroqModel = "llama-3.3-70b-versatile"

// groqProvider implements Provider for Groq's inference API.
// Groq speaks the OpenAI wire format; it serves chat models only, so Embed
// fails with the API's own error.
//
// API key: set via config, GEORISK_CHAT_API_KEY, or the legacy GROQ_API_KEY.
type groqProvider struct {
	base openAICompatClient
}

// NewGroq creates a provider for Groq.
func NewGroq(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	return &groqProvider{base: newOpenAICompatClient(cfg)}
}

func (p *groqProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *groqProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}

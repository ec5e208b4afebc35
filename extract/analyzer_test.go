package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/georisk/llm"
)

type fakeChat struct {
	reply string
	err   error
	got   llm.ChatRequest
}

func (f *fakeChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.reply}, nil
}

func (f *fakeChat) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("not supported")
}

func TestAnalyze(t *testing.T) {
	chat := &fakeChat{reply: "  Chile | Lithium | 8 | Echoes 1938\n"}
	a := NewAnalyzer(chat, "llama-3.3-70b-versatile")

	raw, err := a.Analyze(context.Background(), "Chile nationalizes lithium reserves")
	require.NoError(t, err)
	assert.Equal(t, "Chile | Lithium | 8 | Echoes 1938", raw)

	assert.Equal(t, "llama-3.3-70b-versatile", chat.got.Model)
	require.Len(t, chat.got.Messages, 2)
	assert.Equal(t, llm.RoleSystem, chat.got.Messages[0].Role)
	assert.Contains(t, chat.got.Messages[0].Content, "Country | Mineral | Score | HistoricalNote")
	assert.Equal(t, llm.RoleUser, chat.got.Messages[1].Role)
	assert.True(t, strings.Contains(chat.got.Messages[1].Content, "Chile nationalizes lithium reserves"))
}

func TestAnalyzeProviderError(t *testing.T) {
	cause := errors.New("LLM API error 429: rate limit reached")
	a := NewAnalyzer(&fakeChat{err: cause}, "")

	_, err := a.Analyze(context.Background(), "headline")
	assert.ErrorIs(t, err, cause)
}

func TestAnalyzeEmptyReply(t *testing.T) {
	a := NewAnalyzer(&fakeChat{reply: "   "}, "")

	_, err := a.Analyze(context.Background(), "headline")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

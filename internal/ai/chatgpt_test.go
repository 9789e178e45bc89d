package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/example/lumi/internal/kvstore"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	reply    string
	err      error
	calls    int
	lastReq  openai.ChatCompletionRequest
	noChoice bool
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if f.noChoice {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply}},
		},
	}, nil
}

func TestTranslate_UsesCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := &fakeCompleter{reply: "  hola mundo \n"}
	c := NewWithCompleter(api, Config{}, kvstore.NewMemory(0), zap.NewNop())

	got, err := c.Translate(ctx, "hello world", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", got)
	assert.Equal(t, DefaultModel, api.lastReq.Model)
	assert.Contains(t, api.lastReq.Messages[0].Content, "from English to Spanish")
	assert.Equal(t, "hello world", api.lastReq.Messages[1].Content)

	got, err = c.Translate(ctx, " hello world ", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", got)
	assert.Equal(t, 1, api.calls, "second call is served from the cache")

	_, err = c.Translate(ctx, "hello world", "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls, "language pair is part of the cache key")
}

func TestTranslate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		api           ChatCompleter
		text          string
		wantErr       error
		wantRetryable bool
	}{
		{name: "empty text", api: &fakeCompleter{reply: "x"}, text: "   ", wantErr: ErrEmptyText},
		{name: "not configured", api: nil, text: "hi", wantErr: ErrNotConfigured},
		{name: "empty reply", api: &fakeCompleter{reply: "  "}, text: "hi", wantErr: ErrNoTranslation},
		{
			name:          "rate limited",
			api:           &fakeCompleter{err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}},
			text:          "hi",
			wantRetryable: true,
		},
		{
			name: "bad key",
			api:  &fakeCompleter{err: &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "invalid key"}},
			text: "hi",
		},
		{name: "no choices", api: &fakeCompleter{noChoice: true}, text: "hi", wantRetryable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewWithCompleter(tt.api, Config{}, nil, zap.NewNop())
			_, err := c.Translate(context.Background(), tt.text, "en", "es")
			require.Error(t, err)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantRetryable, IsRetryable(err))
		})
	}
}

func TestTranslate_NilCompleterInterface(t *testing.T) {
	t.Parallel()

	c := New(Config{}, nil, zap.NewNop())
	_, err := c.Translate(context.Background(), "hello", "en", "es")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestChat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	api := &fakeCompleter{reply: "¡Claro!"}
	c := NewWithCompleter(api, Config{Temperature: 0.5}, nil, zap.NewNop())
	reply, err := c.Chat(ctx, "can you help me?", "es")
	require.NoError(t, err)
	assert.Equal(t, "¡Claro!", reply)
	assert.Contains(t, api.lastReq.Messages[0].Content, "Reply in Spanish")
	assert.InDelta(t, 0.5, api.lastReq.Temperature, 1e-6)

	failing := NewWithCompleter(&fakeCompleter{err: errors.New("connection refused")}, Config{}, nil, zap.NewNop())
	reply, err = failing.Chat(ctx, "how do I study better?", "en")
	require.NoError(t, err)
	assert.Contains(t, reply, "Practice regularly")

	_, err = failing.Chat(ctx, " ", "en")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestCannedReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    string
	}{
		{"Hi!", "Hello!"},
		{"this is history", "I'm here to help"},
		{"What is the meaning of life", "explain meanings"},
		{"please translate this", "translate it"},
		{"grammar question", "Grammar questions"},
		{"I want to learn faster", "Practice regularly"},
		{"HELP", "I can help you with"},
		{"random", "I'm here to help"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, CannedReply(tt.message), tt.want)
		})
	}
}

func TestLanguageName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Spanish", LanguageName("ES"))
	assert.Equal(t, "English", LanguageName(""))
	assert.Equal(t, "Klingon", LanguageName("Klingon"))
}

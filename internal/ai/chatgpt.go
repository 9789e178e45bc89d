package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/lumi/internal/kvstore"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama3-8b-8192"

	translateTemperature = 0.2
	translateMaxTokens   = 300
	chatMaxTokens        = 512
	cacheKeyPrefix       = "translation-cache:"
)

var (
	ErrEmptyText     = errors.New("ai: text is empty")
	ErrNoTranslation = errors.New("ai: provider returned no translation")
	ErrNotConfigured = errors.New("ai: no API key configured")
)

// ProviderError indicates a failed call to the completion API
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ChatCompleter is the part of the OpenAI client used here
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds the completion API settings
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// Client translates text and answers chat messages through an
// OpenAI-compatible API. Translations are cached in a key-value store.
type Client struct {
	api         ChatCompleter
	cache       kvstore.KV
	log         *zap.Logger
	model       string
	temperature float32
}

// New creates a client. Without an API key the client still works: Chat
// answers with canned replies and Translate returns ErrNotConfigured.
func New(cfg Config, cache kvstore.KV, log *zap.Logger) *Client {
	var api ChatCompleter
	if cfg.APIKey != "" {
		config := openai.DefaultConfig(cfg.APIKey)
		config.BaseURL = cfg.BaseURL
		if config.BaseURL == "" {
			config.BaseURL = DefaultBaseURL
		}
		api = openai.NewClientWithConfig(config)
	}
	return NewWithCompleter(api, cfg, cache, log)
}

// NewWithCompleter creates a client on top of an existing completion API
func NewWithCompleter(api ChatCompleter, cfg Config, cache kvstore.KV, log *zap.Logger) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	return &Client{
		api:         api,
		cache:       cache,
		log:         log,
		model:       model,
		temperature: temperature,
	}
}

// Translate translates text from sourceLang to targetLang (ISO codes or names)
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}

	key := cacheKey(text, sourceLang, targetLang)
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.Warn("translation cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	if c.api == nil {
		return "", ErrNotConfigured
	}

	system := fmt.Sprintf("You are a translator. Translate from %s to %s. Only provide the translation.",
		LanguageName(sourceLang), LanguageName(targetLang))

	translation, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: translateTemperature,
		MaxTokens:   translateMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if translation == "" {
		return "", ErrNoTranslation
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, translation); err != nil {
			c.log.Warn("translation cache write failed", zap.Error(err))
		}
	}
	return translation, nil
}

// Chat answers a learner's message in the given language. When the API is
// unavailable it falls back to a canned reply, so it never fails on
// provider errors.
func (c *Client) Chat(ctx context.Context, message, language string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyText
	}
	if c.api == nil {
		return CannedReply(message), nil
	}

	system := fmt.Sprintf("You are a helpful AI assistant for language learners. Reply in %s.", LanguageName(language))
	reply, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: c.temperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil || reply == "" {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.log.Warn("chat completion failed, using canned reply", zap.Error(err))
		return CannedReply(message), nil
	}
	return reply, nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &ProviderError{
			Message:   "chat completion call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Message: "no choices in response", Retryable: true}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func cacheKey(text, sourceLang, targetLang string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(sourceLang) + "\x00" + strings.ToLower(targetLang) + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"rate limit", "timeout", "connection refused", "temporary"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether err is a provider failure worth retrying
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

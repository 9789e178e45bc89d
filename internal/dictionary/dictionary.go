// Package dictionary looks up English words in the free dictionary API,
// falling back to a small built-in table when the API is unreachable.
package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the free dictionary API entries endpoint
const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries"

var (
	ErrWordNotFound        = errors.New("dictionary: word not found")
	ErrUnsupportedLanguage = errors.New("dictionary: only English is supported")
	ErrEmptyWord           = errors.New("dictionary: word is empty")
)

// Definition is one sense of a word
type Definition struct {
	Definition string   `json:"definition"`
	Example    string   `json:"example,omitempty"`
	Synonyms   []string `json:"synonyms"`
	Antonyms   []string `json:"antonyms"`
}

// Meaning groups definitions by part of speech
type Meaning struct {
	PartOfSpeech string       `json:"partOfSpeech"`
	Definitions  []Definition `json:"definitions"`
	Synonyms     []string     `json:"synonyms"`
	Antonyms     []string     `json:"antonyms"`
}

// Entry is a dictionary entry
type Entry struct {
	Word     string    `json:"word"`
	Phonetic string    `json:"phonetic"`
	AudioURL string    `json:"audioUrl,omitempty"`
	Meanings []Meaning `json:"meanings"`
	// Fallback is set when the entry came from the built-in table
	Fallback bool `json:"-"`
}

type apiEntry struct {
	Word      string `json:"word"`
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text  string `json:"text"`
		Audio string `json:"audio"`
	} `json:"phonetics"`
	Meanings []Meaning `json:"meanings"`
}

// Client looks words up
type Client struct {
	http    *http.Client
	baseURL string
	log     *zap.Logger
}

// New creates a dictionary client. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// Lookup returns the entry for word in lang. Only English is supported.
// Network failures fall back to the built-in table; a word unknown to both
// returns ErrWordNotFound.
func (c *Client) Lookup(ctx context.Context, word, lang string) (Entry, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return Entry{}, ErrEmptyWord
	}
	if lang == "" {
		lang = "en"
	}
	if lang != "en" {
		return Entry{}, ErrUnsupportedLanguage
	}

	entry, err := c.fetch(ctx, word, lang)
	if err == nil {
		return entry, nil
	}
	if ctx.Err() != nil {
		return Entry{}, ctx.Err()
	}
	if !errors.Is(err, ErrWordNotFound) {
		c.log.Warn("dictionary API unavailable, using fallback", zap.String("word", word), zap.Error(err))
	}

	if fb, ok := fallback[word]; ok {
		fb.Fallback = true
		return fb, nil
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrWordNotFound, word)
}

func (c *Client) fetch(ctx context.Context, word, lang string) (Entry, error) {
	endpoint := c.baseURL + "/" + lang + "/" + url.PathEscape(word)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Entry{}, ErrWordNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var entries []apiEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return Entry{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(entries) == 0 {
		return Entry{}, ErrWordNotFound
	}

	e := entries[0]
	entry := Entry{
		Word:     e.Word,
		Phonetic: e.Phonetic,
		Meanings: e.Meanings,
	}
	for _, p := range e.Phonetics {
		if entry.Phonetic == "" && p.Text != "" {
			entry.Phonetic = p.Text
		}
		if entry.AudioURL == "" && p.Audio != "" {
			entry.AudioURL = p.Audio
		}
	}
	return entry, nil
}

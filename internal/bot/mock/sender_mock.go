package mock_bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MockBot records everything the bot sends
type MockBot struct {
	mu           sync.Mutex
	SentMessages []tgbotapi.Chattable
	Requests     []tgbotapi.Chattable
	FileURL      string
	SendErr      error
}

func (m *MockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendErr != nil {
		return tgbotapi.Message{}, m.SendErr
	}
	m.SentMessages = append(m.SentMessages, c)
	return tgbotapi.Message{MessageID: len(m.SentMessages), Chat: &tgbotapi.Chat{ID: 123}}, nil
}

func (m *MockBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *MockBot) GetFileDirectURL(fileID string) (string, error) {
	return m.FileURL + "/" + fileID, nil
}

// Messages returns the text messages sent so far
func (m *MockBot) Messages() []tgbotapi.MessageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]tgbotapi.MessageConfig, 0, len(m.SentMessages))
	for _, c := range m.SentMessages {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

// Last returns the most recent text message
func (m *MockBot) Last() tgbotapi.MessageConfig {
	msgs := m.Messages()
	if len(msgs) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return msgs[len(msgs)-1]
}

func ClearSentMessages(bot *MockBot) {
	bot.mu.Lock()
	defer bot.mu.Unlock()

	bot.SentMessages = nil
	bot.Requests = nil
}

package testutils

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MockMessage captures a single text message sent through MockSender.
type MockMessage struct {
	ChatID   int64
	Text     string
	Keyboard any
}

// MockSender implements bot.Sender for testing.
// Chattables collects every value passed to Send, Requests every value
// passed to Request. Chats listed in FailChatIDs reject messages and copies.
type MockSender struct {
	mu          sync.Mutex
	Chattables  []tgbotapi.Chattable
	Requests    []tgbotapi.Chattable
	nextID      int
	FailChatIDs map[int64]bool

	// SendError, if set, is returned by Send.
	SendError error
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Chattables = append(m.Chattables, c)
	if m.SendError != nil {
		return tgbotapi.Message{}, m.SendError
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok && m.FailChatIDs[msg.ChatID] {
		return tgbotapi.Message{}, errBlocked
	}
	m.nextID++
	return tgbotapi.Message{MessageID: m.nextID}, nil
}

func (m *MockSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, c)
	if cp, ok := c.(tgbotapi.CopyMessageConfig); ok && m.FailChatIDs[cp.ChatID] {
		return nil, errBlocked
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// Messages returns every text message sent, in order.
func (m *MockSender) Messages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockMessage
	for _, c := range m.Chattables {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, MockMessage{ChatID: msg.ChatID, Text: msg.Text, Keyboard: msg.ReplyMarkup})
		}
	}
	return out
}

// GetLastMessage returns the most recently sent message, or nil if none.
func (m *MockSender) GetLastMessage() *MockMessage {
	msgs := m.Messages()
	if len(msgs) == 0 {
		return nil
	}
	return &msgs[len(msgs)-1]
}

func (m *MockSender) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Chattables = nil
	m.Requests = nil
}

type blockedError struct{}

func (blockedError) Error() string { return "Forbidden: bot was blocked by the user" }

var errBlocked error = blockedError{}

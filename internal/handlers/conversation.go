package handlers

import (
	"sync"
	"time"
)

const StageBroadcast = "broadcast"

// Conversation is a multi-step command waiting for the chat's next message.
type Conversation struct {
	ChatID     int64
	Stage      string
	LastActive time.Time
}

type ConversationStore struct {
	mu            sync.Mutex
	conversations map[int64]*Conversation
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[int64]*Conversation),
	}
}

func (m *ConversationStore) Set(chatID int64, c *Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[chatID] = c
}

// Take returns and removes the conversation in one step.
func (m *ConversationStore) Take(chatID int64) *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.conversations[chatID]
	delete(m.conversations, chatID)
	return c
}

func (m *ConversationStore) Delete(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, chatID)
}

func (m *ConversationStore) Cleanup(expire time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, v := range m.conversations {
		if now.Sub(v.LastActive) > expire {
			delete(m.conversations, k)
		}
	}
}

package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"chatrelay/models"
)

// Store is the persistence contract the relay depends on. *store.Store
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	CreateUser(username, passwordHash, nickname, avatarPath string) (int64, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByNickname(nickname string) (*models.User, error)
	GetFriends(userID int64) ([]*models.User, error)
	SaveMessage(fromUserID, toUserID int64, content, messageType string, timestamp time.Time) (int64, error)
	GetChatHistory(userID, friendID int64) ([]*models.ChatMessage, error)
}

// Hub maps each authenticated user id to its single live connection.
// The whole map is the shared resource; one lock guards it all.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]*Client

	unknownFrames atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[int64]*Client),
	}
}

// Register binds userID to client and returns the displaced prior
// client, if any. Last login wins; closing the prior handle is the
// caller's job.
func (h *Hub) Register(userID int64, client *Client) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	prior := h.sessions[userID]
	h.sessions[userID] = client
	if prior == client {
		return nil
	}
	return prior
}

// Deregister removes the entry only if it still points at client, so a
// teardown racing a rapid reconnect cannot evict the newer session.
// Returns whether an entry was removed; idempotent.
func (h *Hub) Deregister(userID int64, client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[userID] != client {
		return false
	}
	delete(h.sessions, userID)
	return true
}

func (h *Hub) Lookup(userID int64) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.sessions[userID]
	return client, ok
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) CountUnknownFrame() {
	h.unknownFrames.Add(1)
}

// UnknownFrames reports how many frames with unrecognized type tags
// have been dropped since startup.
func (h *Hub) UnknownFrames() int64 {
	return h.unknownFrames.Load()
}

package relay

import (
	"sort"
	"sync"
	"time"

	"chatrelay/models"
	"chatrelay/store"
)

// memStore is an in-memory Store used by the relay tests so they run
// without MySQL. It honors the same sentinel errors and ordering rules
// as the SQL implementation.
type memStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextMsgID  int64
	users      map[int64]*models.User
	edges      map[[2]int64]bool
	messages   []*models.ChatMessage
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]*models.User),
		edges: make(map[[2]int64]bool),
	}
}

func (m *memStore) CreateUser(username, passwordHash, nickname, avatarPath string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return 0, store.ErrUsernameTaken
		}
	}
	m.nextUserID++
	m.users[m.nextUserID] = &models.User{
		ID:         m.nextUserID,
		Username:   username,
		Nickname:   nickname,
		AvatarPath: avatarPath,
		Password:   passwordHash,
	}
	return m.nextUserID, nil
}

func (m *memStore) GetUserByUsername(username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetUserByNickname(nickname string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Nickname == nickname {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetFriends(userID int64) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var friends []*models.User
	for edge := range m.edges {
		if edge[0] == userID {
			if u, ok := m.users[edge[1]]; ok {
				copied := *u
				friends = append(friends, &copied)
			}
		}
	}
	sort.Slice(friends, func(i, j int) bool { return friends[i].ID < friends[j].ID })
	return friends, nil
}

func (m *memStore) SaveMessage(fromUserID, toUserID int64, content, messageType string, timestamp time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsgID++
	m.messages = append(m.messages, &models.ChatMessage{
		ID:          m.nextMsgID,
		FromUserID:  fromUserID,
		ToUserID:    toUserID,
		Content:     content,
		MessageType: messageType,
		Timestamp:   timestamp,
	})
	return m.nextMsgID, nil
}

func (m *memStore) GetChatHistory(userID, friendID int64) ([]*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.ChatMessage
	for _, msg := range m.messages {
		if (msg.FromUserID == userID && msg.ToUserID == friendID) ||
			(msg.FromUserID == friendID && msg.ToUserID == userID) {
			copied := *msg
			result = append(result, &copied)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// addUser seeds a user directly, bypassing password hashing when the
// test does not exercise login.
func (m *memStore) addUser(username, nickname, passwordHash string) *models.User {
	id, _ := m.CreateUser(username, passwordHash, nickname, "/avatars/default.jpg")
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

// addFriends creates the symmetric edge, as the SQL store does.
func (m *memStore) addFriends(a, b int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[[2]int64{a, b}] = true
	m.edges[[2]int64{b, a}] = true
}

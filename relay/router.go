package relay

import (
	"errors"
	"log"
	"time"

	"chatrelay/models"
	"chatrelay/store"
)

// ErrRecipientNotFound marks a chat message whose target nickname did
// not resolve; the message is dropped and only logged, never retried.
var ErrRecipientNotFound = errors.New("recipient not found")

type Router struct {
	store Store
	hub   *Hub
}

func NewRouter(st Store, hub *Hub) *Router {
	return &Router{store: st, hub: hub}
}

// HandleChatMessage resolves the recipient, persists the message with a
// server-assigned timestamp, and forwards it if the recipient has a
// live session. Persistence happens even when the recipient is offline;
// forwarding is fire-and-forget.
func (r *Router) HandleChatMessage(from *models.UserInfo, toNickname, content, messageType string) error {
	to, err := r.store.GetUserByNickname(toNickname)
	if errors.Is(err, store.ErrNotFound) {
		return ErrRecipientNotFound
	}
	if err != nil {
		return err
	}

	timestamp := time.Now()
	if _, err := r.store.SaveMessage(from.ID, to.ID, content, messageType, timestamp); err != nil {
		return err
	}

	if target, ok := r.hub.Lookup(to.ID); ok {
		// 入队失败说明对方刚下线，丢弃即可
		if !target.sendFrame(NewMessageFrame(from, content, messageType, timestamp)) {
			log.Printf("message to user %d dropped: send queue unavailable", to.ID)
		}
	}
	return nil
}

// HandleHistoryRequest returns the full conversation between the
// requester and the named friend in ascending order. An unknown
// nickname yields an empty history, not an error.
func (r *Router) HandleHistoryRequest(userID int64, friendNickname string) ([]*models.HistoryMessage, error) {
	friend, err := r.store.GetUserByNickname(friendNickname)
	if errors.Is(err, store.ErrNotFound) {
		return []*models.HistoryMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	messages, err := r.store.GetChatHistory(userID, friend.ID)
	if err != nil {
		return nil, err
	}

	history := make([]*models.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, &models.HistoryMessage{
			Content:     m.Content,
			MessageType: m.MessageType,
			Timestamp:   m.Timestamp.Format(models.TimeLayout),
			IsSend:      m.FromUserID == userID,
		})
	}
	return history, nil
}

// HandleFriendsList returns the requester's neighbor set annotated with
// current presence.
func (r *Router) HandleFriendsList(userID int64) ([]*models.Friend, error) {
	users, err := r.store.GetFriends(userID)
	if err != nil {
		return nil, err
	}

	friends := make([]*models.Friend, 0, len(users))
	for _, u := range users {
		friends = append(friends, &models.Friend{
			ID:         u.ID,
			Username:   u.Username,
			Nickname:   u.Nickname,
			AvatarPath: u.AvatarPath,
			Online:     r.hub.IsOnline(u.ID),
		})
	}
	return friends, nil
}

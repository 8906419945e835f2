package models

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

type ChatMessage struct {
	ID          int64     `json:"message_id"`
	FromUserID  int64     `json:"from_user_id"`
	ToUserID    int64     `json:"to_user_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	Timestamp   time.Time `json:"timestamp"`
}

// TimeLayout 是发给客户端的时间格式
const TimeLayout = "2006-01-02 15:04:05"

// HistoryMessage is a history entry as the requesting client sees it:
// is_send marks messages the requester sent.
type HistoryMessage struct {
	Content     string `json:"content"`
	MessageType string `json:"type"`
	Timestamp   string `json:"timestamp"`
	IsSend      bool   `json:"is_send"`
}

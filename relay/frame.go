package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chatrelay/models"
)

// Client frame types. Every inbound frame carries a "type" discriminator
// and is decoded exactly once, here; unknown tags are rejected.
const (
	FrameLogin      = "login"
	FrameRegister   = "register"
	FrameGetFriends = "get_friends"
	FrameMessage    = "message"
	FrameGetHistory = "get_history"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

var (
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrMalformedFrame   = errors.New("malformed frame")
)

type ClientFrame interface {
	frameType() string
}

type LoginFrame struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterFrame struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type GetFriendsFrame struct {
	UserID int64 `json:"user_id"`
}

type ChatFrame struct {
	ToNickname  string `json:"to_nickname"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
}

type GetHistoryFrame struct {
	FriendNickname string `json:"friend_nickname"`
}

func (*LoginFrame) frameType() string      { return FrameLogin }
func (*RegisterFrame) frameType() string   { return FrameRegister }
func (*GetFriendsFrame) frameType() string { return FrameGetFriends }
func (*ChatFrame) frameType() string       { return FrameMessage }
func (*GetHistoryFrame) frameType() string { return FrameGetHistory }

// DecodeFrame parses one inbound frame. Undecodable payloads and frames
// missing required fields return ErrMalformedFrame; unrecognized type
// tags return ErrUnknownFrameType.
func DecodeFrame(data []byte) (ClientFrame, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch envelope.Type {
	case FrameLogin:
		var f LoginFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if f.Username == "" {
			return nil, fmt.Errorf("%w: login requires username", ErrMalformedFrame)
		}
		return &f, nil

	case FrameRegister:
		var f RegisterFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if f.Username == "" || f.Password == "" {
			return nil, fmt.Errorf("%w: register requires username and password", ErrMalformedFrame)
		}
		return &f, nil

	case FrameGetFriends:
		var f GetFriendsFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return &f, nil

	case FrameMessage:
		var f ChatFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if f.ToNickname == "" {
			return nil, fmt.Errorf("%w: message requires to_nickname", ErrMalformedFrame)
		}
		if f.MessageType == "" {
			f.MessageType = models.MessageTypeText
		}
		if f.MessageType != models.MessageTypeText && f.MessageType != models.MessageTypeImage {
			return nil, fmt.Errorf("%w: unsupported message_type %q", ErrMalformedFrame, f.MessageType)
		}
		return &f, nil

	case FrameGetHistory:
		var f GetHistoryFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if f.FriendNickname == "" {
			return nil, fmt.Errorf("%w: get_history requires friend_nickname", ErrMalformedFrame)
		}
		return &f, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, envelope.Type)
	}
}

// Server frames, shaped exactly as the desktop client consumes them.

type AuthFrame struct {
	Type     string           `json:"type"`
	Success  bool             `json:"success"`
	UserInfo *models.UserInfo `json:"user_info,omitempty"`
	Message  string           `json:"message,omitempty"`
}

func AuthSuccess(user *models.UserInfo) *AuthFrame {
	return &AuthFrame{Type: "auth", Success: true, UserInfo: user}
}

func AuthFailure(message string) *AuthFrame {
	return &AuthFrame{Type: "auth", Success: false, Message: message}
}

type FriendsListFrame struct {
	Type    string           `json:"type"`
	Friends []*models.Friend `json:"friends"`
}

func NewFriendsListFrame(friends []*models.Friend) *FriendsListFrame {
	if friends == nil {
		friends = []*models.Friend{}
	}
	return &FriendsListFrame{Type: "friends_list", Friends: friends}
}

type MessageFrame struct {
	Type         string `json:"type"`
	FromID       int64  `json:"from_id"`
	FromNickname string `json:"from_nickname"`
	Content      string `json:"content"`
	MessageType  string `json:"message_type"`
	Timestamp    string `json:"timestamp"`
}

func NewMessageFrame(from *models.UserInfo, content, messageType string, timestamp time.Time) *MessageFrame {
	return &MessageFrame{
		Type:         "message",
		FromID:       from.ID,
		FromNickname: from.Nickname,
		Content:      content,
		MessageType:  messageType,
		Timestamp:    timestamp.Format(models.TimeLayout),
	}
}

type HistoryFrame struct {
	Type     string                   `json:"type"`
	Messages []*models.HistoryMessage `json:"messages"`
}

func NewHistoryFrame(messages []*models.HistoryMessage) *HistoryFrame {
	if messages == nil {
		messages = []*models.HistoryMessage{}
	}
	return &HistoryFrame{Type: "history", Messages: messages}
}

type OnlineStatusFrame struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

func NewOnlineStatusFrame(userID int64, status string) *OnlineStatusFrame {
	return &OnlineStatusFrame{Type: "online_status", UserID: userID, Status: status}
}

package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLoginFrame(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"type":"login","username":"user1","password":"secret"}`))
	require.NoError(t, err)

	login, ok := frame.(*LoginFrame)
	require.True(t, ok)
	assert.Equal(t, "user1", login.Username)
	assert.Equal(t, "secret", login.Password)
}

func TestDecodeChatFrameDefaultsToText(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"type":"message","to_nickname":"李四","content":"你好"}`))
	require.NoError(t, err)

	chat, ok := frame.(*ChatFrame)
	require.True(t, ok)
	assert.Equal(t, "李四", chat.ToNickname)
	assert.Equal(t, "你好", chat.Content)
	assert.Equal(t, "text", chat.MessageType)
}

func TestDecodeChatFrameImageKind(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"type":"message","to_nickname":"李四","content":"cat.png","message_type":"image"}`))
	require.NoError(t, err)

	chat, ok := frame.(*ChatFrame)
	require.True(t, ok)
	assert.Equal(t, "image", chat.MessageType)
}

func TestDecodeGetHistoryFrame(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"type":"get_history","friend_nickname":"张三"}`))
	require.NoError(t, err)

	hist, ok := frame.(*GetHistoryFrame)
	require.True(t, ok)
	assert.Equal(t, "张三", hist.FriendNickname)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"type":"teleport","dest":"moon"}`))
	assert.ErrorIs(t, err, ErrUnknownFrameType)
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	cases := map[string]string{
		"not json":             `{"type":"login"`,
		"missing type":         `{"username":"a"}`,
		"login no username":    `{"type":"login","password":"x"}`,
		"register no password": `{"type":"register","username":"a"}`,
		"message no target":    `{"type":"message","content":"hi"}`,
		"message bad kind":     `{"type":"message","to_nickname":"a","content":"hi","message_type":"video"}`,
		"history no nickname":  `{"type":"get_history"}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(payload))
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

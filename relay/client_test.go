package relay

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chatrelay/config"
	"chatrelay/models"
)

func TestMain(m *testing.M) {
	config.Load()
	os.Exit(m.Run())
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func loginJSON(username, password string) []byte {
	return []byte(fmt.Sprintf(`{"type":"login","username":"%s","password":"%s"}`, username, password))
}

func TestLoginAuthenticatesRegistersAndAnnounces(t *testing.T) {
	st, hub, router, presence := newTestRig()

	user := st.addUser("user1", "张三", hashPassword(t, "secret"))
	friend := st.addUser("user2", "李四", "")
	st.addFriends(user.ID, friend.ID)

	friendClient := connectClient(hub, router, presence, st, friend)

	c := newClient(nil, hub, router, presence, st)
	closeAfter := c.handleFrame(loginJSON("user1", "secret"))
	assert.False(t, closeAfter)

	require.NotNil(t, c.user)
	assert.Equal(t, user.ID, c.user.ID)

	got, ok := hub.Lookup(user.ID)
	require.True(t, ok)
	assert.Same(t, c, got)

	auth := recvFrame(t, c)
	require.NotNil(t, auth)
	assert.Equal(t, "auth", auth["type"])
	assert.Equal(t, true, auth["success"])
	userInfo := auth["user_info"].(map[string]interface{})
	assert.Equal(t, float64(user.ID), userInfo["user_id"])
	assert.Equal(t, "user1", userInfo["username"])
	assert.Equal(t, "张三", userInfo["nickname"])

	status := recvFrame(t, friendClient)
	require.NotNil(t, status)
	assert.Equal(t, "online_status", status["type"])
	assert.Equal(t, float64(user.ID), status["user_id"])
	assert.Equal(t, "online", status["status"])
}

func TestLoginWrongPasswordAllowsRetry(t *testing.T) {
	st, hub, router, presence := newTestRig()
	user := st.addUser("user1", "张三", hashPassword(t, "secret"))

	c := newClient(nil, hub, router, presence, st)

	closeAfter := c.handleFrame(loginJSON("user1", "wrong"))
	assert.False(t, closeAfter)
	assert.Nil(t, c.user)
	assert.False(t, hub.IsOnline(user.ID))

	auth := recvFrame(t, c)
	require.NotNil(t, auth)
	assert.Equal(t, false, auth["success"])
	assert.NotEmpty(t, auth["message"])

	// Same connection, second attempt
	c.handleFrame(loginJSON("user1", "secret"))
	require.NotNil(t, c.user)
	assert.True(t, hub.IsOnline(user.ID))
}

func TestLoginUnknownUserFails(t *testing.T) {
	st, hub, router, presence := newTestRig()

	c := newClient(nil, hub, router, presence, st)
	c.handleFrame(loginJSON("ghost", "whatever"))

	assert.Nil(t, c.user)
	auth := recvFrame(t, c)
	require.NotNil(t, auth)
	assert.Equal(t, false, auth["success"])
}

func TestFramesBeforeLoginAreIgnored(t *testing.T) {
	st, hub, router, presence := newTestRig()
	st.addUser("user2", "李四", "")

	c := newClient(nil, hub, router, presence, st)

	closeAfter := c.handleFrame([]byte(`{"type":"message","to_nickname":"李四","content":"hi"}`))
	assert.False(t, closeAfter, "connection stays open")
	assert.Nil(t, recvFrame(t, c), "no reply before authentication")
	assert.Empty(t, st.messages, "nothing persisted before authentication")
}

func TestRegisterFrameIsShortLived(t *testing.T) {
	st, hub, router, presence := newTestRig()

	c := newClient(nil, hub, router, presence, st)
	closeAfter := c.handleFrame([]byte(`{"type":"register","username":"newuser","password":"secret","nickname":"新人"}`))
	assert.True(t, closeAfter, "registration connection closes after one exchange")

	auth := recvFrame(t, c)
	require.NotNil(t, auth)
	assert.Equal(t, true, auth["success"])
	userInfo := auth["user_info"].(map[string]interface{})
	assert.Equal(t, "newuser", userInfo["username"])
	assert.Equal(t, "新人", userInfo["nickname"])

	created, err := st.GetUserByUsername("newuser")
	require.NoError(t, err)
	assert.False(t, hub.IsOnline(created.ID), "registration must not establish a session")

	// Stored credential is a hash, not the password itself
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("secret")))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	st, hub, router, presence := newTestRig()
	st.addUser("taken", "Taken", "")

	c := newClient(nil, hub, router, presence, st)
	c.handleFrame([]byte(`{"type":"register","username":"taken","password":"secret","nickname":"x"}`))

	auth := recvFrame(t, c)
	require.NotNil(t, auth)
	assert.Equal(t, false, auth["success"])
	assert.Equal(t, "username already exists", auth["message"])
}

func TestSecondLoginDisplacesFirst(t *testing.T) {
	st, hub, router, presence := newTestRig()

	user := st.addUser("user1", "张三", hashPassword(t, "secret"))
	friend := st.addUser("user2", "李四", "")
	st.addFriends(user.ID, friend.ID)
	friendClient := connectClient(hub, router, presence, st, friend)

	first := newClient(nil, hub, router, presence, st)
	first.handleFrame(loginJSON("user1", "secret"))

	second := newClient(nil, hub, router, presence, st)
	second.handleFrame(loginJSON("user1", "secret"))

	got, ok := hub.Lookup(user.ID)
	require.True(t, ok)
	assert.Same(t, second, got)

	// Stale send to the displaced handle is a delivery failure, not a panic
	require.NotPanics(t, func() {
		assert.False(t, first.sendFrame(NewOnlineStatusFrame(user.ID, StatusOnline)))
	})

	// The displaced connection's teardown must not announce offline:
	// the user is still online through the second session.
	var statuses []string
	for {
		frame := recvFrame(t, friendClient)
		if frame == nil {
			break
		}
		if frame["type"] == "online_status" {
			statuses = append(statuses, frame["status"].(string))
		}
	}
	assert.Equal(t, []string{"online", "online"}, statuses)
	assert.True(t, hub.IsOnline(user.ID))
}

func TestTeardownRunsExactlyOnce(t *testing.T) {
	st, hub, router, presence := newTestRig()

	user := st.addUser("user1", "张三", "")
	friend := st.addUser("user2", "李四", "")
	st.addFriends(user.ID, friend.ID)
	friendClient := connectClient(hub, router, presence, st, friend)

	c := connectClient(hub, router, presence, st, user)
	c.teardown()
	c.teardown()
	c.Close()

	assert.False(t, hub.IsOnline(user.ID))

	var offline int
	for {
		frame := recvFrame(t, friendClient)
		if frame == nil {
			break
		}
		if frame["type"] == "online_status" && frame["status"] == "offline" {
			offline++
		}
	}
	assert.Equal(t, 1, offline)
}

func TestUnknownAndMalformedFramesKeepConnectionOpen(t *testing.T) {
	st, hub, router, presence := newTestRig()
	user := st.addUser("user1", "张三", "")

	c := connectClient(hub, router, presence, st, user)

	assert.False(t, c.handleFrame([]byte(`{"type":"teleport"}`)))
	assert.False(t, c.handleFrame([]byte(`not json at all`)))

	assert.Equal(t, int64(1), hub.UnknownFrames())
	assert.True(t, hub.IsOnline(user.ID))
	assert.Nil(t, recvFrame(t, c), "no protocol error frame is sent back")
}

func TestAuthenticatedDispatch(t *testing.T) {
	st, hub, router, presence := newTestRig()

	user := st.addUser("user1", "张三", "")
	friend := st.addUser("user2", "李四", "")
	st.addFriends(user.ID, friend.ID)

	c := connectClient(hub, router, presence, st, user)

	c.handleFrame([]byte(`{"type":"get_friends","user_id":1}`))
	frame := recvFrame(t, c)
	require.NotNil(t, frame)
	assert.Equal(t, "friends_list", frame["type"])
	friends := frame["friends"].([]interface{})
	require.Len(t, friends, 1)
	assert.Equal(t, "李四", friends[0].(map[string]interface{})["nickname"])

	c.handleFrame([]byte(`{"type":"get_history","friend_nickname":"不存在"}`))
	frame = recvFrame(t, c)
	require.NotNil(t, frame)
	assert.Equal(t, "history", frame["type"])
	assert.Empty(t, frame["messages"])

	c.handleFrame([]byte(`{"type":"message","to_nickname":"李四","content":"你好"}`))
	require.Len(t, st.messages, 1)
	assert.Equal(t, user.ID, st.messages[0].FromUserID)
	assert.Equal(t, friend.ID, st.messages[0].ToUserID)
	assert.Equal(t, models.MessageTypeText, st.messages[0].MessageType)
}

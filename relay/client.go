package relay

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"chatrelay/config"
	"chatrelay/models"
	"chatrelay/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. It starts unauthenticated; a
// successful login frame binds it to a user and registers it with the
// hub, and teardown undoes both exactly once.
type Client struct {
	ID string

	hub      *Hub
	router   *Router
	presence *Presence
	store    Store

	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
	once   sync.Once

	user *models.UserInfo // nil until login succeeds
}

func newClient(conn *websocket.Conn, hub *Hub, router *Router, presence *Presence, st Store) *Client {
	return &Client{
		ID:       uuid.New().String(),
		hub:      hub,
		router:   router,
		presence: presence,
		store:    st,
		conn:     conn,
		send:     make(chan []byte, 256),
	}
}

// enqueue hands data to the write pump without blocking. A false return
// means the client is gone or its queue is full; callers treat both as
// delivery failure. Never panics, even on a torn-down client.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendFrame(frame interface{}) bool {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("failed to encode frame: %v", err)
		return false
	}
	return c.enqueue(data)
}

// Close tears the connection down. Used by the hub caller when a second
// login displaces this session.
func (c *Client) Close() {
	c.teardown()
}

func (c *Client) teardown() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		if c.user != nil {
			// 仅在本连接仍是当前会话时广播下线，
			// 被顶号的旧连接不能把新会话标成离线
			if c.hub.Deregister(c.user.ID, c) {
				c.presence.AnnounceOffline(c.user.ID)
			}
		}
		// The write pump owns the socket: after the channel closes it
		// drains the frames still queued (a registration reply among
		// them), sends a close notice, and closes the connection in
		// its own defer. Closing the socket here would race the flush.
		close(c.send)
	})
}

func (c *Client) ReadPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}

		if c.handleFrame(data) {
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame dispatches one inbound frame. The return value asks the
// read loop to close the connection (registration is a single exchange).
func (c *Client) handleFrame(data []byte) bool {
	frame, err := DecodeFrame(data)
	if err != nil {
		if errors.Is(err, ErrUnknownFrameType) {
			c.hub.CountUnknownFrame()
		}
		log.Printf("client %s: dropping frame: %v", c.ID, err)
		return false
	}

	if c.user == nil {
		switch f := frame.(type) {
		case *LoginFrame:
			c.handleLogin(f)
		case *RegisterFrame:
			c.handleRegister(f)
			return true
		default:
			log.Printf("client %s: %s frame before login, ignored", c.ID, frame.frameType())
		}
		return false
	}

	switch f := frame.(type) {
	case *ChatFrame:
		if err := c.router.HandleChatMessage(c.user, f.ToNickname, f.Content, f.MessageType); err != nil {
			log.Printf("user %d: message to %q dropped: %v", c.user.ID, f.ToNickname, err)
		}

	case *GetFriendsFrame:
		friends, err := c.router.HandleFriendsList(c.user.ID)
		if err != nil {
			log.Printf("user %d: friends list failed: %v", c.user.ID, err)
			return false
		}
		c.sendFrame(NewFriendsListFrame(friends))

	case *GetHistoryFrame:
		history, err := c.router.HandleHistoryRequest(c.user.ID, f.FriendNickname)
		if err != nil {
			log.Printf("user %d: history request failed: %v", c.user.ID, err)
			history = nil
		}
		c.sendFrame(NewHistoryFrame(history))

	case *LoginFrame, *RegisterFrame:
		log.Printf("user %d: %s frame after login, ignored", c.user.ID, frame.frameType())
	}
	return false
}

func (c *Client) handleLogin(f *LoginFrame) {
	user, err := c.store.GetUserByUsername(f.Username)
	if errors.Is(err, store.ErrNotFound) {
		c.sendFrame(AuthFailure("invalid username or password"))
		return
	}
	if err != nil {
		log.Printf("login lookup failed for %q: %v", f.Username, err)
		c.sendFrame(AuthFailure("server error"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(f.Password)); err != nil {
		c.sendFrame(AuthFailure("invalid username or password"))
		return
	}

	info := user.ToInfo()
	c.user = info

	// 顶号：后登录者接管会话，旧连接被强制关闭
	if prior := c.hub.Register(info.ID, c); prior != nil {
		prior.Close()
	}

	c.sendFrame(AuthSuccess(info))
	c.presence.AnnounceOnline(info.ID)
	log.Printf("user %s (id=%d) logged in", info.Username, info.ID)
}

// handleRegister serves the short-lived registration exchange: one
// auth reply, then the caller closes the connection. No session is
// created here.
func (c *Client) handleRegister(f *RegisterFrame) {
	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), bcrypt.DefaultCost)
	if err != nil {
		c.sendFrame(AuthFailure("server error"))
		return
	}

	nickname := f.Nickname
	if nickname == "" {
		nickname = f.Username
	}

	userID, err := c.store.CreateUser(f.Username, string(hash), nickname, config.Cfg.DefaultAvatar)
	if errors.Is(err, store.ErrUsernameTaken) {
		c.sendFrame(AuthFailure("username already exists"))
		return
	}
	if err != nil {
		log.Printf("registration failed for %q: %v", f.Username, err)
		c.sendFrame(AuthFailure("server error"))
		return
	}

	c.sendFrame(AuthSuccess(&models.UserInfo{
		ID:         userID,
		Username:   f.Username,
		Nickname:   nickname,
		AvatarPath: config.Cfg.DefaultAvatar,
	}))
	log.Printf("user %s (id=%d) registered", f.Username, userID)
}

// HandleWebSocket upgrades the request and starts the connection's
// pumps. The connection stays unauthenticated until a login frame.
func HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := newClient(conn, HubInstance, RouterInstance, PresenceInstance, StoreInstance)

	go client.WritePump()
	go client.ReadPump()
}

package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"chatrelay/models"
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrNotFound      = errors.New("not found")
	ErrSelfFriend    = errors.New("cannot add yourself as friend")
)

// Store wraps all SQL against the chatrelay schema. Every method is
// synchronous and returns an explicit error instead of swallowing it.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(username, passwordHash, nickname, avatarPath string) (int64, error) {
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)", username).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrUsernameTaken
	}

	result, err := s.db.Exec(
		"INSERT INTO users (username, password, nickname, avatar_path) VALUES (?, ?, ?, ?)",
		username, passwordHash, nickname, avatarPath,
	)
	if err != nil {
		// 并发注册时两个事务都能通过 EXISTS 检查，
		// 输家撞上 uk_username 唯一键
		if isDuplicateKey(err) {
			return 0, ErrUsernameTaken
		}
		return 0, err
	}
	return result.LastInsertId()
}

// isDuplicateKey reports whether err is MySQL error 1062
// (ER_DUP_ENTRY), raised when an insert violates a unique key.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	return s.getUser("SELECT user_id, username, nickname, avatar_path, password FROM users WHERE username = ?", username)
}

func (s *Store) GetUserByNickname(nickname string) (*models.User, error) {
	return s.getUser("SELECT user_id, username, nickname, avatar_path, password FROM users WHERE nickname = ?", nickname)
}

func (s *Store) GetUserByID(userID int64) (*models.User, error) {
	return s.getUser("SELECT user_id, username, nickname, avatar_path, password FROM users WHERE user_id = ?", userID)
}

func (s *Store) getUser(query string, arg interface{}) (*models.User, error) {
	var user models.User
	var avatar sql.NullString
	err := s.db.QueryRow(query, arg).Scan(&user.ID, &user.Username, &user.Nickname, &avatar, &user.Password)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.AvatarPath = avatar.String
	return &user, nil
}

func (s *Store) UpdateUser(userID int64, nickname, avatarPath string) error {
	_, err := s.db.Exec(
		"UPDATE users SET nickname = COALESCE(NULLIF(?, ''), nickname), avatar_path = COALESCE(NULLIF(?, ''), avatar_path) WHERE user_id = ?",
		nickname, avatarPath, userID,
	)
	return err
}

// AddFriend inserts both edge directions in one transaction so the
// friendship table stays symmetric. Re-adding an existing pair is a no-op.
func (s *Store) AddFriend(userID, friendID int64) error {
	if userID == friendID {
		return ErrSelfFriend
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	for _, pair := range [][2]int64{{userID, friendID}, {friendID, userID}} {
		if _, err := tx.Exec(
			"INSERT IGNORE INTO friendships (user_id, friend_id) VALUES (?, ?)",
			pair[0], pair[1],
		); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// RemoveFriend deletes both directions; removing an absent pair is a no-op.
func (s *Store) RemoveFriend(userID, friendID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		"DELETE FROM friendships WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
		userID, friendID, friendID, userID,
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (s *Store) GetFriends(userID int64) ([]*models.User, error) {
	rows, err := s.db.Query(`
		SELECT u.user_id, u.username, u.nickname, u.avatar_path
		FROM users u
		INNER JOIN friendships f ON u.user_id = f.friend_id
		WHERE f.user_id = ?
		ORDER BY u.nickname`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []*models.User
	for rows.Next() {
		var user models.User
		var avatar sql.NullString
		if err := rows.Scan(&user.ID, &user.Username, &user.Nickname, &avatar); err != nil {
			return nil, err
		}
		user.AvatarPath = avatar.String
		friends = append(friends, &user)
	}
	return friends, rows.Err()
}

func (s *Store) SaveMessage(fromUserID, toUserID int64, content, messageType string, timestamp time.Time) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO chat_messages (from_user_id, to_user_id, content, message_type, timestamp) VALUES (?, ?, ?, ?, ?)",
		fromUserID, toUserID, content, messageType, timestamp,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetChatHistory returns every message between the pair in either
// direction, ascending; message_id breaks equal-timestamp ties so the
// order matches insertion order.
func (s *Store) GetChatHistory(userID, friendID int64) ([]*models.ChatMessage, error) {
	rows, err := s.db.Query(`
		SELECT message_id, from_user_id, to_user_id, content, message_type, timestamp
		FROM chat_messages
		WHERE (from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)
		ORDER BY timestamp, message_id`,
		userID, friendID, friendID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Content, &m.MessageType, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

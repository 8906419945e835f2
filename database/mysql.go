package database

import (
	"database/sql"
	"log"

	"chatrelay/config"

	_ "github.com/go-sql-driver/mysql"
)

var DB *sql.DB

func Connect() error {
	var err error
	DB, err = sql.Open("mysql", config.Cfg.MysqlDSN)
	if err != nil {
		return err
	}

	if err = DB.Ping(); err != nil {
		return err
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(5)

	log.Println("Database connected successfully")
	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
	}
}

func CreateTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id     BIGINT AUTO_INCREMENT PRIMARY KEY,
			username    VARCHAR(50) NOT NULL,
			password    VARCHAR(255) NOT NULL,
			nickname    VARCHAR(100) NOT NULL,
			avatar_path VARCHAR(255),
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uk_username (username)
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			user_id    BIGINT NOT NULL,
			friend_id  BIGINT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, friend_id),
			INDEX idx_friend (friend_id)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			message_id   BIGINT AUTO_INCREMENT PRIMARY KEY,
			from_user_id BIGINT NOT NULL,
			to_user_id   BIGINT NOT NULL,
			content      TEXT NOT NULL,
			message_type ENUM('text', 'image') DEFAULT 'text',
			timestamp    DATETIME NOT NULL,
			INDEX idx_pair_time (from_user_id, to_user_id, timestamp)
		)`,
	}

	for _, table := range tables {
		if _, err := DB.Exec(table); err != nil {
			return err
		}
	}

	log.Println("Database tables created successfully")
	return nil
}

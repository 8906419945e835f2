package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr    string
	MysqlDSN      string
	JWTSecret     string
	AvatarDir     string
	DefaultAvatar string
}

var Cfg *Config

func Load() {
	// .env 文件可选，缺失时直接读环境变量
	godotenv.Load()

	Cfg = &Config{
		ServerAddr:    ":" + getEnv("PORT", "8795"),
		MysqlDSN:      getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/chatrelay?charset=utf8mb4&parseTime=True&loc=Local"),
		JWTSecret:     getEnv("JWT_SECRET", "chatrelay-secret-key-change-in-production"),
		AvatarDir:     getEnv("AVATAR_DIR", "./avatars"),
		DefaultAvatar: getEnv("DEFAULT_AVATAR", "/avatars/default.jpg"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

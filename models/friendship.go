package models

// Friend is a friend-list entry annotated with live presence. The
// underlying edge table is symmetric; the store writes and removes
// both directions together.
type Friend struct {
	ID         int64  `json:"user_id"`
	Username   string `json:"username"`
	Nickname   string `json:"nickname"`
	AvatarPath string `json:"avatar_path"`
	Online     bool   `json:"online"`
}

package models

type User struct {
	ID         int64  `json:"user_id"`
	Username   string `json:"username"`
	Nickname   string `json:"nickname"`
	AvatarPath string `json:"avatar_path"`
	Password   string `json:"-"`
}

// UserInfo 是对外暴露的用户信息（不含密码哈希）
type UserInfo struct {
	ID         int64  `json:"user_id"`
	Username   string `json:"username"`
	Nickname   string `json:"nickname"`
	AvatarPath string `json:"avatar_path"`
}

func (u *User) ToInfo() *UserInfo {
	return &UserInfo{
		ID:         u.ID,
		Username:   u.Username,
		Nickname:   u.Nickname,
		AvatarPath: u.AvatarPath,
	}
}

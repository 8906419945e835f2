package handlers

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"chatrelay/config"
	"chatrelay/middleware"
	"chatrelay/store"
	"chatrelay/utils"
)

type UpdateUserRequest struct {
	Nickname   string `json:"nickname"`
	AvatarPath string `json:"avatar_path"`
}

func GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := db.GetUserByID(userID)
	if errors.Is(err, store.ErrNotFound) {
		utils.NotFound(c, "user not found")
		return
	}
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}

	utils.Success(c, user.ToInfo())
}

func UpdateCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := db.UpdateUser(userID, req.Nickname, req.AvatarPath); err != nil {
		utils.InternalError(c, "failed to update user")
		return
	}

	GetCurrentUser(c)
}

func UploadAvatar(c *gin.Context) {
	userID := middleware.GetUserID(c)

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		utils.BadRequest(c, "no file uploaded")
		return
	}
	defer file.Close()

	// 限制头像大小为 2MB
	maxSize := int64(2 * 1024 * 1024)
	if header.Size > maxSize {
		utils.BadRequest(c, "avatar too large (max 2MB)")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	allowedTypes := map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	if !allowedTypes[mimeType] {
		utils.BadRequest(c, "avatar must be an image (jpeg, png, gif, webp)")
		return
	}

	ext := filepath.Ext(header.Filename)
	filename := utils.GenerateUUID() + ext
	uploadPath := filepath.Join(config.Cfg.AvatarDir, filename)

	out, err := os.Create(uploadPath)
	if err != nil {
		utils.InternalError(c, "failed to save file")
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		utils.InternalError(c, "failed to save file")
		return
	}

	avatarPath := "/avatars/" + filename
	if err := db.UpdateUser(userID, "", avatarPath); err != nil {
		utils.InternalError(c, "failed to update avatar")
		return
	}

	utils.Success(c, gin.H{"avatar_path": avatarPath})
}

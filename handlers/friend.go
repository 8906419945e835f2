package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatrelay/middleware"
	"chatrelay/models"
	"chatrelay/relay"
	"chatrelay/store"
	"chatrelay/utils"
)

type AddFriendRequest struct {
	Username string `json:"username" binding:"required"`
}

func GetFriends(c *gin.Context) {
	userID := middleware.GetUserID(c)

	users, err := db.GetFriends(userID)
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}

	friends := make([]*models.Friend, 0, len(users))
	for _, u := range users {
		friends = append(friends, &models.Friend{
			ID:         u.ID,
			Username:   u.Username,
			Nickname:   u.Nickname,
			AvatarPath: u.AvatarPath,
			Online:     relay.HubInstance.IsOnline(u.ID),
		})
	}

	utils.Success(c, friends)
}

// AddFriend creates the symmetric edge immediately; there is no
// request/accept step.
func AddFriend(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req AddFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	friend, err := db.GetUserByUsername(req.Username)
	if errors.Is(err, store.ErrNotFound) {
		utils.NotFound(c, "user not found")
		return
	}
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}

	if err := db.AddFriend(userID, friend.ID); err != nil {
		if errors.Is(err, store.ErrSelfFriend) {
			utils.BadRequest(c, "cannot add yourself as friend")
			return
		}
		utils.InternalError(c, "failed to add friend")
		return
	}

	utils.Success(c, friend.ToInfo())
}

func DeleteFriend(c *gin.Context) {
	userID := middleware.GetUserID(c)

	friendID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "invalid user id")
		return
	}

	if err := db.RemoveFriend(userID, friendID); err != nil {
		utils.InternalError(c, "failed to delete friend")
		return
	}

	utils.Success(c, nil)
}

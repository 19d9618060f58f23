package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"anon-chat-server/internal/auth"
	"anon-chat-server/internal/middleware"
	"anon-chat-server/internal/store"
)

type UserHandler struct {
	Store        *store.Store
	TokenConfig  auth.TokenConfig
	SetupLimiter *middleware.RateLimiter
}

type setupUserBody struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (h *UserHandler) Setup(c *gin.Context) {
	var body setupUserBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}
	if body.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username is required."})
		return
	}
	if h.SetupLimiter != nil && !h.SetupLimiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Rate limit exceeded"})
		return
	}

	user, err := h.Store.CreateUser(body.Username, body.Avatar, time.Now().UnixMilli())
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Username already taken."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	token, err := auth.CreateToken(user.ID, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Token creation failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully.",
		"data": gin.H{
			"userID":   user.ID,
			"username": user.Username,
			"avatar":   user.Avatar,
			"token":    token,
		},
	})
}

func (h *UserHandler) Profile(c *gin.Context) {
	userID := c.Param("userID")

	user, ok := h.Store.GetUser(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

func (h *UserHandler) Leaderboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.Store.Leaderboard(10)})
}

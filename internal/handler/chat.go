package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"anon-chat-server/internal/middleware"
	"anon-chat-server/internal/store"
)

type ChatHandler struct {
	Store *store.Store
}

type createGroupBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

func (h *ChatHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid authentication token"})
		return
	}

	var body createGroupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}
	if body.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Group name and creator ID are required."})
		return
	}

	group, err := h.Store.CreateGroup(body.Name, body.Description, body.Type, userID, time.Now().UnixMilli())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Group chat created successfully.",
		"data":    group,
	})
}

func (h *ChatHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.Store.ListGroups()})
}

func (h *ChatHandler) Details(c *gin.Context) {
	groupID := c.Param("groupID")

	group, ok := h.Store.GetGroup(groupID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Group chat not found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": group})
}

func (h *ChatHandler) Messages(c *gin.Context) {
	groupID := c.Param("groupID")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid limit"})
			return
		}
		limit = v
	}

	if _, ok := h.Store.GetGroup(groupID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Group chat not found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.Store.ListMessages(groupID, limit)})
}

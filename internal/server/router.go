package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"anon-chat-server/internal/auth"
	"anon-chat-server/internal/handler"
	"anon-chat-server/internal/hub"
	"anon-chat-server/internal/middleware"
	"anon-chat-server/internal/store"
)

type Deps struct {
	Store       *store.Store
	Hub         *hub.Hub
	TokenConfig auth.TokenConfig
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	setupLimiter := middleware.NewRateLimiter(10, time.Minute)
	userHandler := &handler.UserHandler{Store: deps.Store, TokenConfig: deps.TokenConfig, SetupLimiter: setupLimiter}
	chatHandler := &handler.ChatHandler{Store: deps.Store}

	api := r.Group("/api")
	api.POST("/users/setup", userHandler.Setup)
	api.GET("/users/leaderboard", userHandler.Leaderboard)
	api.GET("/users/:userID", userHandler.Profile)

	api.POST("/chats", middleware.RequireAuth(deps.TokenConfig), chatHandler.Create)
	api.GET("/chats", chatHandler.List)
	api.GET("/chats/:groupID", chatHandler.Details)
	api.GET("/chats/:groupID/messages", chatHandler.Messages)

	wsHandler := &handler.WebSocketHandler{Hub: deps.Hub, TokenConfig: deps.TokenConfig}
	r.GET("/ws", wsHandler.Serve)

	return r
}

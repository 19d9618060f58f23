package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"anon-chat-server/internal/auth"
	"anon-chat-server/internal/config"
	"anon-chat-server/internal/feed"
	"anon-chat-server/internal/hub"
	"anon-chat-server/internal/server"
	"anon-chat-server/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	gin.SetMode(cfg.GinMode)

	bus := feed.NewBus()
	st := store.NewWithOptions(store.Options{StateFile: cfg.StateFile, Feed: bus})
	h := hub.NewWithOptions(hub.Deps{
		Directory: st,
		Messages:  st,
		Ledger:    st,
		Typing:    st,
		Feed:      bus,
	}, hub.Options{TypingTimeout: cfg.TypingTimeout})

	tokenCfg := auth.TokenConfig{
		Secret: cfg.MasterSecret,
		Expiry: cfg.TokenExpiry,
		Issuer: "anon-chat-server",
	}

	router := server.NewRouter(server.Deps{Store: st, Hub: h, TokenConfig: tokenCfg})
	log.Printf("listening on %s", fmt.Sprintf(":%d", cfg.Port))
	log.Fatal(server.Run(cfg, router))
}

package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"anon-chat-server/internal/auth"
	"anon-chat-server/internal/hub"
)

type WebSocketHandler struct {
	Hub         *hub.Hub
	TokenConfig auth.TokenConfig
}

type clientEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type registerPayload struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
}

type joinPayload struct {
	GroupID string `json:"groupID"`
	UserID  string `json:"userID"`
}

type typingPayload struct {
	GroupID  string `json:"groupID"`
	UserID   string `json:"userID"`
	IsTyping bool   `json:"isTyping"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) Write(message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

func (h *WebSocketHandler) Serve(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	claims, err := auth.VerifyToken(tokenString, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := hub.NewConn(&wsWriter{conn: ws})
	h.Hub.Attach(conn)
	defer func() {
		h.Hub.Disconnect(conn)
		_ = ws.Close()
	}()

	ws.SetReadLimit(1024 * 1024)
	const pongWait = 60 * time.Second
	const writeWait = 10 * time.Second
	pingPeriod := (pongWait * 9) / 10

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() {
		closeOnce.Do(func() {
			close(done)
		})
	}
	defer closeDone()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(writeWait)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					_ = ws.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var env clientEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			conn.SendError("Failed to process message.", err.Error())
			continue
		}
		h.dispatch(conn, claims.UserID, env)
	}
}

// dispatch routes one inbound envelope. A malformed payload or unknown type
// gets an error reply; the connection stays open and no state changes.
func (h *WebSocketHandler) dispatch(conn *hub.Conn, authedUserID string, env clientEnvelope) {
	switch env.Type {
	case "ping":
		_ = conn.Send(hub.Envelope{Type: "pong"})

	case "register_user_ws":
		var p registerPayload
		if !decodePayload(conn, env.Payload, &p) {
			return
		}
		if p.UserID != "" && p.UserID != authedUserID {
			conn.SendError("userID does not match authentication token.", "")
			return
		}
		h.Hub.Register(conn, p.UserID, p.Username)

	case "join_chat":
		var p joinPayload
		if !decodePayload(conn, env.Payload, &p) {
			return
		}
		h.Hub.Join(conn, p.GroupID, p.UserID)

	case "send_message":
		var p hub.SendMessageRequest
		if !decodePayload(conn, env.Payload, &p) {
			return
		}
		h.Hub.SendMessage(conn, p)

	case "add_reaction":
		var p hub.ReactionRequest
		if !decodePayload(conn, env.Payload, &p) {
			return
		}
		h.Hub.AddReaction(conn, p)

	case "remove_reaction":
		var p hub.ReactionRequest
		if !decodePayload(conn, env.Payload, &p) {
			return
		}
		h.Hub.RemoveReaction(conn, p)

	case "typing":
		var p typingPayload
		if !decodePayload(conn, env.Payload, &p) {
			return
		}
		h.Hub.Typing(conn, p.GroupID, p.UserID, p.IsTyping)

	default:
		conn.SendError("Unknown WebSocket message type.", "")
	}
}

func decodePayload(conn *hub.Conn, raw json.RawMessage, dst any) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		conn.SendError("Failed to process message.", err.Error())
		return false
	}
	return true
}

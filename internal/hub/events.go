package hub

import "anon-chat-server/internal/model"

// Envelope is the wire format in both directions: a JSON-text frame with a
// type tag and a type-specific payload.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessagePayload is shared by new_message and message_updated events.
type MessagePayload struct {
	GroupID string        `json:"groupID"`
	Message model.Message `json:"message"`
}

type UserTypingPayload struct {
	GroupID  string `json:"groupID"`
	UserID   string `json:"userID"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ActiveTyper struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type GroupTypingStatusPayload struct {
	GroupID      string        `json:"groupID"`
	ActiveTypers []ActiveTyper `json:"activeTypers"`
}

type ChatCreatedPayload struct {
	GroupChat model.ChatGroup `json:"groupChat"`
}

type LeaderboardPayload struct {
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}

package model

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	Points    int64  `json:"points"`
	CreatedAt int64  `json:"createdAt"`
}

type GroupMember struct {
	JoinedAt int64  `json:"joinedAt"`
	Role     string `json:"role"`
}

type ChatGroup struct {
	ID              string                 `json:"groupID"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Type            string                 `json:"type"`
	CreatedByUserID string                 `json:"createdByUserID"`
	CreatedAt       int64                  `json:"createdAt"`
	MemberCount     int                    `json:"memberCount"`
	Members         map[string]GroupMember `json:"members"`
}

// Message content is opaque to the server; EncryptedContent is relayed
// exactly as received and never inspected.
type Message struct {
	ID               string                     `json:"id"`
	SenderID         string                     `json:"senderID"`
	SenderUsername   string                     `json:"senderUsername"`
	SenderAvatar     string                     `json:"senderAvatar"`
	EncryptedContent string                     `json:"encryptedContent"`
	Timestamp        int64                      `json:"timestamp"`
	ReplyToMessageID string                     `json:"replyToMessageID,omitempty"`
	Reactions        map[string]map[string]bool `json:"reactions"`
}

type TypingEntry struct {
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}

type LeaderboardEntry struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	Points   int64  `json:"points"`
}

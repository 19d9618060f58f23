package hub

import (
	"github.com/google/uuid"

	"anon-chat-server/internal/model"
)

type SendMessageRequest struct {
	GroupID          string `json:"groupID"`
	SenderID         string `json:"senderID"`
	EncryptedContent string `json:"encryptedContent"`
	ReplyToMessageID string `json:"replyToMessageID"`
}

type ReactionRequest struct {
	GroupID   string `json:"groupID"`
	MessageID string `json:"messageID"`
	UserID    string `json:"userID"`
	Emoji     string `json:"emoji"`
}

// SendMessage validates and persists an inbound message, applies
// gamification side effects, and forces the sender's typing state idle.
// Delivery is store-mediated: the persisted append surfaces through the
// change feed, not a direct push from here.
func (h *Hub) SendMessage(c *Conn, req SendMessageRequest) {
	if req.GroupID == "" || req.SenderID == "" || req.EncryptedContent == "" {
		c.SendError("Missing message fields.", "")
		return
	}
	sender, ok := h.dir.GetUser(req.SenderID)
	if !ok {
		c.SendError("Sender not found.", "")
		return
	}

	msg := model.Message{
		ID:               uuid.NewString(),
		SenderID:         sender.ID,
		SenderUsername:   sender.Username,
		SenderAvatar:     sender.Avatar,
		EncryptedContent: req.EncryptedContent,
		Timestamp:        h.now().UnixMilli(),
		ReplyToMessageID: req.ReplyToMessageID,
		Reactions:        make(map[string]map[string]bool),
	}
	if err := h.msgs.AddMessage(req.GroupID, msg); err != nil {
		c.SendError("Failed to store message.", err.Error())
		return
	}

	h.grantPoints(sender.ID, pointsMessageSent)
	if req.ReplyToMessageID != "" {
		original, ok := h.msgs.GetMessage(req.GroupID, req.ReplyToMessageID)
		if ok && original.SenderID != sender.ID {
			h.grantPoints(original.SenderID, pointsReplyReceived)
		}
	}

	h.stopTyping(req.GroupID, sender.ID, sender.Username, true)
}

// AddReaction persists a reaction flag idempotently. The author is awarded
// points only when set membership actually changed, so repeated adds never
// double-grant. Broadcast is store-mediated via the item-changed event.
func (h *Hub) AddReaction(c *Conn, req ReactionRequest) {
	if req.GroupID == "" || req.MessageID == "" || req.UserID == "" || req.Emoji == "" {
		c.SendError("Missing reaction fields.", "")
		return
	}

	changed, err := h.msgs.SetReaction(req.GroupID, req.MessageID, req.UserID, req.Emoji)
	if err != nil {
		c.SendError("Failed to add reaction.", err.Error())
		return
	}
	if !changed {
		return
	}

	msg, ok := h.msgs.GetMessage(req.GroupID, req.MessageID)
	if ok && msg.SenderID != req.UserID {
		h.grantPoints(msg.SenderID, pointsReactionReceived)
	}
}

func (h *Hub) RemoveReaction(c *Conn, req ReactionRequest) {
	if req.GroupID == "" || req.MessageID == "" || req.UserID == "" || req.Emoji == "" {
		c.SendError("Missing reaction fields.", "")
		return
	}

	if _, err := h.msgs.RemoveReaction(req.GroupID, req.MessageID, req.UserID, req.Emoji); err != nil {
		c.SendError("Failed to remove reaction.", err.Error())
	}
}

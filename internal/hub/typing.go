package hub

import "time"

// Typing state machine. A (group,user) key is either absent (idle) or holds
// the last-typed timestamp plus the single pending expiry timer. Timer
// callbacks re-enter through the hub mutex and validate both the state
// pointer and its generation, so a fire that lost the race to a refresh,
// stop, or disconnect is a no-op.

type typingKey struct {
	groupID string
	userID  string
}

type typingState struct {
	username  string
	lastTyped int64
	timer     *time.Timer
	gen       int
}

// Typing handles an inbound typing event for a registered user.
func (h *Hub) Typing(c *Conn, groupID, userID string, isTyping bool) {
	if groupID == "" || userID == "" {
		c.SendError("groupID and userID are required for typing.", "")
		return
	}
	user, ok := h.dir.GetUser(userID)
	if !ok {
		c.SendError("User not found.", "")
		return
	}

	if isTyping {
		h.startTyping(groupID, user.ID, user.Username)
	} else {
		h.stopTyping(groupID, user.ID, user.Username, true)
	}
}

// startTyping is the Idle->Typing transition, or a refresh when already
// typing: the previous timer is cancelled and replaced, last event wins.
func (h *Hub) startTyping(groupID, userID, username string) {
	at := h.now().UnixMilli()
	key := typingKey{groupID: groupID, userID: userID}

	h.mu.Lock()
	st := h.typing[key]
	if st == nil {
		st = &typingState{}
		h.typing[key] = st
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	st.username = username
	st.lastTyped = at
	st.gen++
	gen := st.gen
	st.timer = time.AfterFunc(h.timeout, func() { h.expireTyping(key, st, gen) })
	h.mu.Unlock()

	h.typingStore.SetTyping(groupID, userID, username, at)
	h.broadcastToGroup(groupID, Envelope{
		Type:    "user_typing",
		Payload: UserTypingPayload{GroupID: groupID, UserID: userID, Username: username, IsTyping: true},
	}, userID)
}

// expireTyping fires when no refresh arrived within the timeout.
func (h *Hub) expireTyping(key typingKey, st *typingState, gen int) {
	h.mu.Lock()
	current := h.typing[key]
	if current != st || current.gen != gen {
		h.mu.Unlock()
		return
	}
	delete(h.typing, key)
	username := st.username
	h.mu.Unlock()

	changed := h.typingStore.ClearTyping(key.groupID, key.userID)
	if changed {
		h.broadcastToGroup(key.groupID, Envelope{
			Type:    "user_typing",
			Payload: UserTypingPayload{GroupID: key.groupID, UserID: key.userID, Username: username, IsTyping: false},
		}, "")
	}
}

// stopTyping is the Typing->Idle transition, driven by an explicit
// isTyping:false or by the user sending a message in the group.
func (h *Hub) stopTyping(groupID, userID, username string, broadcast bool) {
	key := typingKey{groupID: groupID, userID: userID}

	h.mu.Lock()
	st := h.typing[key]
	if st != nil {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(h.typing, key)
	}
	h.mu.Unlock()

	changed := h.typingStore.ClearTyping(groupID, userID)
	if broadcast && (st != nil || changed) {
		h.broadcastToGroup(groupID, Envelope{
			Type:    "user_typing",
			Payload: UserTypingPayload{GroupID: groupID, UserID: userID, Username: username, IsTyping: false},
		}, "")
	}
}

package hub

import (
	"sort"

	"anon-chat-server/internal/feed"
	"anon-chat-server/internal/model"
)

// Change-feed bridge: translates backing-store mutation events into typed
// socket broadcasts. Group feeds attach on a group's 0->1 subscriber
// transition and detach on 1->0; global feeds live for the hub's lifetime.

func (h *Hub) attachGroupFeeds(groupID string) []feed.Subscription {
	return []feed.Subscription{
		h.bus.Subscribe(feed.MessagesPath(groupID), feed.ItemAdded, func(ev feed.Event) {
			msg, ok := ev.Data.(model.Message)
			if !ok {
				return
			}
			h.broadcastToGroup(groupID, Envelope{
				Type:    "new_message",
				Payload: MessagePayload{GroupID: groupID, Message: msg},
			}, "")
		}),
		h.bus.Subscribe(feed.MessagesPath(groupID), feed.ItemChanged, func(ev feed.Event) {
			msg, ok := ev.Data.(model.Message)
			if !ok {
				return
			}
			h.broadcastToGroup(groupID, Envelope{
				Type:    "message_updated",
				Payload: MessagePayload{GroupID: groupID, Message: msg},
			}, "")
		}),
		h.bus.Subscribe(feed.TypingPath(groupID), feed.StateChanged, func(ev feed.Event) {
			h.broadcastToGroup(groupID, Envelope{
				Type:    "group_typing_status",
				Payload: GroupTypingStatusPayload{GroupID: groupID, ActiveTypers: h.activeTypers(groupID)},
			}, "")
		}),
	}
}

func (h *Hub) attachGlobalFeeds() []feed.Subscription {
	return []feed.Subscription{
		h.bus.Subscribe(feed.GroupChatsPath, feed.ItemAdded, func(ev feed.Event) {
			group, ok := ev.Data.(model.ChatGroup)
			if !ok {
				return
			}
			h.broadcastToAll(Envelope{Type: "chat_created", Payload: ChatCreatedPayload{GroupChat: group}})
		}),
		h.bus.Subscribe(feed.UsersPath, feed.StateChanged, func(ev feed.Event) {
			h.broadcastToAll(Envelope{Type: "leaderboard_update", Payload: LeaderboardPayload{Leaderboard: h.dir.Leaderboard(10)}})
		}),
	}
}

// activeTypers recomputes the live typer list at delivery time, dropping
// any persisted entry older than the typing timeout. The persisted store
// may lag a local expiry (or the reverse); the recomputed list is emitted
// instead of the raw snapshot.
func (h *Hub) activeTypers(groupID string) []ActiveTyper {
	cutoff := h.now().UnixMilli() - h.timeout.Milliseconds()

	typers := make([]ActiveTyper, 0)
	for userID, entry := range h.typingStore.TypingSnapshot(groupID) {
		if entry.Timestamp <= cutoff {
			continue
		}
		typers = append(typers, ActiveTyper{UserID: userID, Username: entry.Username, IsTyping: true})
	}
	sort.Slice(typers, func(i, j int) bool { return typers[i].UserID < typers[j].UserID })
	return typers
}

package store

import (
	"sort"

	"anon-chat-server/internal/feed"
	"anon-chat-server/internal/model"
)

func (s *Store) AddMessage(groupID string, msg model.Message) error {
	s.mu.Lock()
	if _, ok := s.groupsByID[groupID]; !ok {
		s.mu.Unlock()
		return ErrGroupNotFound
	}
	byID, ok := s.messagesByGroup[groupID]
	if !ok {
		byID = make(map[string]model.Message)
		s.messagesByGroup[groupID] = byID
	}
	byID[msg.ID] = msg
	s.messageOrder[groupID] = append(s.messageOrder[groupID], msg.ID)
	s.mu.Unlock()

	s.bus.Publish(feed.Event{Path: feed.MessagesPath(groupID), Class: feed.ItemAdded, Data: msg})
	return nil
}

func (s *Store) GetMessage(groupID, messageID string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messagesByGroup[groupID][messageID]
	if !ok {
		return model.Message{}, false
	}
	return copyMessage(msg), true
}

func (s *Store) ListMessages(groupID string, limit int) []model.Message {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	ids := s.messageOrder[groupID]
	result := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		result = append(result, copyMessage(s.messagesByGroup[groupID][id]))
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp < result[j].Timestamp })
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

// SetReaction records a per-user reaction flag. Adding a reaction the user
// already placed is a no-op; the returned bool reports whether membership
// actually changed, and an item-changed event fires only in that case.
func (s *Store) SetReaction(groupID, messageID, userID, emoji string) (bool, error) {
	s.mu.Lock()
	msg, ok := s.messagesByGroup[groupID][messageID]
	if !ok {
		s.mu.Unlock()
		return false, ErrMessageNotFound
	}
	if msg.Reactions[emoji][userID] {
		s.mu.Unlock()
		return false, nil
	}
	msg = copyMessage(msg)
	if msg.Reactions == nil {
		msg.Reactions = make(map[string]map[string]bool)
	}
	if msg.Reactions[emoji] == nil {
		msg.Reactions[emoji] = make(map[string]bool)
	}
	msg.Reactions[emoji][userID] = true
	s.messagesByGroup[groupID][messageID] = msg
	s.mu.Unlock()

	s.bus.Publish(feed.Event{Path: feed.MessagesPath(groupID), Class: feed.ItemChanged, Data: msg})
	return true, nil
}

func (s *Store) RemoveReaction(groupID, messageID, userID, emoji string) (bool, error) {
	s.mu.Lock()
	msg, ok := s.messagesByGroup[groupID][messageID]
	if !ok {
		s.mu.Unlock()
		return false, ErrMessageNotFound
	}
	if !msg.Reactions[emoji][userID] {
		s.mu.Unlock()
		return false, nil
	}
	msg = copyMessage(msg)
	delete(msg.Reactions[emoji], userID)
	if len(msg.Reactions[emoji]) == 0 {
		delete(msg.Reactions, emoji)
	}
	s.messagesByGroup[groupID][messageID] = msg
	s.mu.Unlock()

	s.bus.Publish(feed.Event{Path: feed.MessagesPath(groupID), Class: feed.ItemChanged, Data: msg})
	return true, nil
}

func copyMessage(msg model.Message) model.Message {
	if msg.Reactions == nil {
		return msg
	}
	reactions := make(map[string]map[string]bool, len(msg.Reactions))
	for emoji, users := range msg.Reactions {
		set := make(map[string]bool, len(users))
		for id, v := range users {
			set[id] = v
		}
		reactions[emoji] = set
	}
	msg.Reactions = reactions
	return msg
}

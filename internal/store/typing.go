package store

import (
	"anon-chat-server/internal/feed"
	"anon-chat-server/internal/model"
)

// Typing entries are ephemeral: never persisted to the state file, dropped
// entirely when the process restarts.

func (s *Store) SetTyping(groupID, userID, username string, atMillis int64) {
	s.mu.Lock()
	byUser, ok := s.typingByGroup[groupID]
	if !ok {
		byUser = make(map[string]model.TypingEntry)
		s.typingByGroup[groupID] = byUser
	}
	byUser[userID] = model.TypingEntry{Username: username, Timestamp: atMillis}
	s.mu.Unlock()

	s.bus.Publish(feed.Event{Path: feed.TypingPath(groupID), Class: feed.StateChanged})
}

// ClearTyping removes the persisted entry if present and reports whether
// anything changed. No event fires for an absent entry.
func (s *Store) ClearTyping(groupID, userID string) bool {
	s.mu.Lock()
	byUser, ok := s.typingByGroup[groupID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if _, present := byUser[userID]; !present {
		s.mu.Unlock()
		return false
	}
	delete(byUser, userID)
	if len(byUser) == 0 {
		delete(s.typingByGroup, groupID)
	}
	s.mu.Unlock()

	s.bus.Publish(feed.Event{Path: feed.TypingPath(groupID), Class: feed.StateChanged})
	return true
}

func (s *Store) TypingSnapshot(groupID string) map[string]model.TypingEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := s.typingByGroup[groupID]
	snapshot := make(map[string]model.TypingEntry, len(byUser))
	for id, entry := range byUser {
		snapshot[id] = entry
	}
	return snapshot
}

package store

import (
	"errors"
	"testing"

	"anon-chat-server/internal/feed"
)

func TestCreateUser(t *testing.T) {
	s := New()

	user, err := s.CreateUser("alice", "https://example.com/a.png", 1000)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected generated user ID")
	}
	if user.Points != 0 {
		t.Fatalf("expected zero starting points, got %d", user.Points)
	}

	got, ok := s.GetUser(user.ID)
	if !ok || got.Username != "alice" {
		t.Fatalf("expected to find alice, got %+v ok=%v", got, ok)
	}

	byName, ok := s.GetUserByUsername("alice")
	if !ok || byName.ID != user.ID {
		t.Fatalf("lookup by username mismatch")
	}
}

func TestCreateUser_DefaultAvatar(t *testing.T) {
	s := New()

	user, err := s.CreateUser("bob", "", 1000)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Avatar == "" {
		t.Fatalf("expected a default avatar to be assigned")
	}
}

func TestCreateUser_Validation(t *testing.T) {
	s := New()

	if _, err := s.CreateUser("", "", 1000); !errors.Is(err, ErrMissingUsername) {
		t.Fatalf("expected ErrMissingUsername, got %v", err)
	}

	if _, err := s.CreateUser("carol", "", 1000); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := s.CreateUser("carol", "", 2000); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestIncrementPoints(t *testing.T) {
	s := New()

	user, err := s.CreateUser("alice", "", 1000)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := s.IncrementPoints(user.ID, 3); err != nil {
		t.Fatalf("IncrementPoints failed: %v", err)
	}
	if err := s.IncrementPoints(user.ID, 1); err != nil {
		t.Fatalf("IncrementPoints failed: %v", err)
	}

	got, _ := s.GetUser(user.ID)
	if got.Points != 4 {
		t.Fatalf("expected 4 points, got %d", got.Points)
	}

	if err := s.IncrementPoints("missing", 1); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLeaderboard(t *testing.T) {
	s := New()

	alice, _ := s.CreateUser("alice", "", 1000)
	bob, _ := s.CreateUser("bob", "", 1000)
	if _, err := s.CreateUser("carol", "", 1000); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := s.IncrementPoints(alice.ID, 5); err != nil {
		t.Fatalf("IncrementPoints failed: %v", err)
	}
	if err := s.IncrementPoints(bob.ID, 9); err != nil {
		t.Fatalf("IncrementPoints failed: %v", err)
	}

	entries := s.Leaderboard(2)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Username != "bob" || entries[0].Points != 9 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Username != "alice" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestLeaderboard_TieBreaksByUsername(t *testing.T) {
	s := New()

	if _, err := s.CreateUser("zed", "", 1000); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := s.CreateUser("amy", "", 1000); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	entries := s.Leaderboard(10)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Username != "amy" || entries[1].Username != "zed" {
		t.Fatalf("expected username tie-break, got %+v", entries)
	}
}

func TestCreateGroup(t *testing.T) {
	s := New()

	group, err := s.CreateGroup("lounge", "general chatter", "", "user-1", 1000)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.Type != "public" {
		t.Fatalf("expected default type public, got %q", group.Type)
	}
	if group.MemberCount != 1 {
		t.Fatalf("expected creator counted as member, got %d", group.MemberCount)
	}
	member, ok := group.Members["user-1"]
	if !ok || member.Role != "admin" {
		t.Fatalf("expected creator as admin member, got %+v", group.Members)
	}

	got, ok := s.GetGroup(group.ID)
	if !ok || got.Name != "lounge" {
		t.Fatalf("expected to find group, got %+v ok=%v", got, ok)
	}
}

func TestCreateGroup_Validation(t *testing.T) {
	s := New()

	if _, err := s.CreateGroup("", "", "", "user-1", 1000); err == nil {
		t.Fatalf("expected error for missing name")
	}
	if _, err := s.CreateGroup("lounge", "", "", "", 1000); err == nil {
		t.Fatalf("expected error for missing creator")
	}
}

func TestListGroups_SortedByCreation(t *testing.T) {
	s := New()

	if _, err := s.CreateGroup("second", "", "", "u", 2000); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if _, err := s.CreateGroup("first", "", "", "u", 1000); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	groups := s.ListGroups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "first" || groups[1].Name != "second" {
		t.Fatalf("expected creation order, got %+v", groups)
	}
}

func TestStore_PublishesFeedEvents(t *testing.T) {
	bus := feed.NewBus()
	s := NewWithOptions(Options{Feed: bus})

	var userEvents, groupEvents int
	bus.Subscribe(feed.UsersPath, feed.StateChanged, func(feed.Event) { userEvents++ })
	bus.Subscribe(feed.GroupChatsPath, feed.ItemAdded, func(feed.Event) { groupEvents++ })

	user, err := s.CreateUser("alice", "", 1000)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := s.IncrementPoints(user.ID, 1); err != nil {
		t.Fatalf("IncrementPoints failed: %v", err)
	}
	if _, err := s.CreateGroup("lounge", "", "", user.ID, 1000); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if userEvents != 2 {
		t.Fatalf("expected 2 user events, got %d", userEvents)
	}
	if groupEvents != 1 {
		t.Fatalf("expected 1 group event, got %d", groupEvents)
	}
}

package store

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"anon-chat-server/internal/feed"
	"anon-chat-server/internal/model"
)

var (
	ErrMissingUsername = errors.New("missing username")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrMessageNotFound = errors.New("message not found")
)

var defaultAvatars = []string{
	"https://api.multiavatar.com/anonymous1.png",
	"https://api.multiavatar.com/anonymous2.png",
	"https://api.multiavatar.com/anonymous3.png",
	"https://api.multiavatar.com/anonymous4.png",
	"https://api.multiavatar.com/anonymous5.png",
}

// Store is the in-memory backing store. Every mutation publishes a change
// event on the feed bus after the store lock is released, so subscribers
// observe mutations in commit order without re-entering the store.
type Store struct {
	mu sync.RWMutex

	stateFile string
	persistMu sync.Mutex

	usersByID    map[string]model.User
	userIDByName map[string]string

	groupsByID map[string]model.ChatGroup

	messagesByGroup map[string]map[string]model.Message
	messageOrder    map[string][]string

	typingByGroup map[string]map[string]model.TypingEntry

	bus *feed.Bus
}

type Options struct {
	StateFile string
	Feed      *feed.Bus
}

func New() *Store {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *Store {
	bus := opts.Feed
	if bus == nil {
		bus = feed.NewBus()
	}
	s := &Store{
		stateFile:       opts.StateFile,
		usersByID:       make(map[string]model.User),
		userIDByName:    make(map[string]string),
		groupsByID:      make(map[string]model.ChatGroup),
		messagesByGroup: make(map[string]map[string]model.Message),
		messageOrder:    make(map[string][]string),
		typingByGroup:   make(map[string]map[string]model.TypingEntry),
		bus:             bus,
	}

	if s.stateFile != "" {
		if err := s.loadStateFromFile(s.stateFile); err != nil {
			log.Printf("state persistence: load failed (%s): %v", s.stateFile, err)
		}
	}

	return s
}

// Feed exposes the change-notification bus the store publishes on.
func (s *Store) Feed() *feed.Bus {
	return s.bus
}

func (s *Store) CreateUser(username, avatar string, nowMillis int64) (model.User, error) {
	if username == "" {
		return model.User{}, ErrMissingUsername
	}
	if avatar == "" {
		avatar = defaultAvatars[rand.Intn(len(defaultAvatars))]
	}

	s.mu.Lock()
	if _, taken := s.userIDByName[username]; taken {
		s.mu.Unlock()
		return model.User{}, ErrUsernameTaken
	}
	user := model.User{
		ID:        uuid.NewString(),
		Username:  username,
		Avatar:    avatar,
		Points:    0,
		CreatedAt: nowMillis,
	}
	s.usersByID[user.ID] = user
	s.userIDByName[username] = user.ID
	snapshot := s.snapshotStateLocked()
	s.mu.Unlock()

	s.persistStateSnapshot(snapshot)
	s.bus.Publish(feed.Event{Path: feed.UsersPath, Class: feed.StateChanged, Data: user})
	return user, nil
}

func (s *Store) GetUser(userID string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[userID]
	return user, ok
}

func (s *Store) GetUserByUsername(username string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByName[username]
	if !ok {
		return model.User{}, false
	}
	return s.usersByID[id], true
}

// IncrementPoints applies a transactional point delta for the gamification
// ledger. Callers treat failures as best-effort.
func (s *Store) IncrementPoints(userID string, delta int64) error {
	s.mu.Lock()
	user, ok := s.usersByID[userID]
	if !ok {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	user.Points += delta
	s.usersByID[userID] = user
	snapshot := s.snapshotStateLocked()
	s.mu.Unlock()

	s.persistStateSnapshot(snapshot)
	s.bus.Publish(feed.Event{Path: feed.UsersPath, Class: feed.StateChanged, Data: user})
	return nil
}

func (s *Store) Leaderboard(limit int) []model.LeaderboardEntry {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	entries := make([]model.LeaderboardEntry, 0, len(s.usersByID))
	for id, user := range s.usersByID {
		entries = append(entries, model.LeaderboardEntry{
			UserID:   id,
			Username: user.Username,
			Points:   user.Points,
		})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Username < entries[j].Username
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func (s *Store) CreateGroup(name, description, groupType, createdByUserID string, nowMillis int64) (model.ChatGroup, error) {
	if name == "" {
		return model.ChatGroup{}, errors.New("missing group name")
	}
	if createdByUserID == "" {
		return model.ChatGroup{}, errors.New("missing creator id")
	}
	if groupType == "" {
		groupType = "public"
	}

	group := model.ChatGroup{
		ID:              uuid.NewString(),
		Name:            name,
		Description:     description,
		Type:            groupType,
		CreatedByUserID: createdByUserID,
		CreatedAt:       nowMillis,
		MemberCount:     1,
		Members: map[string]model.GroupMember{
			createdByUserID: {JoinedAt: nowMillis, Role: "admin"},
		},
	}

	s.mu.Lock()
	s.groupsByID[group.ID] = group
	snapshot := s.snapshotStateLocked()
	s.mu.Unlock()

	s.persistStateSnapshot(snapshot)
	s.bus.Publish(feed.Event{Path: feed.GroupChatsPath, Class: feed.ItemAdded, Data: group})
	return group, nil
}

func (s *Store) GetGroup(groupID string) (model.ChatGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groupsByID[groupID]
	return group, ok
}

func (s *Store) ListGroups() []model.ChatGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.ChatGroup, 0, len(s.groupsByID))
	for _, group := range s.groupsByID {
		result = append(result, group)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt < result[j].CreatedAt })
	return result
}

type persistedStateFile struct {
	Version int               `json:"version"`
	Users   []model.User      `json:"users"`
	Groups  []model.ChatGroup `json:"groups"`
	SavedAt int64             `json:"savedAt"`
}

func (s *Store) loadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file persistedStateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version != 1 {
		return errors.New("unsupported state file version")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range file.Users {
		if u.ID == "" || u.Username == "" {
			continue
		}
		s.usersByID[u.ID] = u
		s.userIDByName[u.Username] = u.ID
	}
	for _, g := range file.Groups {
		if g.ID == "" {
			continue
		}
		s.groupsByID[g.ID] = g
	}
	return nil
}

func (s *Store) snapshotStateLocked() *persistedStateFile {
	if s.stateFile == "" {
		return nil
	}

	file := &persistedStateFile{Version: 1}
	for _, u := range s.usersByID {
		file.Users = append(file.Users, u)
	}
	sort.Slice(file.Users, func(i, j int) bool { return file.Users[i].ID < file.Users[j].ID })
	for _, g := range s.groupsByID {
		file.Groups = append(file.Groups, g)
	}
	sort.Slice(file.Groups, func(i, j int) bool { return file.Groups[i].ID < file.Groups[j].ID })
	return file
}

func (s *Store) persistStateSnapshot(file *persistedStateFile) {
	if file == nil {
		return
	}
	path := s.stateFile

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Printf("state persistence: mkdir failed (%s): %v", dir, err)
		return
	}

	file.SavedAt = time.Now().UnixMilli()
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		log.Printf("state persistence: marshal failed: %v", err)
		return
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		log.Printf("state persistence: create temp failed: %v", err)
		return
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		log.Printf("state persistence: chmod temp failed: %v", err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		log.Printf("state persistence: write temp failed: %v", err)
		return
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		log.Printf("state persistence: sync temp failed: %v", err)
		return
	}
	if err := tmp.Close(); err != nil {
		log.Printf("state persistence: close temp failed: %v", err)
		return
	}
	if err := os.Rename(tmpName, path); err != nil {
		log.Printf("state persistence: rename failed: %v", err)
		return
	}
}

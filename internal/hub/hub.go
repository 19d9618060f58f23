// Package hub is the real-time relay core: the registry of live
// connections, per-group subscription tracking, the typing-indicator state
// machine, the change-feed bridge, and the ingest handlers that couple
// persistence to gamification.
//
// All hub state lives behind one mutex. The mutex is never held across a
// collaborator call, so any check made before such a call is re-validated
// after it.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"anon-chat-server/internal/feed"
	"anon-chat-server/internal/model"
)

const DefaultTypingTimeout = 7 * time.Second

const (
	pointsMessageSent      = 1
	pointsReplyReceived    = 2
	pointsReactionReceived = 3
)

// Writer is the transport-level send half of a connection.
type Writer interface {
	Write(message []byte) error
	Close() error
}

// Conn is one live client connection. UserID and Username are set on
// registration; the groups set tracks its subscriptions for cleanup. All
// fields besides ID and writer are guarded by the hub mutex.
type Conn struct {
	ID       string
	UserID   string
	Username string

	writer Writer
	groups map[string]struct{}
}

func NewConn(w Writer) *Conn {
	return &Conn{ID: uuid.NewString(), writer: w, groups: make(map[string]struct{})}
}

func (c *Conn) Send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.writer.Write(data)
}

func (c *Conn) SendError(message, details string) {
	_ = c.Send(Envelope{Type: "error", Payload: ErrorPayload{Message: message, Details: details}})
}

// Collaborator seams. The backing store satisfies all of them.

type Directory interface {
	GetUser(userID string) (model.User, bool)
	GetGroup(groupID string) (model.ChatGroup, bool)
	Leaderboard(limit int) []model.LeaderboardEntry
}

type MessageStore interface {
	AddMessage(groupID string, msg model.Message) error
	GetMessage(groupID, messageID string) (model.Message, bool)
	SetReaction(groupID, messageID, userID, emoji string) (bool, error)
	RemoveReaction(groupID, messageID, userID, emoji string) (bool, error)
}

type Ledger interface {
	IncrementPoints(userID string, delta int64) error
}

type TypingStore interface {
	SetTyping(groupID, userID, username string, atMillis int64)
	ClearTyping(groupID, userID string) bool
	TypingSnapshot(groupID string) map[string]model.TypingEntry
}

type Deps struct {
	Directory Directory
	Messages  MessageStore
	Ledger    Ledger
	Typing    TypingStore
	Feed      *feed.Bus
}

type Options struct {
	TypingTimeout time.Duration
	Now           func() time.Time
}

type Hub struct {
	dir         Directory
	msgs        MessageStore
	ledger      Ledger
	typingStore TypingStore
	bus         *feed.Bus

	timeout time.Duration
	now     func() time.Time

	mu          sync.Mutex
	conns       map[string]*Conn               // connection id -> conn
	connByUser  map[string]*Conn               // userID -> its single live conn
	groupSubs   map[string]map[string]struct{} // groupID -> subscribed userIDs
	groupFeeds  map[string][]feed.Subscription // groupID -> change-feed handles
	typing      map[typingKey]*typingState
	globalFeeds []feed.Subscription
}

func New(deps Deps) *Hub {
	return NewWithOptions(deps, Options{})
}

func NewWithOptions(deps Deps, opts Options) *Hub {
	timeout := opts.TypingTimeout
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	h := &Hub{
		dir:         deps.Directory,
		msgs:        deps.Messages,
		ledger:      deps.Ledger,
		typingStore: deps.Typing,
		bus:         deps.Feed,
		timeout:     timeout,
		now:         now,
		conns:       make(map[string]*Conn),
		connByUser:  make(map[string]*Conn),
		groupSubs:   make(map[string]map[string]struct{}),
		groupFeeds:  make(map[string][]feed.Subscription),
		typing:      make(map[typingKey]*typingState),
	}
	h.globalFeeds = h.attachGlobalFeeds()
	return h
}

// Close detaches the global feed subscriptions. Per-group feeds are
// detached as their last subscriber leaves.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.globalFeeds
	h.globalFeeds = nil
	h.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}

// Attach makes a transport-level connection known to the registry, before
// any user identity is bound to it.
func (h *Hub) Attach(c *Conn) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
}

// Register binds a userID to the connection. A userID already bound to a
// live connection evicts that connection first: last registration wins.
func (h *Hub) Register(c *Conn, userID, username string) {
	if userID == "" || username == "" {
		c.SendError("userID and username are required for registration.", "")
		return
	}

	h.mu.Lock()
	if _, attached := h.conns[c.ID]; !attached {
		h.mu.Unlock()
		return
	}
	var cleared []typingKey
	old := h.connByUser[userID]
	if old != nil && old != c {
		cleared = append(cleared, h.detachLocked(old)...)
	}
	if c.UserID != "" && c.UserID != userID {
		cleared = append(cleared, h.unbindLocked(c)...)
	}
	c.UserID = userID
	c.Username = username
	h.connByUser[userID] = c
	h.mu.Unlock()

	if old != nil && old != c {
		log.Printf("hub: user %s already connected, closing old connection", userID)
		_ = old.writer.Close()
	}
	h.clearTypingEntries(cleared)
	log.Printf("hub: user %s (%s) registered", username, userID)
}

// Lookup returns the live connection for a userID, if any.
func (h *Hub) Lookup(userID string) (*Conn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.connByUser[userID]
	return c, ok
}

// Join subscribes the connection's user to a group. The group's change-feed
// subscriptions attach exactly once, on the 0->1 subscriber transition.
func (h *Hub) Join(c *Conn, groupID, userID string) {
	if groupID == "" || userID == "" {
		c.SendError("groupID and userID are required to join chat.", "")
		return
	}
	if c.UserID == "" || c.UserID != userID {
		c.SendError("Connection is not registered as this user.", "")
		return
	}
	if _, ok := h.dir.GetGroup(groupID); !ok {
		c.SendError("Group chat not found.", "")
		return
	}

	h.mu.Lock()
	if _, attached := h.conns[c.ID]; !attached {
		h.mu.Unlock()
		return
	}
	set := h.groupSubs[groupID]
	if set == nil {
		set = make(map[string]struct{})
		h.groupSubs[groupID] = set
	}
	first := len(set) == 0
	set[userID] = struct{}{}
	c.groups[groupID] = struct{}{}
	if first {
		h.groupFeeds[groupID] = h.attachGroupFeeds(groupID)
	}
	h.mu.Unlock()

	log.Printf("hub: user %s joined group %s", userID, groupID)
}

// Disconnect tears the connection down: registry entry, group
// subscriptions (cancelling feeds on each 1->0 transition), and every
// pending typing timer owned by its user.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	cleared := h.detachLocked(c)
	h.mu.Unlock()

	h.clearTypingEntries(cleared)
	_ = c.writer.Close()
}

// detachLocked removes the connection from the registry and unbinds its
// identity. Returns typing keys whose persisted entries still need clearing
// once the hub mutex is released.
func (h *Hub) detachLocked(c *Conn) []typingKey {
	if _, attached := h.conns[c.ID]; !attached {
		return nil
	}
	delete(h.conns, c.ID)
	return h.unbindLocked(c)
}

func (h *Hub) unbindLocked(c *Conn) []typingKey {
	if c.UserID == "" {
		return nil
	}
	if h.connByUser[c.UserID] == c {
		delete(h.connByUser, c.UserID)
	}

	for groupID := range c.groups {
		set := h.groupSubs[groupID]
		if set == nil {
			continue
		}
		delete(set, c.UserID)
		if len(set) == 0 {
			delete(h.groupSubs, groupID)
			for _, sub := range h.groupFeeds[groupID] {
				sub.Cancel()
			}
			delete(h.groupFeeds, groupID)
		}
	}
	c.groups = make(map[string]struct{})

	var cleared []typingKey
	for key, st := range h.typing {
		if key.userID != c.UserID {
			continue
		}
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(h.typing, key)
		cleared = append(cleared, key)
	}
	return cleared
}

// clearTypingEntries removes persisted typing entries outside the hub
// mutex; the resulting state-change events drive any remaining broadcast.
func (h *Hub) clearTypingEntries(keys []typingKey) {
	for _, key := range keys {
		h.typingStore.ClearTyping(key.groupID, key.userID)
	}
}

// broadcastToGroup fans a serialized event out to every subscribed user's
// live connection, best-effort: closed or missing connections are skipped,
// never queued or retried.
func (h *Hub) broadcastToGroup(groupID string, env Envelope, excludeUserID string) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("hub: marshal broadcast failed: %v", err)
		return
	}

	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.groupSubs[groupID]))
	for userID := range h.groupSubs[groupID] {
		if userID == excludeUserID {
			continue
		}
		if c := h.connByUser[userID]; c != nil {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.writer.Write(data)
	}
}

func (h *Hub) broadcastToAll(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("hub: marshal broadcast failed: %v", err)
		return
	}

	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.connByUser))
	for _, c := range h.connByUser {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.writer.Write(data)
	}
}

func (h *Hub) grantPoints(userID string, delta int64) {
	if err := h.ledger.IncrementPoints(userID, delta); err != nil {
		log.Printf("gamification: increment for %s failed: %v", userID, err)
	}
}

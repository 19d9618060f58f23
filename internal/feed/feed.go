// Package feed is the change-notification bridge between the backing store
// and the relay hub. Subscribers attach to a path and event class and get
// called synchronously, in subscription order, whenever the store publishes
// a mutation on that path.
package feed

import (
	"sort"
	"sync"
)

type Class int

const (
	ItemAdded Class = iota
	ItemChanged
	StateChanged
)

// Event carries the mutated record. Handlers must not retain Data past the
// call; re-read the store if fresher state is needed at delivery time.
type Event struct {
	Path  string
	Class Class
	Data  any
}

type Handler func(Event)

type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[Class]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[Class]map[int]Handler)}
}

// Subscription is the cancellation handle returned by Subscribe. The zero
// value is inert.
type Subscription struct {
	bus   *Bus
	path  string
	class Class
	id    int
}

func (b *Bus) Subscribe(path string, class Class, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	byClass, ok := b.subs[path]
	if !ok {
		byClass = make(map[Class]map[int]Handler)
		b.subs[path] = byClass
	}
	handlers, ok := byClass[class]
	if !ok {
		handlers = make(map[int]Handler)
		byClass[class] = handlers
	}

	b.nextID++
	handlers[b.nextID] = fn
	return Subscription{bus: b, path: path, class: class, id: b.nextID}
}

func (s Subscription) Cancel() {
	if s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	byClass, ok := s.bus.subs[s.path]
	if !ok {
		return
	}
	handlers := byClass[s.class]
	delete(handlers, s.id)
	if len(handlers) == 0 {
		delete(byClass, s.class)
	}
	if len(byClass) == 0 {
		delete(s.bus.subs, s.path)
	}
}

// Publish invokes matching handlers in subscription order. The bus lock is
// released before any handler runs, so handlers may subscribe, cancel, or
// publish again.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	var ids []int
	handlers := b.subs[ev.Path][ev.Class]
	for id := range handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	snapshot := make([]Handler, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, handlers[id])
	}
	b.mu.Unlock()

	for _, fn := range snapshot {
		fn(ev)
	}
}

// Path helpers for the backing tree shared by the store and the hub.

func MessagesPath(groupID string) string {
	return "messages/" + groupID
}

func TypingPath(groupID string) string {
	return "typing_indicators/" + groupID
}

const (
	GroupChatsPath = "group_chats"
	UsersPath      = "users"
)

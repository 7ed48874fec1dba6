package ws

import "sync"

// FilesChanged is published whenever any file record in a workspace is
// created, updated, renamed or deleted. Independently rendered views
// (explorer, editor, preview) subscribe instead of polling.
type FilesChanged struct {
	WorkspaceID string
}

// Bus is a typed publish/subscribe channel for FilesChanged events.
// Delivery is synchronous and in publish order; handlers must not block.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(FilesChanged)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(FilesChanged))}
}

// Subscribe registers a handler and returns an unsubscribe function.
func (b *Bus) Subscribe(fn func(FilesChanged)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers ev to every current subscriber.
func (b *Bus) Publish(ev FilesChanged) {
	b.mu.Lock()
	handlers := make([]func(FilesChanged), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

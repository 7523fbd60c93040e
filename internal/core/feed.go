package core

import "sync"

// Feed fans received messages out to local observers. Slow observers lose
// messages rather than stall the session.
type Feed struct {
	mu   sync.RWMutex
	subs map[chan Message]struct{}
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[chan Message]struct{})}
}

// Subscribe registers an observer with the given buffer size. The returned
// function unregisters it and closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Message, func()) {
	ch := make(chan Message, buffer)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers m to every observer that has room for it.
func (f *Feed) Publish(m Message) {
	if f == nil {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

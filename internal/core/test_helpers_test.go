package core

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

type published struct {
	Topic string
	Data  []byte
}

type fakeNetwork struct {
	mu        sync.Mutex
	peers     map[string]struct{}
	published chan published
	err       error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		peers:     make(map[string]struct{}),
		published: make(chan published, 8),
	}
}

func (n *fakeNetwork) Publish(_ context.Context, topic string, data []byte) error {
	if n.err != nil {
		return n.err
	}
	n.published <- published{Topic: topic, Data: data}
	return nil
}

func (n *fakeNetwork) AddPeer(rec PeerRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[rec.ID] = struct{}{}
}

func (n *fakeNetwork) RemovePeer(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.peers, id)
}

func (n *fakeNetwork) hasPeer(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.peers[id]
	return ok
}

type fakePresence map[string]bool

func (p fakePresence) HasPeer(id string) bool {
	return p[id]
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func mustPublished(t *testing.T, ch <-chan published) published {
	t.Helper()

	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("expected a publish, got none")
		return published{}
	}
}

func noPublish(t *testing.T, ch <-chan published, wait time.Duration) {
	t.Helper()

	select {
	case p := <-ch:
		t.Fatalf("unexpected publish on %q: %s", p.Topic, p.Data)
	case <-time.After(wait):
	}
}

// eventually polls cond until it holds or two seconds pass.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

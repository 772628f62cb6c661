package session

import (
	"sync"

	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
)

// notification is one identity-change message from the provider.
type notification struct {
	identity *models.Identity
	err      error
}

// mailbox is an unbounded single-consumer queue. push never blocks, so the
// provider may deliver notifications from inside a handler (sign-out during
// orphan recovery) without deadlocking the consumer.
type mailbox struct {
	mu     sync.Mutex
	queue  []notification
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) push(n notification) {
	m.mu.Lock()
	m.queue = append(m.queue, n)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) drain() []notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

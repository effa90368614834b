// Package locking provides the per-order mutual exclusion the payment
// orchestrators require: two concurrent operations on the same order could
// otherwise race past their precondition checks and double-act remotely.
package locking

import (
	"context"
	"sync"
)

type slot struct {
	sem  chan struct{}
	refs int
}

// Memory serializes callers per key within a single process. Suitable when
// the gateway runs as one instance; multi-instance deployments use Redis.
// Slots are reference-counted and removed once the last interested caller is
// gone, so the map stays bounded by in-flight operations, not by order ids
// ever seen.
type Memory struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string]*slot)}
}

func (m *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
		return func() {
			<-s.sem
			m.put(key, s)
		}, nil
	case <-ctx.Done():
		m.put(key, s)
		return nil, ctx.Err()
	}
}

func (m *Memory) put(key string, s *slot) {
	m.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
	m.mu.Unlock()
}

package state_stores

import (
	"context"
	"sync"
	"time"

	"github.com/paolobietolini/atac-realtime/config"
	"google.golang.org/protobuf/proto"
)

type InMemoryState struct {
	msg        proto.Message
	expiration time.Time
}

type InMemoryStateStore struct {
	ttl       time.Duration
	states    map[string]*InMemoryState
	mu        sync.RWMutex
	done      chan struct{}
	closeOnce sync.Once
}

func NewInMemoryStateStore(config config.InMemoryStateStoreConfig) *InMemoryStateStore {
	if config.Expiry == 0 {
		config.Expiry = time.Hour
	}
	s := &InMemoryStateStore{
		ttl:    config.Expiry,
		states: make(map[string]*InMemoryState),
		done:   make(chan struct{}),
	}
	go s.expire()
	return s
}

func (s *InMemoryStateStore) Get(_ context.Context, key string, new func() proto.Message) (proto.Message, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[key]
	if !ok || state.expiration.Before(time.Now()) {
		return new(), false, nil
	}
	return proto.Clone(state.msg), true, nil
}

func (s *InMemoryStateStore) Set(_ context.Context, key string, msg proto.Message, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl == 0 {
		ttl = s.ttl
	}
	s.states[key] = &InMemoryState{
		msg:        proto.Clone(msg),
		expiration: time.Now().Add(ttl),
	}
	return nil
}

func (s *InMemoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}

func (s *InMemoryStateStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *InMemoryStateStore) expire() {
	// Sweep at 1/10th of TTL, with a floor of 10s
	sweepInterval := s.ttl / 10
	if sweepInterval < 10*time.Second {
		sweepInterval = 10 * time.Second
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for key, state := range s.states {
				if state.expiration.Before(now) {
					delete(s.states, key)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

package shell

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Factory builds the Shell for a new session.
type Factory func() (*Shell, error)

type entry struct {
	shell    *Shell
	lastSeen time.Time
}

// Registry keeps one Shell per open page. Sessions vanish when deleted, when
// idle for longer than the TTL, or when the process exits.
type Registry struct {
	mu      sync.Mutex
	shells  map[string]*entry
	factory Factory
	ttl     time.Duration
	now     func() time.Time
}

// NewRegistry returns a registry whose sessions expire after ttl without a
// request. A ttl of zero or less keeps them until deleted.
func NewRegistry(factory Factory, ttl time.Duration) *Registry {
	return &Registry{
		shells:  make(map[string]*entry),
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *Registry) Create() (string, *Shell, error) {
	sh, err := r.factory()
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shells[id] = &entry{shell: sh, lastSeen: r.now()}
	return id, sh, nil
}

// Get returns the session and marks it as used.
func (r *Registry) Get(id string) (*Shell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.shells[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e.shell, nil
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shells[id]; !ok {
		return false
	}
	delete(r.shells, id)
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shells)
}

// Sweep drops sessions idle for longer than the TTL and reports how many.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	n := 0
	for id, e := range r.shells {
		if e.lastSeen.Before(cutoff) {
			delete(r.shells, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

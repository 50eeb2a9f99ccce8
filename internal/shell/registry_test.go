package shell

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestRegistry(ttl time.Duration) *Registry {
	return NewRegistry(func() (*Shell, error) { return New(nil, nil), nil }, ttl)
}

func TestRegistryLifecycle(t *testing.T) {
	r := newTestRegistry(0)

	id, sh, err := r.Create()
	if err != nil || id == "" || sh == nil {
		t.Fatalf("expected a session, got %q %v", id, err)
	}
	got, err := r.Get(id)
	if err != nil || got != sh {
		t.Fatalf("Get(%q) = %p, %v", id, got, err)
	}

	other, _, _ := r.Create()
	if other == id || r.Len() != 2 {
		t.Errorf("expected two distinct sessions, got %q %q len=%d", id, other, r.Len())
	}

	if !r.Delete(id) {
		t.Error("expected delete to succeed")
	}
	if r.Delete(id) {
		t.Error("second delete should report false")
	}
	if _, err := r.Get(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistryFactoryError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry(func() (*Shell, error) { return nil, boom }, 0)
	if _, _, err := r.Create(); !errors.Is(err, boom) {
		t.Errorf("expected factory error, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("failed create should not register, len=%d", r.Len())
	}
}

func TestRegistrySweepsIdleSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRegistry(10 * time.Minute)
	r.now = func() time.Time { return now }

	idle, _, _ := r.Create()
	busy, _, _ := r.Create()

	now = now.Add(6 * time.Minute)
	if _, err := r.Get(busy); err != nil {
		t.Fatal(err)
	}
	now = now.Add(6 * time.Minute)

	if n := r.Sweep(); n != 1 {
		t.Errorf("expected one expired session, got %d", n)
	}
	if _, err := r.Get(idle); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("idle session should be gone, got %v", err)
	}
	if _, err := r.Get(busy); err != nil {
		t.Errorf("recently used session should survive: %v", err)
	}
}

func TestRegistryWithoutTTLNeverSweeps(t *testing.T) {
	r := newTestRegistry(0)
	r.Create()
	r.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	if n := r.Sweep(); n != 0 || r.Len() != 1 {
		t.Errorf("expected no expiry, swept %d len=%d", n, r.Len())
	}
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	r := newTestRegistry(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

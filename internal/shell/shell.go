// Package shell owns one editing session: the composition, the drag
// controller, the item overlays and the compositor. Every event runs under
// one lock and ends with at most one redraw, triggered by the store's change
// events rather than by the caller.
package shell

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/youruser/canvasapp/internal/composition"
	"github.com/youruser/canvasapp/internal/drag"
	imagepkg "github.com/youruser/canvasapp/internal/image"
	"github.com/youruser/canvasapp/internal/itemview"
)

type Shell struct {
	mu         sync.Mutex
	store      *composition.Store
	drag       *drag.Controller
	views      *itemview.Views
	compositor *imagepkg.Compositor
	logger     *slog.Logger
	dirty      bool
}

// State is the read-only snapshot handed to the page after each event.
type State struct {
	Items   []itemview.View `json:"items"`
	Drag    *drag.Session   `json:"drag,omitempty"`
	Redraws int             `json:"redraws"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
}

func New(compositor *imagepkg.Compositor, logger *slog.Logger, opts ...composition.Option) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	if compositor == nil {
		compositor = imagepkg.NewCompositor(imagepkg.WithLogger(logger))
	}
	s := &Shell{
		store:      composition.NewStore(opts...),
		compositor: compositor,
		logger:     logger,
	}
	s.drag = drag.New(s.store, logger)
	s.views = itemview.New(s.store, s.drag)
	s.store.Subscribe(s.onChange)
	return s
}

// onChange runs synchronously inside the mutating call, so s.mu is held.
func (s *Shell) onChange(c composition.Change) {
	s.dirty = true
	if c.Kind == composition.ChangeRemoved {
		for _, id := range c.IDs {
			s.drag.Forget(id)
			s.views.Forget(id)
			s.compositor.Evict(id)
		}
	}
}

// flush redraws once if anything changed since the last pass.
func (s *Shell) flush(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	if err := s.compositor.Redraw(ctx, s.store.Items()); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Shell) known(id string) bool {
	return s.store.IndexOf(id) >= 0
}

// AddImages appends assets at the origin with the default size.
func (s *Shell) AddImages(ctx context.Context, assets ...composition.Asset) ([]composition.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := s.store.Add(assets...)
	if len(added) > 0 {
		s.logger.Info("images added", "count", len(added), "total", s.store.Len())
	}
	return added, s.flush(ctx)
}

// RemoveImage removes the item at index; out of range is a no-op.
func (s *Shell) RemoveImage(ctx context.Context, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.store.RemoveAt(index)
	return removed, s.flush(ctx)
}

// SetPosition and SetSize are the programmatic setters; sizes are not clamped.
func (s *Shell) SetPosition(ctx context.Context, index int, pos composition.Position) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.store.SetPosition(index, pos)
	return ok, s.flush(ctx)
}

func (s *Shell) SetSize(ctx context.Context, index int, size composition.Size) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.store.SetSize(index, size)
	return ok, s.flush(ctx)
}

// Resize is the resize-handle path: the size is clamped before it is stored.
// Overlay events address items by id; unknown ids are no-ops.
func (s *Shell) Resize(ctx context.Context, id string, size composition.Size) (composition.Size, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known(id) {
		return composition.Size{}, false, nil
	}
	committed, ok := s.views.Resize(id, size)
	return committed, ok, s.flush(ctx)
}

// Hover toggles the overlay affordances of item id.
func (s *Shell) Hover(id string, hovered bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known(id) {
		return false
	}
	if hovered {
		s.views.Enter(id)
	} else {
		s.views.Leave(id)
	}
	return true
}

// RemoveViaOverlay is the remove affordance of item id. A repeated click
// finds the id gone and changes nothing.
func (s *Shell) RemoveViaOverlay(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.views.Remove(id)
	return removed, s.flush(ctx)
}

func (s *Shell) PointerDown(x, y int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.PointerDown(x, y)
}

func (s *Shell) PointerMove(ctx context.Context, x, y int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := s.drag.PointerMove(x, y)
	return moved, s.flush(ctx)
}

func (s *Shell) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.PointerUp()
}

func (s *Shell) DragStart(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views.DragStart(id)
}

func (s *Shell) DragOver(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := s.views.DragOver(id)
	return moved, s.flush(ctx)
}

func (s *Shell) DragEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views.DragEnd()
}

// Batch applies several mutations under one lock with a single redraw.
func (s *Shell) Batch(ctx context.Context, fn func(*composition.Store)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
	return s.flush(ctx)
}

// Redraw forces a paint pass regardless of pending changes.
func (s *Shell) Redraw(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	return s.flush(ctx)
}

func (s *Shell) Items() []composition.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Items()
}

func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Items:   s.views.Render(),
		Redraws: s.compositor.Redraws(),
		Width:   composition.SurfaceWidth,
		Height:  composition.SurfaceHeight,
	}
	if sess, ok := s.drag.Session(); ok {
		st.Drag = &sess
	}
	return st
}

func (s *Shell) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compositor.Export(w)
}

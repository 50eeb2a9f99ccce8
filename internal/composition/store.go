package composition

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds the ordered items of one composition. Index order is insertion
// order minus removals; ids stay stable for the item's whole life.
type Store struct {
	mu        sync.RWMutex
	items     []Item
	listeners []Listener
	newID     func() string
}

type Option func(*Store)

// WithIDFunc replaces the uuid generator, mostly for tests.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func NewStore(opts ...Option) *Store {
	s := &Store{newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for every future change.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) emit(c Change) {
	s.mu.RLock()
	ls := make([]Listener, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.RUnlock()
	for _, fn := range ls {
		fn(c)
	}
}

// Add appends assets at the origin with the default size, keeping their
// relative order. The appended items are returned.
func (s *Store) Add(assets ...Asset) []Item {
	if len(assets) == 0 {
		return nil
	}
	s.mu.Lock()
	added := make([]Item, 0, len(assets))
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		it := Item{
			ID:       s.newID(),
			Asset:    a,
			Position: Position{},
			Size:     Size{Width: DefaultWidth, Height: DefaultHeight},
		}
		s.items = append(s.items, it)
		added = append(added, it)
		ids = append(ids, it.ID)
	}
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeAdded, IDs: ids})
	return added
}

// RemoveAt drops the item at index. Out of range is a no-op.
func (s *Store) RemoveAt(index int) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	id := s.items[index].ID
	s.items = append(s.items[:index:index], s.items[index+1:]...)
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeRemoved, IDs: []string{id}})
	return true
}

// Remove drops the item with the given id. Unknown ids are a no-op.
func (s *Store) Remove(id string) bool {
	idx := s.IndexOf(id)
	if idx < 0 {
		return false
	}
	return s.RemoveAt(idx)
}

// SetPosition replaces the position at index.
func (s *Store) SetPosition(index int, pos Position) bool {
	return s.update(index, ChangeMoved, func(it *Item) bool {
		if it.Position == pos {
			return false
		}
		it.Position = pos
		return true
	})
}

// SetSize replaces the size at index without clamping.
func (s *Store) SetSize(index int, size Size) bool {
	return s.update(index, ChangeResized, func(it *Item) bool {
		if it.Size == size {
			return false
		}
		it.Size = size
		return true
	})
}

// ResizeInteractive clamps size to [MinSide, MaxSide] per axis before
// committing it. It returns the committed size.
func (s *Store) ResizeInteractive(index int, size Size) (Size, bool) {
	clamped := size.Clamp()
	if !s.SetSize(index, clamped) {
		return Size{}, false
	}
	return clamped, true
}

func (s *Store) SetPositionByID(id string, pos Position) bool {
	return s.SetPosition(s.IndexOf(id), pos)
}

func (s *Store) SetSizeByID(id string, size Size) bool {
	return s.SetSize(s.IndexOf(id), size)
}

// MoveBy adds (dx, dy) to the position of the item with id. It fails with
// ErrItemNotFound once the item is gone.
func (s *Store) MoveBy(id string, dx, dy int) (Position, error) {
	var moved Position
	found := false
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Position.X += dx
			s.items[i].Position.Y += dy
			moved = s.items[i].Position
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return Position{}, ErrItemNotFound
	}
	s.emit(Change{Kind: ChangeMoved, IDs: []string{id}})
	return moved, nil
}

func (s *Store) update(index int, kind ChangeKind, fn func(*Item) bool) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	changed := fn(&s.items[index])
	id := s.items[index].ID
	s.mu.Unlock()

	if changed {
		s.emit(Change{Kind: kind, IDs: []string{id}})
	}
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// At returns a copy of the item at index.
func (s *Store) At(index int) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.items) {
		return Item{}, false
	}
	return s.items[index], true
}

func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// IndexOf returns the current index of id, or -1.
func (s *Store) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Items returns a snapshot in index order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Assets, Positions and Sizes are parallel views of the same snapshot.
func (s *Store) Assets() []Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Asset, len(s.items))
	for i, it := range s.items {
		out[i] = it.Asset
	}
	return out
}

func (s *Store) Positions() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Position, len(s.items))
	for i, it := range s.items {
		out[i] = it.Position
	}
	return out
}

func (s *Store) Sizes() []Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Size, len(s.items))
	for i, it := range s.items {
		out[i] = it.Size
	}
	return out
}

// HitTest returns the lowest index whose bounding box contains (x, y).
func (s *Store) HitTest(x, y int) (Item, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, it := range s.items {
		if it.Contains(x, y) {
			return it, i, true
		}
	}
	return Item{}, -1, false
}

// Package drag implements the pointer state machine that moves items on the
// composition surface.
//
// Two gestures can relocate an item: a press-move-release directly on the
// surface, and a drag started on an item overlay that relocates the dragged
// item when it hovers another overlay. Both run through one Controller so
// there is a single owner of the dragged item at any time. A surface press
// always wins: it replaces an overlay drag, while an overlay drag cannot start
// during a surface drag.
//
// Controller is not safe for concurrent use; callers serialize events.
package drag

import (
	"log/slog"

	"github.com/youruser/canvasapp/internal/composition"
)

// Items is the part of the composition store the controller needs.
type Items interface {
	HitTest(x, y int) (composition.Item, int, bool)
	Get(id string) (composition.Item, bool)
	MoveBy(id string, dx, dy int) (composition.Position, error)
	SetPositionByID(id string, pos composition.Position) bool
}

type Source int

const (
	SourceCanvas Source = iota
	SourceOverlay
)

func (s Source) String() string {
	switch s {
	case SourceCanvas:
		return "canvas"
	case SourceOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// Session exists between press and release.
type Session struct {
	ItemID      string               `json:"item_id"`
	Source      Source               `json:"-"`
	LastPointer composition.Position `json:"last_pointer"`
	// Carried is the item position captured when an overlay drag began.
	Carried composition.Position `json:"carried"`
}

type Controller struct {
	items   Items
	session *Session
	logger  *slog.Logger
}

func New(items Items, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{items: items, logger: logger}
}

// PointerDown grabs the lowest-index item under (x, y). It reports whether a
// drag started.
func (c *Controller) PointerDown(x, y int) bool {
	it, idx, ok := c.items.HitTest(x, y)
	if !ok {
		return false
	}
	if c.session != nil && c.session.Source == SourceOverlay {
		c.logger.Debug("surface press replaces overlay drag", "item_id", c.session.ItemID)
	}
	c.session = &Session{
		ItemID:      it.ID,
		Source:      SourceCanvas,
		LastPointer: composition.Position{X: x, Y: y},
	}
	c.logger.Debug("drag started", "item_id", it.ID, "index", idx, "x", x, "y", y)
	return true
}

// PointerMove applies the delta since the previous pointer to the grabbed
// item. Every call with a live session produces one update. If the item was
// removed in the meantime the session is dropped and nothing moves.
func (c *Controller) PointerMove(x, y int) bool {
	if c.session == nil || c.session.Source != SourceCanvas {
		return false
	}
	dx := x - c.session.LastPointer.X
	dy := y - c.session.LastPointer.Y
	if _, err := c.items.MoveBy(c.session.ItemID, dx, dy); err != nil {
		c.logger.Debug("drag aborted", "item_id", c.session.ItemID, "err", err)
		c.session = nil
		return false
	}
	c.session.LastPointer = composition.Position{X: x, Y: y}
	return true
}

// PointerUp ends a surface drag wherever the pointer is released.
func (c *Controller) PointerUp() {
	if c.session != nil && c.session.Source == SourceCanvas {
		c.logger.Debug("drag ended", "item_id", c.session.ItemID)
		c.session = nil
	}
}

// BeginOverlayDrag starts an overlay drag of id carrying its current
// position. Ignored during a surface drag or for unknown ids.
func (c *Controller) BeginOverlayDrag(id string) bool {
	if c.session != nil && c.session.Source == SourceCanvas {
		return false
	}
	it, ok := c.items.Get(id)
	if !ok {
		return false
	}
	c.session = &Session{ItemID: id, Source: SourceOverlay, Carried: it.Position}
	return true
}

// HoverOverlay is called when the overlay drag passes over targetID. Hovering
// any other item immediately puts the dragged item at its carried position.
func (c *Controller) HoverOverlay(targetID string) bool {
	if c.session == nil || c.session.Source != SourceOverlay {
		return false
	}
	if targetID == c.session.ItemID {
		return false
	}
	if _, ok := c.items.Get(targetID); !ok {
		return false
	}
	if !c.items.SetPositionByID(c.session.ItemID, c.session.Carried) {
		c.session = nil
		return false
	}
	return true
}

func (c *Controller) EndOverlayDrag() {
	if c.session != nil && c.session.Source == SourceOverlay {
		c.session = nil
	}
}

// Active returns the dragged item id and how it is being dragged.
func (c *Controller) Active() (string, Source, bool) {
	if c.session == nil {
		return "", 0, false
	}
	return c.session.ItemID, c.session.Source, true
}

// Session returns a copy of the live session.
func (c *Controller) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Forget drops the session if it refers to id.
func (c *Controller) Forget(id string) {
	if c.session != nil && c.session.ItemID == id {
		c.session = nil
	}
}

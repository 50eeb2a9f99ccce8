// Package itemview keeps the per-item overlay state: hover, the resize handle
// and remove affordance that follow it, overlay drags and drag opacity.
package itemview

import (
	"fmt"

	"github.com/youruser/canvasapp/internal/composition"
	"github.com/youruser/canvasapp/internal/drag"
)

const (
	OpacityNormal   = 1.0
	OpacityDragging = 0.5
)

type Store interface {
	Items() []composition.Item
	IndexOf(id string) int
	ResizeInteractive(index int, size composition.Size) (composition.Size, bool)
	Remove(id string) bool
}

type Dragger interface {
	Active() (string, drag.Source, bool)
	BeginOverlayDrag(id string) bool
	HoverOverlay(targetID string) bool
	EndOverlayDrag()
}

// View is what the page needs to render one overlay.
type View struct {
	ID               string               `json:"id"`
	Index            int                  `json:"index"`
	Name             string               `json:"name"`
	Position         composition.Position `json:"position"`
	Size             composition.Size     `json:"size"`
	Hovered          bool                 `json:"hovered"`
	ShowResizeHandle bool                 `json:"show_resize_handle"`
	ShowRemove       bool                 `json:"show_remove"`
	Opacity          float64              `json:"opacity"`
	BorderWidth      int                  `json:"border_width"`
	BorderColor      string               `json:"border_color"`
}

type Views struct {
	store   Store
	drag    Dragger
	hovered map[string]bool
}

func New(store Store, d Dragger) *Views {
	return &Views{store: store, drag: d, hovered: make(map[string]bool)}
}

func (v *Views) Enter(id string) {
	if v.store.IndexOf(id) < 0 {
		return
	}
	v.hovered[id] = true
}

func (v *Views) Leave(id string) {
	delete(v.hovered, id)
}

// Resize commits a handle-reported size, clamped per axis.
func (v *Views) Resize(id string, size composition.Size) (composition.Size, bool) {
	return v.store.ResizeInteractive(v.store.IndexOf(id), size)
}

// Remove deletes the item through its remove affordance.
func (v *Views) Remove(id string) bool {
	delete(v.hovered, id)
	return v.store.Remove(id)
}

func (v *Views) DragStart(id string) bool { return v.drag.BeginOverlayDrag(id) }

func (v *Views) DragOver(targetID string) bool { return v.drag.HoverOverlay(targetID) }

func (v *Views) DragEnd() { v.drag.EndOverlayDrag() }

// Forget drops state held for a removed item.
func (v *Views) Forget(id string) {
	delete(v.hovered, id)
}

// Render builds one View per item in index order.
func (v *Views) Render() []View {
	items := v.store.Items()
	activeID, src, dragging := v.drag.Active()
	out := make([]View, 0, len(items))
	for i, it := range items {
		hovered := v.hovered[it.ID]
		opacity := OpacityNormal
		if dragging && src == drag.SourceCanvas && activeID == it.ID {
			opacity = OpacityDragging
		}
		out = append(out, View{
			ID:               it.ID,
			Index:            i,
			Name:             it.Asset.Name,
			Position:         it.Position,
			Size:             it.Size,
			Hovered:          hovered,
			ShowResizeHandle: hovered,
			ShowRemove:       hovered,
			Opacity:          opacity,
			BorderWidth:      composition.BorderWidth,
			BorderColor:      hexColor(),
		})
	}
	return out
}

func hexColor() string {
	c := composition.Accent
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

package composition

import (
	"errors"
	"image/color"
)

const (
	// SurfaceWidth and SurfaceHeight are fixed for both the interactive
	// region and the exported raster.
	SurfaceWidth  = 500
	SurfaceHeight = 500

	DefaultWidth  = 100
	DefaultHeight = 100

	// MinSide and MaxSide bound each axis on the interactive resize path.
	MinSide = 50
	MaxSide = 300

	BorderWidth = 2
)

// Accent is the outline color drawn around every item (#007bff).
var Accent = color.NRGBA{R: 0x00, G: 0x7b, B: 0xff, A: 0xff}

// ErrItemNotFound is returned when an id or index no longer refers to an item.
var ErrItemNotFound = errors.New("item not found")

// Asset is the raw image data handed over by a file picker. Never mutated
// after it is added.
type Asset struct {
	Name        string `json:"name" yaml:"name"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Data        []byte `json:"-" yaml:"-"`
}

type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Clamp limits both axes to [MinSide, MaxSide].
func (s Size) Clamp() Size {
	return Size{Width: clampSide(s.Width), Height: clampSide(s.Height)}
}

func clampSide(v int) int {
	if v < MinSide {
		return MinSide
	}
	if v > MaxSide {
		return MaxSide
	}
	return v
}

// Item is one placed image.
type Item struct {
	ID       string   `json:"id"`
	Asset    Asset    `json:"asset"`
	Position Position `json:"position"`
	Size     Size     `json:"size"`
}

// Contains reports whether (x, y) lies inside the item's bounding box,
// edges included.
func (it Item) Contains(x, y int) bool {
	return x >= it.Position.X && x <= it.Position.X+it.Size.Width &&
		y >= it.Position.Y && y <= it.Position.Y+it.Size.Height
}

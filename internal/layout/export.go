package layout

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/youruser/canvasapp/internal/composition"
)

// FromItems captures the placement of items in index order. Sources are the
// asset names, so the result renders again once those files sit side by side.
func FromItems(name string, items []composition.Item) Layout {
	l := Layout{Name: name, Images: make([]Entry, 0, len(items))}
	for _, it := range items {
		l.Images = append(l.Images, Entry{
			Source: it.Asset.Name,
			X:      it.Position.X,
			Y:      it.Position.Y,
			Width:  it.Size.Width,
			Height: it.Size.Height,
		})
	}
	return l
}

func (l Layout) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode yaml layout: %w", err)
	}
	return enc.Close()
}

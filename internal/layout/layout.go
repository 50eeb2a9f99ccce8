// Package layout reads and writes composition layouts: an ordered list of
// image files with their placement, used to render without a browser and to
// save the arrangement of a live session.
package layout

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/youruser/canvasapp/internal/composition"
)

var (
	ErrEmptyLayout       = errors.New("layout has no images")
	ErrUnsupportedFormat = errors.New("unsupported layout format")
)

type Entry struct {
	Source string `yaml:"source" json:"source"`
	X      int    `yaml:"x" json:"x"`
	Y      int    `yaml:"y" json:"y"`
	Width  int    `yaml:"width,omitempty" json:"width,omitempty"`
	Height int    `yaml:"height,omitempty" json:"height,omitempty"`
}

// Size falls back to the default item size for unset axes.
func (e Entry) Size() composition.Size {
	s := composition.Size{Width: e.Width, Height: e.Height}
	if s.Width == 0 {
		s.Width = composition.DefaultWidth
	}
	if s.Height == 0 {
		s.Height = composition.DefaultHeight
	}
	return s
}

func (e Entry) Position() composition.Position {
	return composition.Position{X: e.X, Y: e.Y}
}

type Layout struct {
	Name   string  `yaml:"name,omitempty" json:"name,omitempty"`
	Output string  `yaml:"output,omitempty" json:"output,omitempty"`
	Images []Entry `yaml:"images" json:"images"`
}

func ParseYAML(r io.Reader) (*Layout, error) {
	var l Layout
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("decode yaml layout: %w", err)
	}
	if len(l.Images) == 0 {
		return nil, ErrEmptyLayout
	}
	return &l, nil
}

// LoadFile picks the parser from the file extension (.yaml, .yml or .csv).
func LoadFile(path string) (*Layout, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(fp)
	case ".csv":
		return ParseCSV(fp)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Assets reads every entry's source, relative paths resolved against baseDir.
func (l *Layout) Assets(baseDir string) ([]composition.Asset, error) {
	out := make([]composition.Asset, 0, len(l.Images))
	for _, e := range l.Images {
		p := e.Source
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", e.Source, err)
		}
		out = append(out, composition.Asset{
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Data:        b,
		})
	}
	return out, nil
}

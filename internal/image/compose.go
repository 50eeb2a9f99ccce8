package imagepkg

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/youruser/canvasapp/internal/composition"
)

// ExportFileName is the name offered for the downloaded surface.
const ExportFileName = "canvas-image.png"

const (
	// Items with a side above maxScaledSide are scaled only where they
	// overlap the surface.
	maxScaledSide = 4 * composition.SurfaceWidth
	// Coordinates saturate at maxCoord so box arithmetic cannot overflow.
	maxCoord = 1 << 30
)

var surfaceRect = image.Rect(0, 0, composition.SurfaceWidth, composition.SurfaceHeight)

type scaleKey struct {
	width, height int
	clip          image.Rectangle
}

type decoded struct {
	img image.Image
	err error

	scaled *image.NRGBA
	key    scaleKey
}

// Compositor owns the raster surface. A redraw decodes every asset it has not
// seen yet, then paints all items in index order in one pass, so the result
// never depends on decode completion order.
type Compositor struct {
	mu        sync.Mutex
	surface   *image.NRGBA
	cache     map[string]*decoded
	filter    imaging.ResampleFilter
	workers   int
	maxPixels int
	redraws   int
	logger    *slog.Logger
}

type Option func(*Compositor)

// WithFilter sets the resampling filter used to scale items.
func WithFilter(f imaging.ResampleFilter) Option {
	return func(c *Compositor) { c.filter = f }
}

// WithDecodeWorkers bounds concurrent decodes within a redraw.
func WithDecodeWorkers(n int) Option {
	return func(c *Compositor) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxPixels skips assets whose declared dimensions exceed n pixels.
// Zero or less disables the check.
func WithMaxPixels(n int) Option {
	return func(c *Compositor) { c.maxPixels = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Compositor) { c.logger = l }
}

func NewCompositor(opts ...Option) *Compositor {
	c := &Compositor{
		surface:   blank(),
		cache:     make(map[string]*decoded),
		filter:    imaging.Lanczos,
		workers:   4,
		maxPixels: DefaultMaxPixels,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func blank() *image.NRGBA {
	return imaging.New(composition.SurfaceWidth, composition.SurfaceHeight, color.NRGBA{})
}

// Redraw clears the surface and paints items in ascending index order, each
// followed by its outline. Items whose asset cannot be decoded are skipped,
// and only the part of an item that overlaps the surface is scaled.
func (c *Compositor) Redraw(ctx context.Context, items []composition.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.decodeMissing(ctx, items); err != nil {
		return err
	}

	canvas := blank()
	for _, it := range items {
		d := c.cache[it.ID]
		if d == nil || d.err != nil {
			continue
		}
		if it.Size.Width <= 0 || it.Size.Height <= 0 {
			continue
		}
		box := itemRect(it)
		if vis := box.Intersect(surfaceRect); !vis.Empty() {
			scaled, at := c.scale(d, box, vis)
			canvas = imaging.Overlay(canvas, scaled, at, 1.0)
		}
		canvas = outline(canvas, box)
	}
	c.surface = canvas
	c.redraws++
	return nil
}

// decodeMissing fills the cache for items not decoded yet. Decode failures are
// cached too; only ctx cancellation aborts the pass.
func (c *Compositor) decodeMissing(ctx context.Context, items []composition.Item) error {
	var todo []composition.Item
	for _, it := range items {
		if _, ok := c.cache[it.ID]; !ok {
			todo = append(todo, it)
		}
	}
	if len(todo) == 0 {
		return nil
	}

	results := make([]*decoded, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, it := range todo {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := DecodeAsset(it.Asset, c.maxPixels)
			results[i] = &decoded{img: img, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, it := range todo {
		if results[i].err != nil {
			c.logger.Debug("skipping undecodable asset", "item_id", it.ID, "name", it.Asset.Name, "err", results[i].err)
		}
		c.cache[it.ID] = results[i]
	}
	return nil
}

func saturate(v int) int {
	return min(max(v, -maxCoord), maxCoord)
}

func itemRect(it composition.Item) image.Rectangle {
	x, y := saturate(it.Position.X), saturate(it.Position.Y)
	return image.Rect(x, y, x+saturate(it.Size.Width), y+saturate(it.Size.Height))
}

// scale returns the scaled pixels of d for box and where to place them.
// Boxes within maxScaledSide are scaled whole, so moving them reuses the
// cached result; larger boxes are scaled only over vis.
func (c *Compositor) scale(d *decoded, box, vis image.Rectangle) (*image.NRGBA, image.Point) {
	key := scaleKey{width: box.Dx(), height: box.Dy()}
	whole := box.Dx() <= maxScaledSide && box.Dy() <= maxScaledSide
	if !whole {
		key.clip = vis.Sub(box.Min)
	}
	if d.scaled == nil || d.key != key {
		if whole {
			d.scaled = imaging.Resize(d.img, box.Dx(), box.Dy(), c.filter)
		} else {
			src := imaging.Crop(d.img, sourceRect(d.img.Bounds(), box, vis))
			d.scaled = imaging.Resize(src, vis.Dx(), vis.Dy(), c.filter)
		}
		d.key = key
	}
	if whole {
		return d.scaled, box.Min
	}
	return d.scaled, vis.Min
}

// sourceRect maps the visible part of box back onto the source bounds.
func sourceRect(src, box, vis image.Rectangle) image.Rectangle {
	fx := float64(src.Dx()) / float64(box.Dx())
	fy := float64(src.Dy()) / float64(box.Dy())
	r := image.Rect(
		src.Min.X+int(math.Floor(float64(vis.Min.X-box.Min.X)*fx)),
		src.Min.Y+int(math.Floor(float64(vis.Min.Y-box.Min.Y)*fy)),
		src.Min.X+int(math.Ceil(float64(vis.Max.X-box.Min.X)*fx)),
		src.Min.Y+int(math.Ceil(float64(vis.Max.Y-box.Min.Y)*fy)),
	)
	if r.Dx() < 1 {
		r.Max.X = r.Min.X + 1
	}
	if r.Dy() < 1 {
		r.Max.Y = r.Min.Y + 1
	}
	return r.Intersect(src)
}

// outline strokes a BorderWidth line centred on the bounding box edge, the
// way a 2D canvas strokeRect does. Strips are clipped to the canvas.
func outline(canvas *image.NRGBA, box image.Rectangle) *image.NRGBA {
	half := composition.BorderWidth / 2
	bw := composition.BorderWidth
	x0, y0 := box.Min.X-half, box.Min.Y-half
	x1, y1 := box.Max.X-half, box.Max.Y-half
	strips := []image.Rectangle{
		image.Rect(x0, y0, x1+bw, y0+bw),
		image.Rect(x0, y1, x1+bw, y1+bw),
		image.Rect(x0, y0, x0+bw, y1+bw),
		image.Rect(x1, y0, x1+bw, y1+bw),
	}
	bounds := canvas.Bounds()
	for _, s := range strips {
		s = s.Intersect(bounds)
		if s.Empty() {
			continue
		}
		canvas = imaging.Paste(canvas, imaging.New(s.Dx(), s.Dy(), composition.Accent), s.Min)
	}
	return canvas
}

// Evict drops the decode cache entry of a removed item.
func (c *Compositor) Evict(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, id)
}

// Surface returns a copy of the current raster.
func (c *Compositor) Surface() *image.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return imaging.Clone(c.surface)
}

// Redraws counts completed redraw passes.
func (c *Compositor) Redraws() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redraws
}

// Export writes the current surface as PNG.
func (c *Compositor) Export(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return imaging.Encode(w, c.surface, imaging.PNG)
}

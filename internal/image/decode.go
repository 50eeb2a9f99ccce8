package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/youruser/canvasapp/internal/composition"
)

// DefaultMaxPixels bounds the decoded size of a single asset.
const DefaultMaxPixels = 40_000_000

var (
	ErrEmptyAsset    = errors.New("empty image data")
	ErrImageTooLarge = errors.New("image dimensions too large")
)

// CheckPixels reads only the image header and rejects data declaring more
// than maxPixels pixels. Unreadable headers pass; decoding reports those.
func CheckPixels(data []byte, maxPixels int) error {
	if maxPixels <= 0 {
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

// DecodeAsset decodes any registered raster format, applying EXIF orientation.
// Assets above maxPixels are rejected before their pixels are decoded.
func DecodeAsset(a composition.Asset, maxPixels int) (image.Image, error) {
	if len(a.Data) == 0 {
		return nil, ErrEmptyAsset
	}
	if err := CheckPixels(a.Data, maxPixels); err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.Name, err)
	}
	img, err := imaging.Decode(bytes.NewReader(a.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.Name, err)
	}
	return img, nil
}

// ParseFilter maps a filter name to an imaging resampling filter.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "linear":
		return imaging.Linear, nil
	case "catmullrom":
		return imaging.CatmullRom, nil
	case "box":
		return imaging.Box, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q", name)
	}
}

package imagepkg

import (
	"context"
	"net/url"
	"path"
	"time"

	"github.com/youruser/canvasapp/internal/composition"
	"github.com/youruser/canvasapp/internal/util"
)

// DownloadAsset fetches rawURL and checks that the body decodes as an image
// of at most maxPixels pixels.
func DownloadAsset(ctx context.Context, rawURL string, timeout time.Duration, limit int64, maxPixels int) (composition.Asset, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return composition.Asset{}, err
	}
	body, contentType, err := util.GetBytes(ctx, rawURL, timeout, limit)
	if err != nil {
		return composition.Asset{}, err
	}
	a := composition.Asset{
		Name:        assetName(u),
		ContentType: contentType,
		Data:        body,
	}
	if _, err := DecodeAsset(a, maxPixels); err != nil {
		return composition.Asset{}, err
	}
	return a, nil
}

// assetName is the last path segment of u, without query or fragment.
func assetName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "image"
	}
	return name
}

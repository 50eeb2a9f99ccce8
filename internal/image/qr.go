package imagepkg

import (
	"bytes"
	"fmt"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/youruser/canvasapp/internal/composition"
)

// GenerateQRPNG returns PNG bytes of a QR code for the given text.
func GenerateQRPNG(text string, size int) ([]byte, error) {
	pngBytes, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	// validate png decode
	if _, err := png.Decode(bytes.NewReader(pngBytes)); err != nil {
		return nil, err
	}
	return pngBytes, nil
}

// QRAsset renders text as a QR code bitmap ready to be placed like any
// uploaded image.
func QRAsset(text string, size int) (composition.Asset, error) {
	b, err := GenerateQRPNG(text, size)
	if err != nil {
		return composition.Asset{}, fmt.Errorf("qr %q: %w", text, err)
	}
	return composition.Asset{Name: "qr.png", ContentType: "image/png", Data: b}, nil
}

// Package probe reports pixel dimensions of uploaded raster images.
package probe

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"
)

// Prober implements contentsync.ImageProber for the formats the asset
// classes accept: png, jpeg, gif and webp. Only the image header is decoded.
type Prober struct{}

// New creates a new image prober
func New() *Prober {
	return &Prober{}
}

// Dimensions reports the pixel width and height of the image data. Unknown
// or corrupt formats return the decoder's error; callers treat any failure
// as "dimensions unknown" rather than rejecting the upload.
func (p *Prober) Dimensions(r io.Reader) (int, int, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

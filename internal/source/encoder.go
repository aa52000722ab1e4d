package source

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

// DefaultJPEGQuality matches a 0.8 compression quality factor.
const DefaultJPEGQuality = 80

// JPEGEncoder compresses snapshots to JPEG.
type JPEGEncoder struct {
	// Quality is the JPEG quality, 1-100. Zero selects DefaultJPEGQuality.
	Quality int

	// MaxDimension bounds the longer image side. Larger snapshots are scaled
	// down preserving aspect ratio. Zero keeps the original size.
	MaxDimension int
}

// Encode implements the capture pipeline's encoder.
func (e JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, domain.ErrEncode.WithDetails("empty snapshot")
	}

	quality := e.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	img = e.scale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, domain.ErrEncode.WithCause(err)
	}
	return buf.Bytes(), nil
}

func (e JPEGEncoder) scale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if e.MaxDimension <= 0 || longest <= e.MaxDimension {
		return img
	}

	nw := max(1, w*e.MaxDimension/longest)
	nh := max(1, h*e.MaxDimension/longest)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

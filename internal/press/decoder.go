package press

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/acm19/imgpress/internal/logger"
	"github.com/disintegration/imageorient"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels caps width*height before any pixel buffer is allocated.
const DefaultMaxPixels = 80_000_000

// Surface is a decoded pixel buffer owned by a single pass.
type Surface struct {
	img *image.NRGBA
}

// Image returns the pixels, or nil once released.
func (s *Surface) Image() *image.NRGBA {
	return s.img
}

// Width returns the pixel width (0 once released).
func (s *Surface) Width() int {
	if s.img == nil {
		return 0
	}
	return s.img.Bounds().Dx()
}

// Height returns the pixel height (0 once released).
func (s *Surface) Height() int {
	if s.img == nil {
		return 0
	}
	return s.img.Bounds().Dy()
}

// Release drops the pixel buffer. Safe to call more than once.
func (s *Surface) Release() {
	if s == nil {
		return
	}
	s.img = nil
}

// Decoder defines the interface for rasterizing image payloads
type Decoder interface {
	// Decode rasterizes data into a new Surface the caller must Release.
	Decode(data []byte, declaredMIME string, autoOrient bool) (*Surface, error)
}

// rasterDecoder implements the Decoder interface
type rasterDecoder struct {
	formats   Formats
	maxPixels int64
}

// NewDecoder creates a new Decoder instance
func NewDecoder() Decoder {
	return &rasterDecoder{formats: NewFormats(), maxPixels: DefaultMaxPixels}
}

// Decode reads the header first so zero-sized and oversized images fail before
// any pixel allocation.
func (d *rasterDecoder) Decode(data []byte, declaredMIME string, autoOrient bool) (*Surface, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Field: "payload", Reason: "empty payload"}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("unrecognised image header: %w", err)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &ValidationError{Field: "dimensions", Reason: fmt.Sprintf("zero-sized image %dx%d", cfg.Width, cfg.Height)}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); d.maxPixels > 0 && pixels > d.maxPixels {
		return nil, &ValidationError{
			Field:  "dimensions",
			Reason: fmt.Sprintf("%dx%d exceeds the limit of %d pixels", cfg.Width, cfg.Height, d.maxPixels),
		}
	}

	if declaredMIME != "" {
		if detected := d.formats.Sniff(data); detected != "" && !sameMIME(d.formats, declaredMIME, detected) {
			logger.Warn("Declared MIME type does not match payload", "declared", declaredMIME, "detected", detected)
		}
	}

	var img image.Image
	if autoOrient {
		img, _, err = imageorient.Decode(bytes.NewReader(data))
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%s payload: %w", format, err)}
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = imaging.Clone(img)
	}
	surface := &Surface{img: nrgba}
	if surface.Width() == 0 || surface.Height() == 0 {
		surface.Release()
		return nil, &DecodeError{Err: fmt.Errorf("%s payload decoded to an empty surface", format)}
	}

	logger.Debug("Decoded image", "format", format, "width", surface.Width(), "height", surface.Height())
	return surface, nil
}

func sameMIME(f Formats, declared, detected string) bool {
	return f.IsSupportedMIME(declared) && canonicalMIME(declared) == canonicalMIME(detected)
}

package press

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

const (
	// DefaultPreviewMaxDimension bounds the long edge of preview thumbnails.
	DefaultPreviewMaxDimension = 320
	previewJPEGQuality         = 75
)

// Preview is a displayable rendering of an image payload.
type Preview struct {
	// DataURL is a data: URL of a JPEG thumbnail.
	DataURL string
	Width   int
	Height  int
}

// PreviewResult is delivered by PreviewAsync.
type PreviewResult struct {
	Preview Preview
	Err     error
}

// Previewer defines the interface for rendering previews of image payloads
type Previewer interface {
	// Preview renders payload, which may be a source or an artifact.
	Preview(ctx context.Context, payload []byte) (Preview, error)
	// PreviewAsync renders payload on its own goroutine and sends exactly one result.
	PreviewAsync(ctx context.Context, payload []byte) <-chan PreviewResult
}

// thumbnailPreviewer implements the Previewer interface
type thumbnailPreviewer struct {
	decoder      Decoder
	maxDimension int
}

// NewPreviewer creates a new Previewer. maxDimension <= 0 uses the default.
func NewPreviewer(maxDimension int) Previewer {
	if maxDimension <= 0 {
		maxDimension = DefaultPreviewMaxDimension
	}
	return &thumbnailPreviewer{
		decoder:      NewDecoder(),
		maxDimension: maxDimension,
	}
}

// Preview never touches compression state; it can run before any pass.
func (p *thumbnailPreviewer) Preview(ctx context.Context, payload []byte) (Preview, error) {
	if err := ctx.Err(); err != nil {
		return Preview{}, &PreviewError{Err: err}
	}

	surface, err := p.decoder.Decode(payload, "", true)
	if err != nil {
		return Preview{}, &PreviewError{Err: err}
	}
	defer surface.Release()

	w, h, err := FitDimensions(surface.Width(), surface.Height(), p.maxDimension)
	if err != nil {
		return Preview{}, &PreviewError{Err: err}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), surface.Image(), surface.Image().Bounds(), draw.Over, nil)

	if err := ctx.Err(); err != nil {
		return Preview{}, &PreviewError{Err: err}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(previewJPEGQuality)); err != nil {
		return Preview{}, &PreviewError{Err: err}
	}

	return Preview{
		DataURL: "data:" + OutputMIME + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   w,
		Height:  h,
	}, nil
}

// PreviewAsync never blocks the caller; the channel is buffered.
func (p *thumbnailPreviewer) PreviewAsync(ctx context.Context, payload []byte) <-chan PreviewResult {
	results := make(chan PreviewResult, 1)
	go func() {
		defer close(results)
		preview, err := p.Preview(ctx, payload)
		results <- PreviewResult{Preview: preview, Err: err}
	}()
	return results
}

package press

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Encoder defines the interface for serializing a surface to the normalized format
type Encoder interface {
	// Encode writes the surface as OutputFormat at the given quality factor.
	Encode(s *Surface, quality float64) (ProcessedArtifact, error)
}

// jpegEncoder implements the Encoder interface
type jpegEncoder struct{}

// NewEncoder creates a new Encoder instance
func NewEncoder() Encoder {
	return &jpegEncoder{}
}

// Encode performs no quality search; the factor is used as given.
func (e *jpegEncoder) Encode(s *Surface, quality float64) (ProcessedArtifact, error) {
	if quality < 0 || quality > 1 {
		return ProcessedArtifact{}, &ValidationError{Field: "quality", Reason: fmt.Sprintf("must be within [0,1], got %g", quality)}
	}
	if s == nil || s.Image() == nil {
		return ProcessedArtifact{}, &EncodeError{Err: errors.New("surface is not available")}
	}

	img := s.Image()
	var src image.Image = img
	if !img.Opaque() {
		// JPEG has no alpha channel.
		bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
		src = imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(jpegQuality(quality))); err != nil {
		return ProcessedArtifact{}, &EncodeError{Err: err}
	}
	if buf.Len() == 0 {
		return ProcessedArtifact{}, &EncodeError{Err: errors.New("encoder produced no data")}
	}

	return ProcessedArtifact{
		Data:     buf.Bytes(),
		Format:   OutputFormat,
		MIMEType: OutputMIME,
		Quality:  quality,
		Width:    s.Width(),
		Height:   s.Height(),
	}, nil
}

// jpegQuality maps a [0,1] factor to the 1-100 JPEG scale.
func jpegQuality(quality float64) int {
	return min(max(int(math.Round(quality*100)), 1), 100)
}

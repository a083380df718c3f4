package press

import (
	"fmt"
	"math"

	"github.com/disintegration/imaging"
)

// FitDimensions returns the output size for a w x h image bounded by
// maxDimension on its long edge. Images already within the bound are
// returned unchanged; nothing is ever upscaled.
func FitDimensions(width, height, maxDimension int) (int, int, error) {
	if width <= 0 || height <= 0 {
		return 0, 0, &ValidationError{Field: "dimensions", Reason: fmt.Sprintf("zero-sized image %dx%d", width, height)}
	}
	if maxDimension <= 0 {
		return 0, 0, &ValidationError{Field: "maxDimension", Reason: fmt.Sprintf("must be positive, got %d", maxDimension)}
	}

	if width <= maxDimension && height <= maxDimension {
		return width, height, nil
	}

	if width >= height {
		h := int(math.Round(float64(height) * float64(maxDimension) / float64(width)))
		return maxDimension, max(h, 1), nil
	}
	w := int(math.Round(float64(width) * float64(maxDimension) / float64(height)))
	return max(w, 1), maxDimension, nil
}

// resizeSurface replaces the surface pixels with a Lanczos-resampled copy
// when the bound requires it. The previous buffer is dropped.
func resizeSurface(s *Surface, maxDimension int) error {
	w, h, err := FitDimensions(s.Width(), s.Height(), maxDimension)
	if err != nil {
		return err
	}
	if w == s.Width() && h == s.Height() {
		return nil
	}
	s.img = imaging.Resize(s.img, w, h, imaging.Lanczos)
	return nil
}

package press

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"math"
	"testing"
)

// failingEncoder fails while fail is set and delegates otherwise.
type failingEncoder struct {
	Encoder
	fail bool
}

func (f *failingEncoder) Encode(s *Surface, quality float64) (ProcessedArtifact, error) {
	if f.fail {
		return ProcessedArtifact{}, &EncodeError{Err: errors.New("simulated encoder failure")}
	}
	return f.Encoder.Encode(s, quality)
}

// emptyEncoder returns a zero-length artifact without an error.
type emptyEncoder struct{}

func (emptyEncoder) Encode(s *Surface, quality float64) (ProcessedArtifact, error) {
	return ProcessedArtifact{Format: OutputFormat, MIMEType: OutputMIME, Quality: quality}, nil
}

func TestProcessInitial_NormalizesFormat(t *testing.T) {
	img := photoImage(200, 150, 6, 7)
	tests := []struct {
		name   string
		source ImageSource
	}{
		{name: "jpeg in", source: NewImageSource("a.jpg", "image/jpeg", encodeJPEG(t, img, 95))},
		{name: "png in", source: NewImageSource("a.png", "image/png", encodePNG(t, img))},
		{name: "gif in", source: NewImageSource("a.gif", "image/gif", encodeGIF(t, img))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass, err := NewCompressor().ProcessInitial(context.Background(), tt.source, DefaultOptions())
			if err != nil {
				t.Fatalf("ProcessInitial() error = %v", err)
			}
			decodeArtifact(t, pass.Artifact)
			if pass.Iteration != 1 {
				t.Errorf("Iteration = %d, want 1", pass.Iteration)
			}
			if pass.Artifact.Quality != DefaultQuality {
				t.Errorf("Quality = %v, want %v", pass.Artifact.Quality, DefaultQuality)
			}
		})
	}
}

func TestProcessInitial_LargePhotoIsBounded(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping large image scenario in short mode")
	}

	data := encodeJPEG(t, photoImage(4000, 3000, 40, 11), 95)
	source := NewImageSource("big.jpg", "image/jpeg", data)

	pass, err := NewCompressor().ProcessInitial(context.Background(), source, Options{MaxDimension: 1200})
	if err != nil {
		t.Fatalf("ProcessInitial() error = %v", err)
	}

	w, h := decodeArtifact(t, pass.Artifact)
	if max(w, h) > 1200 {
		t.Errorf("Artifact long edge = %d, want <= 1200", max(w, h))
	}
	if w != 1200 || h != 900 {
		t.Errorf("Artifact = %dx%d, want 1200x900", w, h)
	}
	if pass.Stats.OriginalSize != int64(len(data)) {
		t.Errorf("OriginalSize = %d, want %d", pass.Stats.OriginalSize, len(data))
	}
	if pass.Stats.NewSize >= pass.Stats.OriginalSize {
		t.Errorf("NewSize = %d, want < %d", pass.Stats.NewSize, pass.Stats.OriginalSize)
	}
	if pass.Stats.CompressionRatio <= 0 {
		t.Errorf("CompressionRatio = %v, want positive", pass.Stats.CompressionRatio)
	}
}

func TestProcessInitial_SmallPNGNotUpscaled(t *testing.T) {
	data := encodePNG(t, photoImage(300, 200, 20, 13))
	source := NewImageSource("small.png", "image/png", data)

	pass, err := NewCompressor().ProcessInitial(context.Background(), source, Options{MaxDimension: 1200})
	if err != nil {
		t.Fatalf("ProcessInitial() error = %v", err)
	}

	w, h := decodeArtifact(t, pass.Artifact)
	if w != 300 || h != 200 {
		t.Errorf("Artifact = %dx%d, want 300x200 (no upscaling)", w, h)
	}
	if pass.Stats.CompressionRatio < 0 || pass.Stats.CompressionRatio > 100 {
		t.Errorf("CompressionRatio = %v, want within [0,100]", pass.Stats.CompressionRatio)
	}
	if pass.Stats.Savings != pass.Stats.OriginalSize-pass.Stats.NewSize {
		t.Errorf("Savings = %d, want %d", pass.Stats.Savings, pass.Stats.OriginalSize-pass.Stats.NewSize)
	}
}

func TestProcessInitial_GrowthIsClamped(t *testing.T) {
	// A single-colour PNG is smaller than the JPEG headers alone.
	data := encodePNG(t, solid(300, 200, color.NRGBA{R: 40, G: 90, B: 160, A: 255}))
	source := NewImageSource("flat.png", "image/png", data)

	pass, err := NewCompressor().ProcessInitial(context.Background(), source, Options{Quality: 1})
	if err != nil {
		t.Fatalf("ProcessInitial() error = %v", err)
	}
	if !pass.Stats.Grew() {
		t.Fatalf("Expected the artifact to grow: %d -> %d bytes", pass.Stats.OriginalSize, pass.Stats.NewSize)
	}
	if pass.Stats.CompressionRatio != 0 {
		t.Errorf("CompressionRatio = %v, want 0 when the artifact grew", pass.Stats.CompressionRatio)
	}
	if pass.Stats.Savings >= 0 {
		t.Errorf("Savings = %d, want negative", pass.Stats.Savings)
	}
}

func TestProcessInitial_IgnoreOrientation(t *testing.T) {
	data := withOrientation(t, encodeJPEG(t, photoImage(64, 48, 0, 3), 90), 6)
	source := NewImageSource("portrait.jpg", "image/jpeg", data)

	tests := []struct {
		name  string
		opts  Options
		wantW int
		wantH int
	}{
		{name: "auto-oriented", opts: Options{}, wantW: 48, wantH: 64},
		{name: "orientation ignored", opts: Options{IgnoreOrientation: true}, wantW: 64, wantH: 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass, err := NewCompressor().ProcessInitial(context.Background(), source, tt.opts)
			if err != nil {
				t.Fatalf("ProcessInitial() error = %v", err)
			}
			if w, h := decodeArtifact(t, pass.Artifact); w != tt.wantW || h != tt.wantH {
				t.Errorf("Artifact = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestContinueIterating_DecreasingQuality(t *testing.T) {
	source := NewImageSource("photo.jpg", "image/jpeg", encodeJPEG(t, photoImage(800, 600, 10, 17), 95))
	c := NewCompressor()
	ctx := context.Background()

	pass, err := c.ProcessInitial(ctx, source, Options{Quality: 0.9})
	if err != nil {
		t.Fatalf("ProcessInitial() error = %v", err)
	}
	originalSize := pass.Stats.OriginalSize

	var sizes []int64
	for i, q := range []float64{0.8, 0.75, 0.7} {
		next, err := c.ContinueIterating(ctx, pass, Options{Quality: q})
		if err != nil {
			t.Fatalf("ContinueIterating(%v) error = %v", q, err)
		}
		if next.Iteration != i+2 {
			t.Errorf("Iteration = %d, want %d", next.Iteration, i+2)
		}
		if next.Stats.OriginalSize != originalSize {
			t.Errorf("OriginalSize changed to %d, want %d", next.Stats.OriginalSize, originalSize)
		}
		want := (1 - float64(next.Stats.NewSize)/float64(originalSize)) * 100
		if math.Abs(next.Stats.CompressionRatio-want) > 1e-9 {
			t.Errorf("CompressionRatio = %v, want %v (relative to the original)", next.Stats.CompressionRatio, want)
		}
		decodeArtifact(t, next.Artifact)
		sizes = append(sizes, next.Stats.NewSize)
		pass = next
	}

	for i := 1; i < len(sizes); i++ {
		if sizes[i] > sizes[i-1] {
			t.Errorf("Pass sizes %v are not non-increasing", sizes)
		}
	}
}

func TestContinueIterating_ReencodesPreviousArtifact(t *testing.T) {
	source := NewImageSource("photo.png", "image/png", encodePNG(t, photoImage(600, 400, 5, 19)))
	c := NewCompressor()
	ctx := context.Background()

	first, err := c.ProcessInitial(ctx, source, Options{MaxDimension: 300})
	if err != nil {
		t.Fatalf("ProcessInitial() error = %v", err)
	}

	// A larger bound cannot bring back pixels the first pass dropped.
	second, err := c.ContinueIterating(ctx, first, Options{MaxDimension: 1200})
	if err != nil {
		t.Fatalf("ContinueIterating() error = %v", err)
	}
	if second.Artifact.Width != 300 || second.Artifact.Height != 200 {
		t.Errorf("Continuation = %dx%d, want 300x200", second.Artifact.Width, second.Artifact.Height)
	}
}

func TestContinueIterating_FailureKeepsPreviousUsable(t *testing.T) {
	source := NewImageSource("photo.jpg", "image/jpeg", encodeJPEG(t, photoImage(200, 200, 8, 23), 95))
	enc := &failingEncoder{Encoder: NewEncoder()}
	c := NewCompressorWith(NewDecoder(), enc)
	ctx := context.Background()

	first, err := c.ProcessInitial(ctx, source, DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessInitial() error = %v", err)
	}
	snapshot := append([]byte(nil), first.Artifact.Data...)

	enc.fail = true
	failed, err := c.ContinueIterating(ctx, first, Options{Quality: 0.7})
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("ContinueIterating() error = %v, want *EncodeError", err)
	}
	if failed.Iteration != 0 || len(failed.Artifact.Data) != 0 {
		t.Errorf("Failed pass should be empty, got iteration %d with %d bytes", failed.Iteration, len(failed.Artifact.Data))
	}
	if first.Iteration != 1 || !bytes.Equal(first.Artifact.Data, snapshot) {
		t.Error("Failed continuation modified the previous pass")
	}

	enc.fail = false
	retried, err := c.ContinueIterating(ctx, first, Options{Quality: 0.65})
	if err != nil {
		t.Fatalf("Retry error = %v", err)
	}
	if retried.Iteration != 2 {
		t.Errorf("Retry Iteration = %d, want 2", retried.Iteration)
	}
	if retried.Stats.OriginalSize != first.Stats.OriginalSize {
		t.Errorf("Retry OriginalSize = %d, want %d", retried.Stats.OriginalSize, first.Stats.OriginalSize)
	}
}

func TestContinueIterating_CorruptArtifact(t *testing.T) {
	source := NewImageSource("photo.jpg", "image/jpeg", encodeJPEG(t, photoImage(120, 90, 8, 29), 95))
	c := NewCompressor()
	ctx := context.Background()

	first, err := c.ProcessInitial(ctx, source, DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessInitial() error = %v", err)
	}

	corrupt := first
	corrupt.Artifact.Data = []byte("garbage")
	if _, err := c.ContinueIterating(ctx, corrupt, DefaultOptions()); err == nil {
		t.Fatal("Expected error for corrupt artifact")
	} else {
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Errorf("ContinueIterating() error = %v, want *DecodeError", err)
		}
	}

	if _, err := c.ContinueIterating(ctx, first, DefaultOptions()); err != nil {
		t.Errorf("Continuing from the good pass failed: %v", err)
	}
}

func TestContinueIterating_InvalidPrevious(t *testing.T) {
	c := NewCompressor()
	good := Pass{
		Artifact:  ProcessedArtifact{Data: []byte{1}},
		Stats:     CompressionStats{OriginalSize: 10},
		Iteration: 1,
	}

	tests := []struct {
		name string
		pass Pass
	}{
		{name: "zero iteration", pass: Pass{Artifact: good.Artifact, Stats: good.Stats}},
		{name: "missing original size", pass: Pass{Artifact: good.Artifact, Iteration: 1}},
		{name: "empty artifact", pass: Pass{Stats: good.Stats, Iteration: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ContinueIterating(context.Background(), tt.pass, DefaultOptions())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("ContinueIterating() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestProcessInitial_InvalidInput(t *testing.T) {
	valid := encodePNG(t, photoImage(16, 16, 0, 1))
	tests := []struct {
		name   string
		source ImageSource
		opts   Options
	}{
		{name: "empty payload", source: ImageSource{Name: "empty.png"}, opts: DefaultOptions()},
		{name: "negative max dimension", source: NewImageSource("a.png", "image/png", valid), opts: Options{MaxDimension: -1}},
		{name: "quality above one", source: NewImageSource("a.png", "image/png", valid), opts: Options{Quality: 1.5}},
		{name: "negative quality", source: NewImageSource("a.png", "image/png", valid), opts: Options{Quality: -0.2}},
		{name: "payload over limit", source: NewImageSource("a.png", "image/png", valid), opts: Options{MaxSourceBytes: 8}},
		{name: "zero dimensions", source: NewImageSource("a.gif", "image/gif", zeroSizedGIF()), opts: DefaultOptions()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompressor().ProcessInitial(context.Background(), tt.source, tt.opts)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("ProcessInitial() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestProcessInitial_RejectsEmptyArtifact(t *testing.T) {
	source := NewImageSource("a.png", "image/png", encodePNG(t, photoImage(16, 16, 0, 1)))
	c := NewCompressorWith(NewDecoder(), emptyEncoder{})

	_, err := c.ProcessInitial(context.Background(), source, DefaultOptions())
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Errorf("ProcessInitial() error = %v, want *EncodeError", err)
	}
}

func TestProcessInitial_CancelledContext(t *testing.T) {
	source := NewImageSource("a.png", "image/png", encodePNG(t, photoImage(16, 16, 0, 1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCompressor().ProcessInitial(ctx, source, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ProcessInitial() error = %v, want context.Canceled", err)
	}
}

func TestProcessInitial_ReportsProgress(t *testing.T) {
	source := NewImageSource("a.png", "image/png", encodePNG(t, photoImage(32, 32, 0, 1)))
	progress := make(chan ProgressEvent, 10)

	if _, err := NewCompressor().ProcessInitial(context.Background(), source, Options{Progress: progress}); err != nil {
		t.Fatalf("ProcessInitial() error = %v", err)
	}
	close(progress)

	var stages []Stage
	for event := range progress {
		if event.Iteration != 1 {
			t.Errorf("Event iteration = %d, want 1", event.Iteration)
		}
		stages = append(stages, event.Stage)
	}

	want := []Stage{StageDecoding, StageResizing, StageEncoding, StageDone}
	if len(stages) != len(want) {
		t.Fatalf("Stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("Stage %d = %s, want %s", i, stages[i], want[i])
		}
	}
}

func TestProcessInitial_FullProgressChannelDoesNotBlock(t *testing.T) {
	source := NewImageSource("a.png", "image/png", encodePNG(t, photoImage(32, 32, 0, 1)))
	progress := make(chan ProgressEvent)

	if _, err := NewCompressor().ProcessInitial(context.Background(), source, Options{Progress: progress}); err != nil {
		t.Fatalf("ProcessInitial() error = %v", err)
	}
}

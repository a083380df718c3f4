package press

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultMaxDimension is the long-edge bound applied when Options.MaxDimension is unset.
	DefaultMaxDimension = 1200
	// DefaultQuality is the encoder quality applied when Options.Quality is unset.
	DefaultQuality = 0.8
)

// Options holds configuration for a single compression pass.
type Options struct {
	// MaxDimension bounds the long edge in pixels (0 = DefaultMaxDimension).
	MaxDimension int
	// Quality is the encoder quality factor in (0,1] (0 = DefaultQuality).
	Quality float64
	// MaxSourceBytes rejects larger payloads before decoding (0 = unlimited).
	MaxSourceBytes int64
	// IgnoreOrientation skips EXIF orientation correction on decode.
	IgnoreOrientation bool
	// Progress is an optional channel for receiving stage events.
	Progress chan<- ProgressEvent
}

// DefaultOptions returns the default pass options.
func DefaultOptions() Options {
	return Options{
		MaxDimension: DefaultMaxDimension,
		Quality:      DefaultQuality,
	}
}

// withDefaults fills unset fields and validates the rest.
func (o Options) withDefaults() (Options, error) {
	if o.MaxDimension < 0 {
		return o, &ValidationError{Field: "maxDimension", Reason: fmt.Sprintf("must not be negative, got %d", o.MaxDimension)}
	}
	if o.MaxDimension == 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality < 0 || o.Quality > 1 {
		return o, &ValidationError{Field: "quality", Reason: fmt.Sprintf("must be within [0,1], got %g", o.Quality)}
	}
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.MaxSourceBytes < 0 {
		return o, &ValidationError{Field: "maxSourceBytes", Reason: "must not be negative"}
	}
	return o, nil
}

// Stage names a step of a compression pass.
type Stage string

const (
	StageDecoding Stage = "decoding"
	StageResizing Stage = "resizing"
	StageEncoding Stage = "encoding"
	StageDone     Stage = "done"
)

// ProgressEvent represents a progress update during a compression pass.
type ProgressEvent struct {
	// Stage is the step that is about to run.
	Stage Stage
	// Iteration is the pass number the event belongs to.
	Iteration int
	// Message is a human-readable description of the current operation.
	Message string
}

// ProcessedArtifact is the output of one compression pass.
type ProcessedArtifact struct {
	// Data is the encoded payload. The caller owns it.
	Data []byte
	// Format is always OutputFormat.
	Format string
	// MIMEType is always OutputMIME.
	MIMEType string
	// Quality is the encoder quality factor that produced Data.
	Quality float64
	// Width and Height are the encoded pixel dimensions.
	Width  int
	Height int
}

// ByteLength returns the payload size in bytes.
func (a ProcessedArtifact) ByteLength() int64 {
	return int64(len(a.Data))
}

// CompressionStats is a read-only snapshot of the savings of a pass.
type CompressionStats struct {
	// OriginalSize is the byte length of the session's first input.
	OriginalSize int64
	// NewSize is the byte length of the latest artifact.
	NewSize int64
	// CompressionRatio is the percentage reduction against OriginalSize,
	// clamped to 0 when the artifact is larger than the original.
	CompressionRatio float64
	// Savings is OriginalSize - NewSize and is negative when the pass grew the payload.
	Savings int64
}

// NewCompressionStats computes stats against the session's original size.
func NewCompressionStats(originalSize, newSize int64) CompressionStats {
	stats := CompressionStats{
		OriginalSize: originalSize,
		NewSize:      newSize,
		Savings:      originalSize - newSize,
	}
	if originalSize > 0 && newSize <= originalSize {
		stats.CompressionRatio = (1 - float64(newSize)/float64(originalSize)) * 100
	}
	return stats
}

// Grew reports whether the artifact is larger than the original input.
func (s CompressionStats) Grew() bool {
	return s.NewSize > s.OriginalSize
}

// Pass is everything a caller needs to carry from one pass to the next.
type Pass struct {
	Artifact  ProcessedArtifact
	Stats     CompressionStats
	Iteration int
}

// Summary returns a one-line description suitable for a status banner.
func (p Pass) Summary() string {
	return fmt.Sprintf("pass %d: %s → %s (%.1f%% smaller) %dx%d q=%.2f",
		p.Iteration,
		humanize.Bytes(uint64(p.Stats.OriginalSize)),
		humanize.Bytes(uint64(p.Stats.NewSize)),
		p.Stats.CompressionRatio,
		p.Artifact.Width, p.Artifact.Height,
		p.Artifact.Quality,
	)
}

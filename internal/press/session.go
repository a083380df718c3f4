package press

import (
	"context"
	"fmt"

	"github.com/acm19/imgpress/internal/logger"
)

// Compressor defines the interface for running compression passes.
// Implementations hold no session state: everything a continuation needs
// travels in the Pass value returned by the previous call.
type Compressor interface {
	// ProcessInitial runs the first pass over the original source.
	ProcessInitial(ctx context.Context, source ImageSource, opts Options) (Pass, error)
	// ContinueIterating re-encodes the previous pass's artifact, never the source.
	ContinueIterating(ctx context.Context, previous Pass, opts Options) (Pass, error)
}

// compressor implements the Compressor interface
type compressor struct {
	decoder Decoder
	encoder Encoder
}

// NewCompressor creates a new Compressor instance
func NewCompressor() Compressor {
	return &compressor{
		decoder: NewDecoder(),
		encoder: NewEncoder(),
	}
}

// NewCompressorWith creates a Compressor with custom decode and encode stages
func NewCompressorWith(decoder Decoder, encoder Encoder) Compressor {
	return &compressor{
		decoder: decoder,
		encoder: encoder,
	}
}

// ProcessInitial is the only place the session's original size is captured.
func (c *compressor) ProcessInitial(ctx context.Context, source ImageSource, opts Options) (Pass, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return Pass{}, err
	}
	if err := validatePayload(source.Data, opts.MaxSourceBytes); err != nil {
		return Pass{}, err
	}

	const iteration = 1
	artifact, err := c.runPass(ctx, source.Data, source.MIMEType, opts, iteration)
	if err != nil {
		return Pass{}, err
	}

	pass := Pass{
		Artifact:  artifact,
		Stats:     NewCompressionStats(source.ByteLength(), artifact.ByteLength()),
		Iteration: iteration,
	}
	logger.Debug("Initial pass complete", "source", source.Name, "original_size", pass.Stats.OriginalSize,
		"new_size", pass.Stats.NewSize, "ratio", pass.Stats.CompressionRatio)
	return pass, nil
}

// ContinueIterating leaves previous untouched, so a failed call can be retried with it.
func (c *compressor) ContinueIterating(ctx context.Context, previous Pass, opts Options) (Pass, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return Pass{}, err
	}
	if previous.Iteration < 1 {
		return Pass{}, &ValidationError{Field: "previous", Reason: fmt.Sprintf("iteration must be at least 1, got %d", previous.Iteration)}
	}
	if previous.Stats.OriginalSize <= 0 {
		return Pass{}, &ValidationError{Field: "previous", Reason: "original size was not carried forward"}
	}
	if err := validatePayload(previous.Artifact.Data, 0); err != nil {
		return Pass{}, err
	}

	iteration := previous.Iteration + 1
	artifact, err := c.runPass(ctx, previous.Artifact.Data, previous.Artifact.MIMEType, opts, iteration)
	if err != nil {
		return Pass{}, err
	}

	pass := Pass{
		Artifact:  artifact,
		Stats:     NewCompressionStats(previous.Stats.OriginalSize, artifact.ByteLength()),
		Iteration: iteration,
	}
	logger.Debug("Continuation pass complete", "iteration", iteration, "previous_size", previous.Artifact.ByteLength(),
		"new_size", pass.Stats.NewSize, "ratio", pass.Stats.CompressionRatio)
	return pass, nil
}

// runPass performs decode → resize → encode over one payload.
func (c *compressor) runPass(ctx context.Context, data []byte, declaredMIME string, opts Options, iteration int) (ProcessedArtifact, error) {
	if err := ctx.Err(); err != nil {
		return ProcessedArtifact{}, err
	}

	reportProgress(opts, StageDecoding, iteration, "Decoding image")
	surface, err := c.decoder.Decode(data, declaredMIME, !opts.IgnoreOrientation)
	if err != nil {
		return ProcessedArtifact{}, err
	}
	defer surface.Release()

	if err := ctx.Err(); err != nil {
		return ProcessedArtifact{}, err
	}

	reportProgress(opts, StageResizing, iteration, fmt.Sprintf("Fitting %dx%d within %dpx", surface.Width(), surface.Height(), opts.MaxDimension))
	if err := resizeSurface(surface, opts.MaxDimension); err != nil {
		return ProcessedArtifact{}, err
	}

	if err := ctx.Err(); err != nil {
		return ProcessedArtifact{}, err
	}

	reportProgress(opts, StageEncoding, iteration, fmt.Sprintf("Encoding %s at quality %.2f", OutputFormat, opts.Quality))
	artifact, err := c.encoder.Encode(surface, opts.Quality)
	if err != nil {
		return ProcessedArtifact{}, err
	}
	if len(artifact.Data) == 0 {
		return ProcessedArtifact{}, &EncodeError{Err: fmt.Errorf("pass %d produced an empty artifact", iteration)}
	}

	reportProgress(opts, StageDone, iteration, fmt.Sprintf("Encoded %d bytes", len(artifact.Data)))
	return artifact, nil
}

// reportProgress never blocks a pass on a slow listener.
func reportProgress(opts Options, stage Stage, iteration int, message string) {
	if opts.Progress == nil {
		return
	}
	select {
	case opts.Progress <- ProgressEvent{Stage: stage, Iteration: iteration, Message: message}:
	default:
		logger.Debug("Progress event dropped (channel full)", "stage", stage)
	}
}

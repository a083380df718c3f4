package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/acm19/imgpress/internal/config"
	"github.com/acm19/imgpress/internal/logger"
	"github.com/acm19/imgpress/internal/press"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// batch compresses independent files. Each file is its own session: passes
// never share state across files.
type batch struct {
	outDir      string
	passes      int
	concurrency int
	opts        press.Options
	schedule    press.QualitySchedule
}

// fileResult is the outcome of one file's session.
type fileResult struct {
	source string
	output string
	pass   press.Pass
	err    error
}

// newBatch applies non-zero flag values on top of cfg.
func newBatch(cfg config.Config, outDir string, maxDimension int, quality float64, passes, concurrency int) (batch, error) {
	b := batch{
		outDir:      outDir,
		passes:      passes,
		concurrency: cfg.Concurrency,
		opts:        cfg.CompressOptions(),
		schedule:    cfg.Schedule(),
	}

	switch {
	case maxDimension < 0:
		return batch{}, fmt.Errorf("--max-dimension must not be negative, got %d", maxDimension)
	case quality < 0 || quality > 1:
		return batch{}, fmt.Errorf("--quality must be within (0,1], got %g", quality)
	case passes < 0:
		return batch{}, fmt.Errorf("--passes must not be negative, got %d", passes)
	case concurrency < 0:
		return batch{}, fmt.Errorf("--concurrency must not be negative, got %d", concurrency)
	}

	if maxDimension > 0 {
		b.opts.MaxDimension = maxDimension
	}
	if quality > 0 {
		b.opts.Quality = quality
	}
	if concurrency > 0 {
		b.concurrency = concurrency
	}
	return b, nil
}

// run compresses every path with at most b.concurrency sessions in flight.
// Per-file failures are reported in the results; the error is only set when
// the batch cannot start or ctx was cancelled.
func (b batch) run(ctx context.Context, c press.Compressor, paths []string) ([]fileResult, error) {
	outputs, err := b.outputPaths(paths)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = b.compressFile(ctx, c, path, outputs[i])
			return nil
		})
	}
	g.Wait()
	return results, ctx.Err()
}

// outputPaths maps every input to its artifact path, rejecting inputs that
// would overwrite each other (photo.png and photo.jpg both become photo.jpg).
func (b batch) outputPaths(paths []string) ([]string, error) {
	outputs := make([]string, len(paths))
	claimed := make(map[string]string, len(paths))
	for i, path := range paths {
		out := filepath.Join(b.outDir, press.ArtifactFilename(filepath.Base(path)))
		if other, ok := claimed[out]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s", other, path, out)
		}
		claimed[out] = path
		outputs[i] = out
	}
	return outputs, nil
}

func (b batch) compressFile(ctx context.Context, c press.Compressor, path, output string) fileResult {
	result := fileResult{source: path, output: output}

	source, err := press.OpenSource(path, b.opts.MaxSourceBytes)
	if err != nil {
		result.err = err
		logger.Error("Skipping file", "file", path, "error", err)
		return result
	}

	progress := make(chan press.ProgressEvent, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range progress {
			logger.Debug(event.Message, "file", path, "iteration", event.Iteration, "stage", event.Stage)
		}
	}()

	opts := b.opts
	opts.Progress = progress
	result.pass, result.err = b.iterate(ctx, c, source, opts)
	close(progress)
	<-done

	if result.err != nil {
		logger.Error("Compression failed", "file", path, "error", result.err)
		return result
	}

	if err := os.WriteFile(output, result.pass.Artifact.Data, 0644); err != nil {
		result.err = fmt.Errorf("failed to write %s: %w", output, err)
		logger.Error("Write failed", "file", path, "error", result.err)
		return result
	}
	logger.Info("Compressed", "file", path, "output", output, "result", result.pass.Summary())
	return result
}

// iterate runs the initial pass and up to b.passes continuations. It stops at
// the quality floor, on the first continuation that does not shrink the
// artifact, or on a failed continuation; the last good pass is returned.
func (b batch) iterate(ctx context.Context, c press.Compressor, source press.ImageSource, opts press.Options) (press.Pass, error) {
	pass, err := c.ProcessInitial(ctx, source, opts)
	if err != nil {
		return press.Pass{}, err
	}

	for i := 0; i < b.passes; i++ {
		next, ok := b.schedule.Next(pass.Artifact.Quality)
		if !ok {
			logger.Debug("Quality floor reached", "file", source.Name, "quality", pass.Artifact.Quality)
			break
		}

		opts.Quality = next
		candidate, err := c.ContinueIterating(ctx, pass, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return press.Pass{}, ctxErr
			}
			logger.Warn("Continuation failed, keeping previous pass", "file", source.Name,
				"iteration", pass.Iteration+1, "error", err)
			break
		}
		if candidate.Stats.NewSize >= pass.Stats.NewSize {
			logger.Debug("No further savings", "file", source.Name, "iteration", candidate.Iteration,
				"size", candidate.Stats.NewSize)
			break
		}
		pass = candidate
	}
	return pass, nil
}

type batchSummary struct {
	succeeded  int
	failed     int
	original   int64
	compressed int64
}

func summarise(results []fileResult) batchSummary {
	var s batchSummary
	for _, r := range results {
		if r.err != nil {
			s.failed++
			continue
		}
		s.succeeded++
		s.original += r.pass.Stats.OriginalSize
		s.compressed += r.pass.Stats.NewSize
	}
	return s
}

func (s batchSummary) originalHuman() string {
	return humanize.Bytes(uint64(s.original))
}

func (s batchSummary) compressedHuman() string {
	return humanize.Bytes(uint64(s.compressed))
}

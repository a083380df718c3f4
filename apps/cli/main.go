package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/acm19/imgpress/apps/cli/completion"
	"github.com/acm19/imgpress/internal/config"
	"github.com/acm19/imgpress/internal/files"
	"github.com/acm19/imgpress/internal/inspect"
	"github.com/acm19/imgpress/internal/logger"
	"github.com/acm19/imgpress/internal/press"
	"github.com/barasher/go-exiftool"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "imgpress",
	Short: "Compress images for upload",
	Long: `Imgpress downsizes images to a bounded long edge and re-encodes them as JPEG,
optionally running further passes at decreasing quality until the savings stop.`,
	Version:          version,
	PersistentPreRun: loadConfig,
}

var compressCmd = &cobra.Command{
	Use:   "compress FILE|DIR... --out DIR",
	Short: "Compress images into an output directory",
	Long: `Runs an initial pass over every image, then up to --passes continuation passes
at decreasing quality. Each continuation re-encodes the previous artifact and is kept
only if it is smaller.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runCompress,
}

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "Print a data URL thumbnail of an image",
	Args:  cobra.ExactArgs(1),
	Run:   runPreview,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE...",
	Short: "Show source metadata read by exiftool",
	Args:  cobra.MinimumNArgs(1),
	Run:   runInspect,
}

var (
	envFile      string
	outDir       string
	maxDimension int
	quality      float64
	passes       int
	concurrency  int

	cfg config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file with IMGPRESS_* settings")

	compressCmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (must exist)")
	compressCmd.Flags().IntVarP(&maxDimension, "max-dimension", "m", 0, "Long edge bound in pixels (0 uses IMGPRESS_MAX_DIMENSION)")
	compressCmd.Flags().Float64VarP(&quality, "quality", "q", 0, "Initial quality in (0,1] (0 uses IMGPRESS_QUALITY)")
	compressCmd.Flags().IntVarP(&passes, "passes", "p", 0, "Maximum continuation passes after the initial one")
	compressCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Files compressed at once (0 uses IMGPRESS_CONCURRENCY)")
	compressCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(compressCmd, previewCmd, inspectCmd)
	rootCmd.AddCommand(completion.NewCmd(rootCmd))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) {
	var err error
	cfg, err = config.Load(envFile)
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	// stdout is reserved for command output such as preview data URLs.
	if err := logger.Configure(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Error("Invalid logging configuration", "error", err)
		os.Exit(1)
	}
}

func runCompress(cmd *cobra.Command, args []string) {
	discovery := files.NewDiscovery()
	if err := discovery.ValidateOutputDir(outDir); err != nil {
		logger.Error("Output validation failed", "error", err)
		os.Exit(1)
	}

	paths, err := discovery.Expand(args)
	if err != nil {
		logger.Error("Failed to resolve inputs", "error", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		logger.Error("No supported images found", "inputs", args)
		os.Exit(1)
	}

	b, err := newBatch(cfg, outDir, maxDimension, quality, passes, concurrency)
	if err != nil {
		logger.Error("Invalid options", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting compression", "files", len(paths), "out", outDir, "passes", b.passes, "concurrency", b.concurrency)
	results, err := b.run(cmd.Context(), press.NewCompressor(), paths)
	if err != nil {
		logger.Error("Compression aborted", "error", err)
		os.Exit(1)
	}

	summary := summarise(results)
	if summary.failed > 0 {
		logger.Error("Compression finished with failures", "succeeded", summary.succeeded, "failed", summary.failed)
		os.Exit(1)
	}
	logger.Info("Compression completed successfully", "files", summary.succeeded,
		"original", summary.originalHuman(), "compressed", summary.compressedHuman())
}

func runPreview(cmd *cobra.Command, args []string) {
	preview, err := renderPreview(cmd.Context(), cfg, args[0])
	if err != nil {
		logger.Error("Preview failed", "file", args[0], "error", err)
		os.Exit(1)
	}

	logger.Debug("Rendered preview", "file", args[0], "width", preview.Width, "height", preview.Height)
	fmt.Fprintln(cmd.OutOrStdout(), preview.DataURL)
}

// renderPreview applies the same source size limit as compress.
func renderPreview(ctx context.Context, cfg config.Config, path string) (press.Preview, error) {
	source, err := press.OpenSource(path, cfg.MaxSourceBytes)
	if err != nil {
		return press.Preview{}, err
	}
	result := <-press.NewPreviewer(cfg.PreviewMaxDimension).PreviewAsync(ctx, source.Data)
	return result.Preview, result.Err
}

func runInspect(cmd *cobra.Command, args []string) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		logger.Error("Failed to initialise exiftool", "error", err)
		os.Exit(1)
	}
	defer et.Close()

	results, errs := inspect.NewInspector(et).Inspect(args...)
	failed := 0
	for i, m := range results {
		if errs[i] != nil {
			logger.Error("Inspect failed", "file", args[i], "error", errs[i])
			failed++
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), m.String())
	}
	if failed > 0 {
		os.Exit(1)
	}
}

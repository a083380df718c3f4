package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/acm19/imgpress/internal/press"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "IMGPRESS_"

// Config holds settings shared by every command.
type Config struct {
	// MaxDimension bounds the long edge of artifacts in pixels.
	MaxDimension int `env:"MAX_DIMENSION" envDefault:"1200"`
	// Quality is the quality factor of the initial pass.
	Quality float64 `env:"QUALITY" envDefault:"0.8"`
	// QualityStep is how much each continuation pass lowers quality.
	QualityStep float64 `env:"QUALITY_STEP" envDefault:"0.05"`
	// QualityFloor is the lowest quality a continuation pass may use.
	QualityFloor float64 `env:"QUALITY_FLOOR" envDefault:"0.6"`
	// PreviewMaxDimension bounds the long edge of preview thumbnails.
	PreviewMaxDimension int `env:"PREVIEW_MAX_DIMENSION" envDefault:"320"`
	// MaxSourceBytes rejects larger source files up front (0 = unlimited).
	MaxSourceBytes int64 `env:"MAX_SOURCE_BYTES" envDefault:"20971520"`
	// Concurrency is the number of files compressed at once.
	Concurrency int `env:"CONCURRENCY" envDefault:"4"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is text or json.
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads an optional .env file and then the environment.
// dotenvPath may be empty to skip the file; a missing file is not an error.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that every value is in range.
func (c Config) Validate() error {
	if c.MaxDimension <= 0 {
		return fmt.Errorf("%sMAX_DIMENSION must be positive, got %d", EnvPrefix, c.MaxDimension)
	}
	if c.Quality <= 0 || c.Quality > 1 {
		return fmt.Errorf("%sQUALITY must be within (0,1], got %g", EnvPrefix, c.Quality)
	}
	if err := c.Schedule().Validate(); err != nil {
		return fmt.Errorf("invalid quality schedule: %w", err)
	}
	if c.PreviewMaxDimension <= 0 {
		return fmt.Errorf("%sPREVIEW_MAX_DIMENSION must be positive, got %d", EnvPrefix, c.PreviewMaxDimension)
	}
	if c.MaxSourceBytes < 0 {
		return fmt.Errorf("%sMAX_SOURCE_BYTES must not be negative, got %d", EnvPrefix, c.MaxSourceBytes)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%sCONCURRENCY must be positive, got %d", EnvPrefix, c.Concurrency)
	}
	return nil
}

// CompressOptions returns pass options for the configured bounds.
func (c Config) CompressOptions() press.Options {
	return press.Options{
		MaxDimension:   c.MaxDimension,
		Quality:        c.Quality,
		MaxSourceBytes: c.MaxSourceBytes,
	}
}

// Schedule returns the continuation quality schedule.
func (c Config) Schedule() press.QualitySchedule {
	return press.QualitySchedule{Step: c.QualityStep, Floor: c.QualityFloor}
}

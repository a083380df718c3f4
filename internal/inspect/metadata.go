package inspect

import (
	"fmt"

	"github.com/acm19/imgpress/internal/logger"
	"github.com/barasher/go-exiftool"
)

// Metadata is the subset of source tags checked before compressing.
type Metadata struct {
	File        string
	MIMEType    string
	Width       int64
	Height      int64
	Orientation string
	FileSize    string
}

// Inspector defines the interface for reading source image metadata
type Inspector interface {
	// Inspect extracts metadata for each file. Per-file failures are returned
	// in the error slice at the same index.
	Inspect(paths ...string) ([]Metadata, []error)
}

// exifInspector implements the Inspector interface
type exifInspector struct {
	et *exiftool.Exiftool
}

// NewInspector creates a new Inspector backed by an exiftool process
func NewInspector(et *exiftool.Exiftool) Inspector {
	return &exifInspector{et: et}
}

// Inspect extracts metadata for each file
func (i *exifInspector) Inspect(paths ...string) ([]Metadata, []error) {
	results := make([]Metadata, len(paths))
	errs := make([]error, len(paths))
	if i.et == nil {
		for n := range paths {
			errs[n] = fmt.Errorf("exiftool not initialised")
		}
		return results, errs
	}

	for n, info := range i.et.ExtractMetadata(paths...) {
		if n >= len(paths) {
			break
		}
		results[n].File = paths[n]
		if info.Err != nil {
			errs[n] = fmt.Errorf("failed to read metadata of %s: %w", paths[n], info.Err)
			continue
		}

		results[n].MIMEType, _ = info.GetString("MIMEType")
		results[n].Width, _ = info.GetInt("ImageWidth")
		results[n].Height, _ = info.GetInt("ImageHeight")
		results[n].FileSize, _ = info.GetString("FileSize")
		if orientation, err := info.GetString("Orientation"); err == nil {
			results[n].Orientation = orientation
		}
		logger.Debug("Read source metadata", "file", paths[n], "mime", results[n].MIMEType,
			"width", results[n].Width, "height", results[n].Height)
	}
	return results, errs
}

// String returns a one-line description of the metadata.
func (m Metadata) String() string {
	orientation := m.Orientation
	if orientation == "" {
		orientation = "none"
	}
	return fmt.Sprintf("%s: %s %dx%d %s orientation=%s", m.File, m.MIMEType, m.Width, m.Height, m.FileSize, orientation)
}

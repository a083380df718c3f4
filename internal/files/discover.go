package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/acm19/imgpress/internal/press"
)

// Discovery defines the interface for locating input images and validating output directories
type Discovery interface {
	// ValidateOutputDir checks that dir exists and is a directory
	ValidateOutputDir(dir string) error
	// Expand resolves files and directories to the supported image files they contain
	Expand(paths []string) ([]string, error)
}

// discovery implements the Discovery interface
type discovery struct {
	formats press.Formats
}

// NewDiscovery creates a new Discovery instance
func NewDiscovery() Discovery {
	return &discovery{formats: press.NewFormats()}
}

// ValidateOutputDir checks that dir exists and is a directory
func (d *discovery) ValidateOutputDir(dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("OUTPUT_DIR is not a valid directory: %s", dir)
	}
	return nil
}

// Expand keeps explicit file arguments as given and walks directories
// recursively, skipping dot files and unsupported extensions.
func (d *discovery) Expand(paths []string) ([]string, error) {
	var result []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		var found []string
		err = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Skip dot files and dot directories
			if path != p && strings.HasPrefix(info.Name(), ".") {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.IsDir() && d.formats.IsImage(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p, err)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return result, nil
}

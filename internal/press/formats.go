package press

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Every artifact is normalised to this format regardless of the source format.
const (
	OutputFormat    = "jpeg"
	OutputMIME      = "image/jpeg"
	OutputExtension = ".jpg"
)

// Formats defines the interface for recognising decodable image inputs.
type Formats interface {
	// IsImage returns true if the file extension is a supported image format.
	IsImage(filePath string) bool
	// IsSupportedMIME returns true if the MIME type can be decoded.
	IsSupportedMIME(mimeType string) bool
	// Sniff detects the MIME type of a payload from its content, or "" if unknown.
	Sniff(data []byte) string
}

// formats implements the Formats interface.
type formats struct {
	imageExts  []string
	imageMIMEs []string
}

// NewFormats creates a new Formats instance.
func NewFormats() Formats {
	return &formats{
		imageExts:  []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"},
		imageMIMEs: []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff"},
	}
}

// IsImage returns true if the file extension is a supported image format.
func (f *formats) IsImage(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return slices.Contains(f.imageExts, ext)
}

// IsSupportedMIME returns true if the MIME type can be decoded.
func (f *formats) IsSupportedMIME(mimeType string) bool {
	return slices.Contains(f.imageMIMEs, canonicalMIME(mimeType))
}

func (f *formats) Sniff(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	detected := canonicalMIME(mimetype.Detect(data).String())
	if detected == "application/octet-stream" {
		return ""
	}
	return detected
}

// canonicalMIME lowercases, strips parameters and folds common aliases.
func canonicalMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-ms-bmp":
		return "image/bmp"
	}
	return mimeType
}

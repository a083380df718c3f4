package press

import (
	"fmt"
	"os"
	"path/filepath"
)

// ImageSource is the original user-selected file. It is never mutated.
type ImageSource struct {
	// Name is the original filename, used to derive the upload filename.
	Name string
	// MIMEType is the type declared by the caller (not trusted for decoding).
	MIMEType string
	// Data is the raw file payload.
	Data []byte
}

// NewImageSource creates an ImageSource that owns a copy of data.
func NewImageSource(name, mimeType string, data []byte) ImageSource {
	owned := make([]byte, len(data))
	copy(owned, data)
	return ImageSource{Name: name, MIMEType: mimeType, Data: owned}
}

// ByteLength returns the payload size in bytes.
func (s ImageSource) ByteLength() int64 {
	return int64(len(s.Data))
}

// OpenSource reads an image file from disk. 0-byte files and files larger
// than maxBytes (0 = unlimited) are rejected before anything is read.
func OpenSource(path string, maxBytes int64) (ImageSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ImageSource{}, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return ImageSource{}, &ValidationError{Field: "source", Reason: fmt.Sprintf("%s is a directory", path)}
	}
	if info.Size() == 0 {
		return ImageSource{}, &ValidationError{Field: "source", Reason: "file is 0 bytes (corrupted)"}
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return ImageSource{}, &ValidationError{
			Field:  "source",
			Reason: fmt.Sprintf("size %d bytes exceeds limit of %d bytes", info.Size(), maxBytes),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ImageSource{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return ImageSource{
		Name:     filepath.Base(path),
		MIMEType: NewFormats().Sniff(data),
		Data:     data,
	}, nil
}

// validatePayload runs the pre-flight checks shared by every pass.
func validatePayload(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return &ValidationError{Field: "payload", Reason: "empty payload"}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return &ValidationError{
			Field:  "payload",
			Reason: fmt.Sprintf("size %d bytes exceeds limit of %d bytes", len(data), maxBytes),
		}
	}
	return nil
}

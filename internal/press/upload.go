package press

import (
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadField is the multipart field name artifacts are attached under.
const UploadField = "image"

// ArtifactFilename derives an upload filename whose extension matches the
// normalized format. An empty base yields a random name.
func ArtifactFilename(base string) string {
	base = filepath.Base(strings.TrimSpace(base))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = uuid.NewString()
	}
	return base + OutputExtension
}

// AttachArtifact writes the artifact as a file part of mw. An empty field
// uses UploadField.
func AttachArtifact(mw *multipart.Writer, field, baseName string, artifact ProcessedArtifact) error {
	if len(artifact.Data) == 0 {
		return &ValidationError{Field: "artifact", Reason: "empty artifact"}
	}
	if field == "" {
		field = UploadField
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, ArtifactFilename(baseName)))
	header.Set("Content-Type", OutputMIME)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create upload part: %w", err)
	}
	if _, err := part.Write(artifact.Data); err != nil {
		return fmt.Errorf("failed to write upload part: %w", err)
	}
	return nil
}

package press

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// photoImage builds a deterministic gradient with per-pixel noise so that
// JPEG sizes react to quality the way photographs do.
func photoImage(w, h int, noise int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := (x * 255) / max(w-1, 1)
			g := (y * 255) / max(h-1, 1)
			b := ((x + y) * 255) / max(w+h-2, 1)
			if noise > 0 {
				r += rng.Intn(2*noise+1) - noise
				g += rng.Intn(2*noise+1) - noise
				b += rng.Intn(2*noise+1) - noise
			}
			off := y*img.Stride + x*4
			img.Pix[off] = clamp8(r)
			img.Pix[off+1] = clamp8(g)
			img.Pix[off+2] = clamp8(b)
			img.Pix[off+3] = 255
		}
	}
	return img
}

func clamp8(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG fixture: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("Failed to encode JPEG fixture: %v", err)
	}
	return buf.Bytes()
}

func encodeGIF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode GIF fixture: %v", err)
	}
	return buf.Bytes()
}

// zeroSizedGIF returns a GIF header whose logical screen is 0x0.
func zeroSizedGIF() []byte {
	b := []byte("GIF89a")
	// width, height, flags, background index, aspect ratio
	return append(b, 0, 0, 0, 0, 0, 0, 0)
}

// decodeArtifact checks that an artifact is a well-formed JPEG and returns its size.
func decodeArtifact(t *testing.T, a ProcessedArtifact) (int, int) {
	t.Helper()
	if a.Format != OutputFormat || a.MIMEType != OutputMIME {
		t.Fatalf("Artifact format = %s (%s), want %s (%s)", a.Format, a.MIMEType, OutputFormat, OutputMIME)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(a.Data))
	if err != nil {
		t.Fatalf("Artifact is not decodable: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("Artifact payload format = %s, want jpeg", format)
	}
	if cfg.Width != a.Width || cfg.Height != a.Height {
		t.Errorf("Artifact reports %dx%d but payload is %dx%d", a.Width, a.Height, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// withOrientation inserts an EXIF APP1 segment carrying the given
// orientation tag right after the JPEG SOI marker.
func withOrientation(t *testing.T, jpegData []byte, orientation uint16) []byte {
	t.Helper()
	if len(jpegData) < 2 || jpegData[0] != 0xFF || jpegData[1] != 0xD8 {
		t.Fatal("withOrientation needs a JPEG payload")
	}

	ifd := []byte{
		'M', 'M', 0x00, 0x2A, // big-endian TIFF header
		0x00, 0x00, 0x00, 0x08, // offset of IFD0
		0x00, 0x01, // one entry
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, // Orientation, SHORT, count 1
		byte(orientation >> 8), byte(orientation), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), ifd...)
	length := len(payload) + 2

	var buf bytes.Buffer
	buf.Write(jpegData[:2])
	buf.Write([]byte{0xFF, 0xE1, byte(length >> 8), byte(length)})
	buf.Write(payload)
	buf.Write(jpegData[2:])
	return buf.Bytes()
}

func encodeBMP(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode BMP fixture: %v", err)
	}
	return buf.Bytes()
}

func encodeTIFF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode TIFF fixture: %v", err)
	}
	return buf.Bytes()
}

// losslessWebP is a 1x1 lossless WebP image.
func losslessWebP(t *testing.T) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString("UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA==")
	if err != nil {
		t.Fatalf("Failed to decode WebP fixture: %v", err)
	}
	return data
}

// Package imgproc covers the image plumbing around a render: decoding the
// viewport screenshot, downscale-only normalization into a resolution
// envelope, and persisting results under unique names.
package imgproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // viewport screenshots are PNG or JPEG
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// FitWithin downscales img to fit inside maxW x maxH, preserving the
// aspect ratio exactly. Images already inside the envelope are returned
// unchanged: never upscale, never distort.
func FitWithin(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	tw := int(math.Round(float64(w) * scale))
	th := int(math.Round(float64(h) * scale))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveBytes writes data under dir as prefix_timestamp_shortid.ext, with the
// extension derived from mimeType. It returns the absolute path.
func SaveBytes(dir, prefix string, data []byte, mimeType string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s%s",
		prefix,
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8],
		extFromMIME(mimeType))

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func extFromMIME(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// DecodeBounds reports the pixel dimensions of encoded image data.
func DecodeBounds(data []byte) (w, h int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// CleanupTemp removes files under dir older than maxAge and returns how
// many were deleted. Subdirectories are left alone.
func CleanupTemp(dir string, maxAge time.Duration, logger *slog.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if logger != nil {
				logger.Warn("temp cleanup failed", "path", path, "err", err)
			}
			continue
		}
		deleted++
	}

	if deleted > 0 && logger != nil {
		logger.Debug("temp files cleaned", "dir", dir, "deleted", deleted)
	}
	return deleted
}

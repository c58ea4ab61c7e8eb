package imgproc

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 64 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestFitWithinDownscalesPreservingAspect(t *testing.T) {
	fitted := FitWithin(testImage(5000, 3000), 2048, 2048)

	bounds := fitted.Bounds()
	assert.Equal(t, 2048, bounds.Dx(), "longer side lands on the envelope")
	assert.Equal(t, 1229, bounds.Dy(), "3000 * 2048/5000 rounded")

	srcRatio := 5000.0 / 3000.0
	dstRatio := float64(bounds.Dx()) / float64(bounds.Dy())
	assert.InDelta(t, srcRatio, dstRatio, 0.001, "aspect ratio unchanged within rounding")
}

func TestFitWithinPortrait(t *testing.T) {
	fitted := FitWithin(testImage(1000, 4000), 2048, 2048)
	bounds := fitted.Bounds()
	assert.Equal(t, 2048, bounds.Dy())
	assert.Equal(t, 512, bounds.Dx())
}

func TestFitWithinNeverUpscales(t *testing.T) {
	img := testImage(800, 600)
	fitted := FitWithin(img, 2048, 2048)
	assert.Same(t, img, fitted, "images inside the envelope pass through untouched")

	exact := testImage(2048, 2048)
	assert.Same(t, exact, FitWithin(exact, 2048, 2048))
}

func TestLoadAndEncodeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewport.png")
	writePNG(t, path, testImage(320, 200))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	data, err := EncodePNG(img)
	require.NoError(t, err)

	w, h, err := DecodeBounds(data)
	require.NoError(t, err)
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)
}

func TestDecodeBoundsRejectsNonImage(t *testing.T) {
	_, _, err := DecodeBounds([]byte("not an image at all"))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestSaveBytesNaming(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveBytes(dir, "render_2k", []byte("data"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".png"))
	assert.Contains(t, filepath.Base(path), "render_2k_")

	second, err := SaveBytes(dir, "render_2k", []byte("data"), "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, path, second, "names are unique")

	jpg, err := SaveBytes(dir, "viewport", []byte("data"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(jpg, ".jpg"))
}

func TestCleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "render_old.png")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	fresh := filepath.Join(dir, "render_fresh.png")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))

	deleted := CleanupTemp(dir, 24*time.Hour, nil)
	assert.Equal(t, 1, deleted)

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

package render

import (
	"context"
	"errors"
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

	"renderai/internal/imgproc"
	"renderai/internal/ledger"
)

type fakeBackend struct {
	calls      int
	lastPrompt string
	lastInput  *ImageData
	lastModel  string
	fail       error
	output     ImageData
}

func (f *fakeBackend) Generate(_ context.Context, prompt string, input *ImageData, model string) (ImageData, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastInput = input
	f.lastModel = model
	if f.fail != nil {
		return ImageData{}, f.fail
	}
	return f.output, nil
}

func renderedPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	data, err := imgproc.EncodePNG(img)
	require.NoError(t, err)
	return data
}

func writeInputImage(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "viewport.png")
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New(ledger.Options{Path: filepath.Join(t.TempDir(), "cost_tracking.json")})
	l.Load()
	return l
}

func newTestOrchestrator(t *testing.T, backend Backend, costs *ledger.Ledger, ceiling float64) *Orchestrator {
	t.Helper()
	return New(Options{
		Backend:    backend,
		Ledger:     costs,
		CeilingUSD: ceiling,
		OutputDir:  t.TempDir(),
	})
}

func TestRenderSuccess(t *testing.T) {
	backend := &fakeBackend{output: ImageData{Data: renderedPNG(t), MIME: "image/png"}}
	costs := newTestLedger(t)
	orch := newTestOrchestrator(t, backend, costs, 100.0)

	result, err := orch.Render(context.Background(), Request{
		InputPath:      writeInputImage(t, 640, 480),
		Prompt:         "a lakeside villa",
		StylePreset:    "Modern",
		LightingPreset: "Sunset",
		Tier:           TierFast,
		Resolution:     Res2K,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, DefaultFastModel, backend.lastModel)
	assert.NotNil(t, backend.lastInput)
	assert.True(t, strings.HasPrefix(backend.lastPrompt, "Photorealistic architectural rendering."))
	assert.Contains(t, backend.lastPrompt, "a lakeside villa")

	assert.Equal(t, 0.039, result.CostUSD, "charged the flat 2K flash rate")
	assert.InDelta(t, 0.039, costs.MonthlyCost(), 1e-9, "exactly one ledger mutation")
	assert.GreaterOrEqual(t, result.Elapsed, time.Duration(0))

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, backend.output.Data, data)
}

func TestRenderTextOnly(t *testing.T) {
	backend := &fakeBackend{output: ImageData{Data: renderedPNG(t), MIME: "image/png"}}
	costs := newTestLedger(t)
	orch := newTestOrchestrator(t, backend, costs, 100.0)

	_, err := orch.Render(context.Background(), Request{
		Prompt:     "a glass tower at dusk",
		Tier:       TierPro,
		Resolution: Res4K,
	})
	require.NoError(t, err)

	assert.Nil(t, backend.lastInput, "no input image for text-only generation")
	assert.Equal(t, DefaultProModel, backend.lastModel)
	assert.InDelta(t, 0.240, costs.MonthlyCost(), 1e-9, "pro 4K rate")
}

func TestRenderEmptyPrompt(t *testing.T) {
	backend := &fakeBackend{}
	costs := newTestLedger(t)
	orch := newTestOrchestrator(t, backend, costs, 100.0)

	_, err := orch.Render(context.Background(), Request{
		Prompt:     "   ",
		Tier:       TierFast,
		Resolution: Res2K,
	})
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Zero(t, backend.calls)
	assert.Zero(t, costs.MonthlyCost(), "failed validation leaves the ledger untouched")
}

func TestRenderMissingInputImage(t *testing.T) {
	backend := &fakeBackend{}
	costs := newTestLedger(t)
	orch := newTestOrchestrator(t, backend, costs, 100.0)

	_, err := orch.Render(context.Background(), Request{
		InputPath:  filepath.Join(t.TempDir(), "missing.png"),
		Prompt:     "a villa",
		Tier:       TierFast,
		Resolution: Res2K,
	})
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Zero(t, backend.calls)
	assert.Zero(t, costs.MonthlyCost())
}

func TestRenderUnreadableInputReportedBeforeBudget(t *testing.T) {
	backend := &fakeBackend{}
	costs := newTestLedger(t)
	costs.RecordCost(100.0)
	orch := newTestOrchestrator(t, backend, costs, 100.0)

	_, err := orch.Render(context.Background(), Request{
		InputPath:  filepath.Join(t.TempDir(), "missing.png"),
		Prompt:     "a villa",
		Tier:       TierFast,
		Resolution: Res2K,
	})
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err), "bad input wins over an exhausted budget")
	assert.Zero(t, backend.calls)
}

func TestRenderBudgetExceeded(t *testing.T) {
	backend := &fakeBackend{output: ImageData{Data: renderedPNG(t), MIME: "image/png"}}
	costs := newTestLedger(t)
	costs.RecordCost(100.0)
	orch := newTestOrchestrator(t, backend, costs, 100.0)

	_, err := orch.Render(context.Background(), Request{
		Prompt:     "a villa",
		Tier:       TierFast,
		Resolution: Res2K,
	})
	require.Error(t, err)
	assert.Equal(t, KindBudgetExceeded, KindOf(err))
	assert.Zero(t, backend.calls, "backend must not be invoked")
	assert.InDelta(t, 100.0, costs.MonthlyCost(), 1e-9, "no partial charge")
}

func TestRenderBackendFailureIsUncharged(t *testing.T) {
	backend := &fakeBackend{fail: errors.New("remote timeout")}
	costs := newTestLedger(t)
	orch := newTestOrchestrator(t, backend, costs, 100.0)

	_, err := orch.Render(context.Background(), Request{
		Prompt:     "a villa",
		Tier:       TierFast,
		Resolution: Res2K,
	})
	require.Error(t, err)
	assert.Equal(t, KindGeneration, KindOf(err))
	assert.Equal(t, 1, backend.calls)
	assert.Zero(t, costs.MonthlyCost(), "failed attempt is unbilled")
}

func TestRenderNoBackendConfigured(t *testing.T) {
	costs := newTestLedger(t)
	orch := newTestOrchestrator(t, nil, costs, 100.0)

	_, err := orch.Render(context.Background(), Request{
		Prompt:     "a villa",
		Tier:       TierFast,
		Resolution: Res2K,
	})
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
}

func TestRenderNormalizesOversizedInput(t *testing.T) {
	backend := &fakeBackend{output: ImageData{Data: renderedPNG(t), MIME: "image/png"}}
	costs := newTestLedger(t)
	orch := newTestOrchestrator(t, backend, costs, 100.0)

	_, err := orch.Render(context.Background(), Request{
		InputPath:  writeInputImage(t, 5000, 3000),
		Prompt:     "a villa",
		Tier:       TierFast,
		Resolution: Res2K,
	})
	require.NoError(t, err)

	require.NotNil(t, backend.lastInput)
	w, h, err := imgproc.DecodeBounds(backend.lastInput.Data)
	require.NoError(t, err)
	assert.Equal(t, 2048, w)
	assert.Equal(t, 1229, h)
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in     string
		want   Resolution
		wantOK bool
	}{
		{"1K", Res1K, true},
		{"2k", Res2K, true},
		{" 4K ", Res4K, true},
		{"8K", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseResolution(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestEnvelopes(t *testing.T) {
	for res, want := range map[Resolution]int{Res1K: 1024, Res2K: 2048, Res4K: 4096} {
		w, h := res.Envelope()
		assert.Equal(t, want, w)
		assert.Equal(t, want, h)
	}
}

// Package render coordinates a single render request: prompt composition,
// cost estimation, budget enforcement, image normalization, backend
// invocation and cost accounting.
package render

import (
	"context"
	"strings"
	"time"
)

// Resolution is the output size class governing both generation cost and
// the normalization envelope.
type Resolution string

const (
	Res1K Resolution = "1K"
	Res2K Resolution = "2K"
	Res4K Resolution = "4K"
)

func ParseResolution(s string) (Resolution, bool) {
	switch Resolution(strings.ToUpper(strings.TrimSpace(s))) {
	case Res1K:
		return Res1K, true
	case Res2K:
		return Res2K, true
	case Res4K:
		return Res4K, true
	}
	return "", false
}

// Envelope returns the maximum pixel dimensions for the tier.
func (r Resolution) Envelope() (w, h int) {
	switch r {
	case Res1K:
		return 1024, 1024
	case Res4K:
		return 4096, 4096
	case Res2K:
		return 2048, 2048
	default:
		// Unparsed values behave like the pricing fallback tier.
		return 2048, 2048
	}
}

// Default backend model IDs behind the two tiers.
const (
	DefaultFastModel = "gemini-2.5-flash-image"
	DefaultProModel  = "gemini-3-pro-image"
)

// ModelTier selects between the fast/cheap and the pro/high-quality
// generation model; the concrete model IDs are opaque orchestrator options.
type ModelTier string

const (
	TierFast ModelTier = "fast"
	TierPro  ModelTier = "pro"
)

// Request describes one render invocation. Built per call, immutable once
// built.
type Request struct {
	// InputPath optionally points at the viewport screenshot; empty means
	// text-only generation.
	InputPath      string
	Prompt         string
	StylePreset    string
	LightingPreset string
	Tier           ModelTier
	Resolution     Resolution
}

// Result is the success outcome of a render. Failures are reported as
// *Error values.
type Result struct {
	OutputPath string
	CostUSD    float64
	Elapsed    time.Duration
}

// ImageData is an encoded image crossing the backend boundary.
type ImageData struct {
	Data []byte
	MIME string
}

// Backend is the remote generation capability. The model ID is passed
// through unchanged; input is nil for text-only generation.
type Backend interface {
	Generate(ctx context.Context, prompt string, input *ImageData, model string) (ImageData, error)
}

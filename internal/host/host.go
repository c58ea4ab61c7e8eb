// Package host adapts the orchestrator to the plugin-runtime boundary:
// typed input parameters in, a fixed-shape output tuple back. The host only
// sees success or failure; the richer error taxonomy stays with in-process
// callers of the orchestrator.
package host

import (
	"context"
	"io"
	"log/slog"

	"renderai/internal/config"
	"renderai/internal/render"
)

// Params mirrors the fields supplied by the host runtime.
type Params struct {
	InputImagePath string `json:"input_image_path"`
	Prompt         string `json:"prompt"`
	StylePreset    string `json:"style_preset"`
	LightingPreset string `json:"lighting_preset"`
	Resolution     string `json:"resolution"`
	UseProModel    bool   `json:"use_pro_model"`
}

// Output is the fixed-order result tuple. Every failure path returns
// {"", 0.0, 0.0, false} regardless of the failure reason.
type Output struct {
	RenderedImagePath string  `json:"rendered_image_path"`
	Cost              float64 `json:"cost"`
	ProcessTime       float64 `json:"process_time"`
	Success           bool    `json:"success"`
}

type Options struct {
	Orchestrator *render.Orchestrator
	Config       config.Config
	Logger       *slog.Logger
}

type Adapter struct {
	orch   *render.Orchestrator
	cfg    config.Config
	logger *slog.Logger
}

func New(opts Options) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Adapter{
		orch:   opts.Orchestrator,
		cfg:    opts.Config,
		logger: logger,
	}
}

// Run executes one render for the host. No panic and no error crosses this
// boundary; everything collapses to the output tuple.
func (a *Adapter) Run(ctx context.Context, p Params) (out Output) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("render panicked", "panic", r)
			out = Output{}
		}
	}()

	result, err := a.orch.Render(ctx, a.buildRequest(p))
	if err != nil {
		a.logger.Error("render failed",
			"kind", render.KindOf(err).String(),
			"err", err)
		return Output{}
	}

	return Output{
		RenderedImagePath: result.OutputPath,
		Cost:              result.CostUSD,
		ProcessTime:       result.Elapsed.Seconds(),
		Success:           true,
	}
}

// buildRequest fills host-omitted fields from configured defaults. An
// explicit "None" preset stays none; only genuinely absent values default.
func (a *Adapter) buildRequest(p Params) render.Request {
	style := p.StylePreset
	if style == "" {
		style = a.cfg.DefaultStyle
	}
	lighting := p.LightingPreset
	if lighting == "" {
		lighting = a.cfg.DefaultLighting
	}

	resolution, ok := render.ParseResolution(p.Resolution)
	if !ok {
		resolution, ok = render.ParseResolution(a.cfg.DefaultResolution)
		if !ok {
			resolution = render.Res2K
		}
	}

	tier := render.TierFast
	if p.UseProModel {
		tier = render.TierPro
	}

	return render.Request{
		InputPath:      p.InputImagePath,
		Prompt:         p.Prompt,
		StylePreset:    style,
		LightingPreset: lighting,
		Tier:           tier,
		Resolution:     resolution,
	}
}

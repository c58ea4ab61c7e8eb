package render

import (
	"context"
	"image"
	"io"
	"log/slog"
	"time"

	"renderai/internal/imgproc"
	"renderai/internal/ledger"
	"renderai/internal/prompt"
)

type Options struct {
	Backend Backend
	Ledger  *ledger.Ledger

	// CeilingUSD is the monthly spending cap checked before every render.
	CeilingUSD float64

	// FastModel/ProModel are the opaque backend model IDs behind the two
	// tiers; defaults cover the Gemini image models.
	FastModel string
	ProModel  string

	// OutputDir receives the rendered images.
	OutputDir string

	Logger *slog.Logger
}

// Orchestrator runs one render request start to finish:
// validate -> estimate -> budget gate -> normalize -> invoke -> record.
// Strictly sequential, no retries at this layer.
type Orchestrator struct {
	backend   Backend
	ledger    *ledger.Ledger
	ceiling   float64
	fastModel string
	proModel  string
	outputDir string
	logger    *slog.Logger
}

func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fastModel := opts.FastModel
	if fastModel == "" {
		fastModel = DefaultFastModel
	}
	proModel := opts.ProModel
	if proModel == "" {
		proModel = DefaultProModel
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "renders"
	}

	return &Orchestrator{
		backend:   opts.Backend,
		ledger:    opts.Ledger,
		ceiling:   opts.CeilingUSD,
		fastModel: fastModel,
		proModel:  proModel,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Render executes the pipeline for one request. On success exactly one
// ledger mutation happens; every failure path leaves the ledger untouched.
// Failures are *Error values carrying an ErrorKind.
func (o *Orchestrator) Render(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	if o.backend == nil {
		return Result{}, failf(KindConfiguration, "generation backend not configured, check API credential")
	}

	finalPrompt, err := prompt.Build(req.Prompt, req.StylePreset, req.LightingPreset)
	if err != nil {
		return Result{}, wrap(KindInvalidInput, "compose prompt", err)
	}

	var img image.Image
	if req.InputPath != "" {
		img, err = imgproc.Load(req.InputPath)
		if err != nil {
			return Result{}, wrap(KindInvalidInput, "input image", err)
		}
	}

	model := o.modelID(req.Tier)
	estimate := o.ledger.Estimate(model, string(req.Resolution))
	o.logger.Info("render estimated",
		"model", model,
		"resolution", string(req.Resolution),
		"estimate_usd", estimate)

	if !o.ledger.CheckBudget(o.ceiling) {
		return Result{}, failf(KindBudgetExceeded,
			"monthly spend %.4f USD has reached the %.2f USD ceiling",
			o.ledger.MonthlyCost(), o.ceiling)
	}

	var input *ImageData
	if img != nil {
		input, err = o.normalize(img, req.Resolution)
		if err != nil {
			return Result{}, err
		}
	}

	output, err := o.backend.Generate(ctx, finalPrompt, input, model)
	if err != nil {
		// Unbilled failed attempt: the estimate stays speculative until a
		// result is produced.
		return Result{}, wrap(KindGeneration, "backend generate", err)
	}

	outputPath, err := imgproc.SaveBytes(o.outputDir, renderPrefix(req.Resolution), output.Data, output.MIME)
	if err != nil {
		return Result{}, wrap(KindGeneration, "persist render", err)
	}

	o.ledger.RecordCost(estimate)

	elapsed := time.Since(start)
	o.logger.Info("render complete",
		"output", outputPath,
		"cost_usd", estimate,
		"elapsed_s", elapsed.Seconds())

	return Result{
		OutputPath: outputPath,
		CostUSD:    estimate,
		Elapsed:    elapsed,
	}, nil
}

// normalize downscales the input screenshot to fit the tier envelope when
// it exceeds it. Never upscales; the payload stays inside the bounds the
// cost estimate assumes.
func (o *Orchestrator) normalize(img image.Image, res Resolution) (*ImageData, error) {
	maxW, maxH := res.Envelope()
	fitted := imgproc.FitWithin(img, maxW, maxH)
	if fitted != img {
		o.logger.Info("input image downscaled",
			"from_w", img.Bounds().Dx(), "from_h", img.Bounds().Dy(),
			"to_w", fitted.Bounds().Dx(), "to_h", fitted.Bounds().Dy())
	}

	data, err := imgproc.EncodePNG(fitted)
	if err != nil {
		return nil, wrap(KindInvalidInput, "encode input image", err)
	}

	return &ImageData{Data: data, MIME: "image/png"}, nil
}

func (o *Orchestrator) modelID(tier ModelTier) string {
	switch tier {
	case TierPro:
		return o.proModel
	case TierFast:
		return o.fastModel
	default:
		return o.fastModel
	}
}

func renderPrefix(res Resolution) string {
	switch res {
	case Res1K:
		return "render_1k"
	case Res4K:
		return "render_4k"
	default:
		return "render_2k"
	}
}

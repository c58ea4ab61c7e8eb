// Package bot is the Telegram front end for the render pipeline: the
// operator sends a viewport screenshot with a prompt caption and gets the
// finished render back, with spend visible via /cost.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"renderai/internal/catalog"
	"renderai/internal/imgproc"
	"renderai/internal/ledger"
	"renderai/internal/render"
	"renderai/internal/telegram"
)

type Options struct {
	Telegram     *telegram.Client
	Orchestrator *render.Orchestrator
	Ledger       *ledger.Ledger
	Settings     *SettingsStore

	// CeilingUSD is shown in /cost next to the totals.
	CeilingUSD float64
	// TempDir stages downloaded screenshots before orchestration.
	TempDir string

	Logger *slog.Logger
}

type Handler struct {
	tg       *telegram.Client
	orch     *render.Orchestrator
	ledger   *ledger.Ledger
	settings *SettingsStore
	ceiling  float64
	tempDir  string
	logger   *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:       opts.Telegram,
		orch:     opts.Orchestrator,
		ledger:   opts.Ledger,
		settings: opts.Settings,
		ceiling:  opts.CeilingUSD,
		tempDir:  opts.TempDir,
		logger:   logger,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(chatID, msg)
	}
	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, msg)
	}
	if msg.Text != "" {
		return h.handleText(ctx, chatID, msg.Text)
	}
	return nil
}

func (h *Handler) handleCommand(chatID int64, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID,
			"AI Architectural Render\n\n"+
				"Send a viewport screenshot with the description as caption and I return a photorealistic render.\n"+
				"Send text only for a render without a reference image.\n\n"+
				"Commands:\n"+
				"/styles - style presets\n"+
				"/lightings - lighting presets\n"+
				"/style <name> - set style (or None)\n"+
				"/lighting <name> - set lighting (or None)\n"+
				"/resolution <1K|2K|4K>\n"+
				"/model <fast|pro>\n"+
				"/settings - current settings\n"+
				"/cost - spend against the monthly cap\n"+
				"/resetsession - zero the session counter")
	case "styles":
		return h.tg.SendText(chatID, "Style presets:\n"+strings.Join(catalog.Styles(), "\n"))
	case "lightings":
		return h.tg.SendText(chatID, "Lighting presets:\n"+strings.Join(catalog.Lightings(), "\n"))
	case "style":
		return h.setPreset(chatID, args, catalog.ResolveStyle, func(s *Settings) { s.Style = args })
	case "lighting":
		return h.setPreset(chatID, args, catalog.ResolveLighting, func(s *Settings) { s.Lighting = args })
	case "resolution":
		res, ok := render.ParseResolution(args)
		if !ok {
			return h.tg.SendText(chatID, "Resolution must be 1K, 2K or 4K.")
		}
		st := h.settings.Update(chatID, func(s *Settings) { s.Resolution = res })
		return h.tg.SendText(chatID, "Resolution set to "+string(st.Resolution)+".")
	case "model":
		switch strings.ToLower(args) {
		case "fast":
			h.settings.Update(chatID, func(s *Settings) { s.UsePro = false })
			return h.tg.SendText(chatID, "Using the fast model.")
		case "pro":
			h.settings.Update(chatID, func(s *Settings) { s.UsePro = true })
			return h.tg.SendText(chatID, "Using the pro model (higher quality, higher cost).")
		default:
			return h.tg.SendText(chatID, "Model must be fast or pro.")
		}
	case "settings":
		return h.tg.SendText(chatID, h.formatSettings(h.settings.Get(chatID)))
	case "cost":
		return h.tg.SendText(chatID, fmt.Sprintf(
			"Session: $%.4f\nThis month: $%.4f\nMonthly cap: $%.2f",
			h.ledger.SessionCost(), h.ledger.MonthlyCost(), h.ceiling))
	case "resetsession":
		h.ledger.ResetSession()
		return h.tg.SendText(chatID, "Session counter reset.")
	default:
		return h.tg.SendText(chatID, "Unknown command, see /help.")
	}
}

func (h *Handler) setPreset(chatID int64, name string, resolve func(string) (string, bool), apply func(*Settings)) error {
	if name != "None" {
		if _, ok := resolve(name); !ok {
			return h.tg.SendText(chatID, "Unknown preset \""+name+"\", see /styles and /lightings.")
		}
	}
	h.settings.Update(chatID, apply)
	return h.tg.SendText(chatID, "Preset set to "+name+".")
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	prompt := strings.TrimSpace(msg.Caption)
	if prompt == "" {
		return h.tg.SendText(chatID, "Add the render description as the photo caption.")
	}

	// Largest photo size is last in the Telegram list.
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	data, mimeType, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("photo download failed", "err", err)
		return h.tg.SendText(chatID, "Could not download the photo, try again.")
	}

	w, ih, err := imgproc.DecodeBounds(data)
	if err != nil {
		h.logger.Error("photo undecodable", "err", err)
		return h.tg.SendText(chatID, "Could not read that image, send a PNG or JPEG screenshot.")
	}
	h.logger.Debug("photo received", "w", w, "h", ih, "mime", mimeType)

	inputPath, err := imgproc.SaveBytes(h.tempDir, "viewport", data, mimeType)
	if err != nil {
		h.logger.Error("staging photo failed", "err", err)
		return h.tg.SendText(chatID, "Could not stage the photo, try again.")
	}
	defer os.Remove(inputPath)

	return h.renderAndReply(ctx, chatID, prompt, inputPath)
}

func (h *Handler) handleText(ctx context.Context, chatID int64, text string) error {
	return h.renderAndReply(ctx, chatID, text, "")
}

func (h *Handler) renderAndReply(ctx context.Context, chatID int64, prompt, inputPath string) error {
	st := h.settings.Get(chatID)
	h.tg.SendTyping(chatID)

	tier := render.TierFast
	if st.UsePro {
		tier = render.TierPro
	}

	result, err := h.orch.Render(ctx, render.Request{
		InputPath:      inputPath,
		Prompt:         prompt,
		StylePreset:    st.Style,
		LightingPreset: st.Lighting,
		Tier:           tier,
		Resolution:     st.Resolution,
	})
	if err != nil {
		h.logger.Error("render failed", "kind", render.KindOf(err).String(), "err", err)
		return h.tg.SendText(chatID, failureText(err))
	}

	caption := fmt.Sprintf("Done in %.1fs, $%.4f (month: $%.4f)",
		result.Elapsed.Seconds(), result.CostUSD, h.ledger.MonthlyCost())
	if err := h.tg.SendPhotoFile(chatID, result.OutputPath, caption); err != nil {
		h.logger.Error("sending render failed", "err", err)
		return h.tg.SendText(chatID, "Render finished but sending it failed: "+result.OutputPath)
	}
	return nil
}

func failureText(err error) string {
	switch render.KindOf(err) {
	case render.KindInvalidInput:
		return "Invalid input: check the prompt and the image."
	case render.KindBudgetExceeded:
		return "Monthly budget reached, no render was charged. See /cost."
	case render.KindConfiguration:
		return "The backend is not configured, check the API credential."
	case render.KindGeneration:
		return "Generation failed, nothing was charged. Try again."
	default:
		return "Render failed."
	}
}

func (h *Handler) formatSettings(st Settings) string {
	model := "fast"
	if st.UsePro {
		model = "pro"
	}
	return fmt.Sprintf("Style: %s\nLighting: %s\nResolution: %s\nModel: %s",
		st.Style, st.Lighting, st.Resolution, model)
}

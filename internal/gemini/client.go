// Package gemini is the Gemini image-generation backend client. It speaks
// the generateContent REST API directly; the model ID is supplied per call
// and passed through unchanged.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"renderai/internal/render"
)

const (
	ModelFlash = "gemini-2.5-flash-image"
	ModelPro   = "gemini-3-pro-image"
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ render.Backend = (*Client)(nil)

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// Generate produces one image for prompt, optionally conditioned on an
// input image. When the model answers with text instead of an image, a
// single stricter re-ask is attempted before giving up.
func (c *Client) Generate(ctx context.Context, prompt string, input *render.ImageData, model string) (render.ImageData, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return render.ImageData{}, errors.New("prompt is empty")
	}
	if strings.TrimSpace(model) == "" {
		return render.ImageData{}, errors.New("model is empty")
	}

	req := generateContentRequest{
		Contents: []content{buildUserContent(prompt, input)},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}

	images, err := c.generateImages(ctx, model, req)
	if err != nil {
		return render.ImageData{}, err
	}

	if len(images) == 0 {
		retry := prompt + "\n\nReturn the result strictly as an image (inlineData). Do not answer with text."
		req.Contents = []content{buildUserContent(retry, input)}
		images, err = c.generateImages(ctx, model, req)
		if err != nil {
			return render.ImageData{}, err
		}
	}

	if len(images) == 0 {
		return render.ImageData{}, errors.New("model returned no image")
	}
	return images[0], nil
}

func buildUserContent(prompt string, input *render.ImageData) content {
	parts := []part{{Text: prompt}}
	if input != nil && len(input.Data) > 0 {
		mimeType := input.MIME
		if mimeType == "" {
			mimeType = "image/png"
		}
		parts = append(parts, part{
			InlineData: &blob{
				Data:     base64.StdEncoding.EncodeToString(input.Data),
				MimeType: mimeType,
			},
		})
	}
	return content{Role: "user", Parts: parts}
}

func (c *Client) generateImages(ctx context.Context, model string, payload generateContentRequest) ([]render.ImageData, error) {
	if c.httpClient == nil {
		return nil, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug("gemini request", "model", model, "bytes", len(body))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return extractImages(decoded)
}

func extractImages(resp generateContentResponse) ([]render.ImageData, error) {
	if len(resp.Candidates) == 0 {
		return nil, nil
	}

	var images []render.ImageData
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decode image data: %w", err)
		}
		mimeType := p.InlineData.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		images = append(images, render.ImageData{Data: raw, MIME: mimeType})
	}
	return images, nil
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

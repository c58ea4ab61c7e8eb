// Package prompt composes the final generation prompt from the user's base
// prompt and optional catalog fragments. Composition is deterministic:
// identical inputs always produce an identical string.
package prompt

import (
	"errors"
	"strings"

	"renderai/internal/catalog"
)

const (
	framingClause = "Photorealistic architectural rendering."
	qualitySuffix = "Highly detailed, professional architectural visualization, 8K quality, " +
		"photographic rendering, realistic materials and lighting."
)

var ErrEmptyPrompt = errors.New("prompt is empty")

// Build assembles framing clause, trimmed base prompt, resolved preset
// fragments and the quality suffix, joined with single spaces. An empty or
// all-whitespace base prompt is invalid here, not at the caller: prompt
// validity is a property of the composed text.
func Build(basePrompt, stylePreset, lightingPreset string) (string, error) {
	basePrompt = strings.TrimSpace(basePrompt)
	if basePrompt == "" {
		return "", ErrEmptyPrompt
	}

	parts := []string{framingClause, basePrompt}

	if fragment, ok := catalog.ResolveStyle(stylePreset); ok {
		parts = append(parts, fragment)
	}
	if fragment, ok := catalog.ResolveLighting(lightingPreset); ok {
		parts = append(parts, fragment)
	}

	parts = append(parts, qualitySuffix)
	return strings.Join(parts, " "), nil
}

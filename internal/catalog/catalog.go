// Package catalog holds the static style and lighting preset fragments
// injected into render prompts. Presets are optional enhancements: unknown
// names resolve to no fragment, never to an error.
package catalog

import "strings"

const noneSentinel = "None"

var styles = map[string]string{
	"Modern":      "contemporary modern architecture with clean lines, glass facades, minimalist design, geometric forms",
	"Classical":   "classical architecture with ornate details, columns, symmetrical design, traditional proportions",
	"Industrial":  "industrial architecture with exposed steel, concrete, brick materials, raw aesthetic",
	"Parametric":  "parametric architecture with complex geometries, flowing forms, computational design",
	"Sustainable": "sustainable green architecture with vegetation, eco-friendly materials, biophilic design",
	"Minimalist":  "minimalist architecture, simple forms, monochromatic palette, essential elements only",
	"Brutalist":   "brutalist architecture, raw concrete, massive geometric forms, monumental scale",
	"Organic":     "organic architecture, natural forms, curves, integration with nature",
}

var lightings = map[string]string{
	"Dawn":     "soft morning light, golden hour, warm tones, long shadows, sunrise atmosphere",
	"Noon":     "bright midday sun, clear sky, sharp shadows, high contrast, overhead lighting",
	"Sunset":   "warm sunset light, orange and pink sky, dramatic atmosphere, golden hour glow",
	"Night":    "evening scene with artificial lighting, blue hour, illuminated windows, ambient street lights",
	"Overcast": "soft diffused light, cloudy sky, even illumination, no harsh shadows",
	"Dramatic": "dramatic lighting with strong contrast, theatrical atmosphere, spotlighting effects",
}

var styleOrder = []string{
	"Modern",
	"Classical",
	"Industrial",
	"Parametric",
	"Sustainable",
	"Minimalist",
	"Brutalist",
	"Organic",
}

var lightingOrder = []string{
	"Dawn",
	"Noon",
	"Sunset",
	"Night",
	"Overcast",
	"Dramatic",
}

func ResolveStyle(name string) (string, bool) {
	return resolve(styles, name)
}

func ResolveLighting(name string) (string, bool) {
	return resolve(lightings, name)
}

func resolve(m map[string]string, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || name == noneSentinel {
		return "", false
	}
	fragment, ok := m[name]
	return fragment, ok
}

// Styles lists the style preset names in presentation order.
func Styles() []string {
	return listKnown(styleOrder, styles)
}

// Lightings lists the lighting preset names in presentation order.
func Lightings() []string {
	return listKnown(lightingOrder, lightings)
}

func listKnown(order []string, m map[string]string) []string {
	out := make([]string, 0, len(order))
	for _, name := range order {
		if _, ok := m[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

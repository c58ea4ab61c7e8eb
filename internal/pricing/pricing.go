// Package pricing maps (model, resolution tier) pairs to flat per-image USD
// rates for the Gemini image models.
package pricing

import "sort"

type Key struct {
	Model string
	Tier  string
}

type Table map[Key]float64

// Unknown tiers are priced at the 2K rate.
const fallbackTier = "2K"

func Default() Table {
	return Table{
		{Model: "gemini-2.5-flash-image", Tier: "1K"}: 0.039,
		{Model: "gemini-2.5-flash-image", Tier: "2K"}: 0.039,
		{Model: "gemini-2.5-flash-image", Tier: "4K"}: 0.039,

		{Model: "gemini-3-pro-image", Tier: "1K"}: 0.134,
		{Model: "gemini-3-pro-image", Tier: "2K"}: 0.134,
		{Model: "gemini-3-pro-image", Tier: "4K"}: 0.240,
	}
}

// Cost returns the per-image rate for model at tier. Unknown tiers use the
// 2K rate; unknown models are unpriced and cost 0.
func (t Table) Cost(model, tier string) float64 {
	if rate, ok := t[Key{Model: model, Tier: tier}]; ok {
		return rate
	}
	if rate, ok := t[Key{Model: model, Tier: fallbackTier}]; ok {
		return rate
	}
	return 0
}

// Models lists every priced model, sorted.
func (t Table) Models() []string {
	seen := make(map[string]struct{}, len(t))
	for key := range t {
		seen[key.Model] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for model := range seen {
		out = append(out, model)
	}
	sort.Strings(out)
	return out
}

// Package pricing derives the three consumer price tiers from vendor cost,
// MSRP and MAP. Every function here is total: missing inputs are zero and
// fall through the chain.
package pricing

import (
	"math"

	"github.com/sells-group/catalog-sync/internal/config"
	"github.com/sells-group/catalog-sync/internal/model"
)

// Rules holds the deployment's pricing constants.
type Rules struct {
	LowCostThreshold float64 // costs below this get the percentage markup
	LowCostMarkupPct float64
	FlatMarkup       float64
	MAPFallbackRatio float64 // applied to MSRP when MAP is missing
	Tier3Markup      float64
}

// DefaultRules returns the stock constants.
func DefaultRules() Rules {
	return Rules{
		LowCostThreshold: 200,
		LowCostMarkupPct: 10,
		FlatMarkup:       20,
		MAPFallbackRatio: 0.95,
		Tier3Markup:      1.05,
	}
}

// FromConfig builds Rules from configuration, keeping defaults for zero
// fields.
func FromConfig(cfg config.PricingConfig) Rules {
	r := DefaultRules()
	if cfg.LowCostThreshold > 0 {
		r.LowCostThreshold = cfg.LowCostThreshold
	}
	if cfg.LowCostMarkupPct > 0 {
		r.LowCostMarkupPct = cfg.LowCostMarkupPct
	}
	if cfg.FlatMarkup > 0 {
		r.FlatMarkup = cfg.FlatMarkup
	}
	if cfg.MAPFallbackRatio > 0 {
		r.MAPFallbackRatio = cfg.MAPFallbackRatio
	}
	if cfg.Tier3Markup > 0 {
		r.Tier3Markup = cfg.Tier3Markup
	}
	return r
}

// Inputs are the vendor prices for one item.
type Inputs struct {
	Wholesale float64
	MSRP      float64
	MAP       float64
}

// Markup applies the cost-plus rule: a percentage below the threshold, a
// flat amount at or above it. Non-positive cost yields 0.
func Markup(cost float64, r Rules) float64 {
	if cost <= 0 || math.IsNaN(cost) {
		return 0
	}
	if cost < r.LowCostThreshold {
		return Round(cost * (1 + r.LowCostMarkupPct/100))
	}
	return Round(cost + r.FlatMarkup)
}

// Compute derives the tiers. Each tier degrades independently.
func Compute(in Inputs, r Rules) model.PriceTiers {
	in = sanitize(in)

	var t model.PriceTiers
	if in.MSRP > 0 {
		t.Bronze = Round(in.MSRP)
	} else {
		t.Bronze = Markup(in.Wholesale, r)
	}

	switch {
	case in.MAP > 0:
		t.Gold = Round(in.MAP)
	case in.MSRP > 0:
		t.Gold = Round(in.MSRP * r.MAPFallbackRatio)
	default:
		t.Gold = Markup(in.Wholesale, r)
	}

	if in.Wholesale > 0 {
		t.Platinum = Round(in.Wholesale * r.Tier3Markup)
	} else {
		t.Platinum = t.Bronze
	}
	return t
}

// Round rounds to cents.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

func sanitize(in Inputs) Inputs {
	clean := func(v float64) float64 {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	return Inputs{Wholesale: clean(in.Wholesale), MSRP: clean(in.MSRP), MAP: clean(in.MAP)}
}

// Package transform turns a decoded vendor record into the canonical
// product: department category, classification, pricing, facets and tags.
package transform

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/sells-group/catalog-sync/internal/classify"
	"github.com/sells-group/catalog-sync/internal/facet"
	"github.com/sells-group/catalog-sync/internal/feed"
	"github.com/sells-group/catalog-sync/internal/model"
	"github.com/sells-group/catalog-sync/internal/pricing"
)

// DefaultDistributor is the tag applied to every product from this feed.
const DefaultDistributor = "RSR"

// Transformer is stateless and safe for concurrent use.
type Transformer struct {
	extractor   *facet.Extractor
	engine      *classify.Engine
	rules       pricing.Rules
	distributor string
	now         func() time.Time
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithDistributor overrides the distributor tag.
func WithDistributor(name string) Option {
	return func(t *Transformer) { t.distributor = name }
}

// WithClock sets the time source for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) { t.now = now }
}

// New returns a Transformer. Nil collaborators get defaults.
func New(extractor *facet.Extractor, engine *classify.Engine, rules pricing.Rules, opts ...Option) *Transformer {
	if extractor == nil {
		extractor = facet.NewExtractor()
	}
	if engine == nil {
		engine = classify.New()
	}
	t := &Transformer{
		extractor:   extractor,
		engine:      engine,
		rules:       rules,
		distributor: DefaultDistributor,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// DepartmentCategory is the category a record starts in.
func DepartmentCategory(code string) model.Category {
	return model.DepartmentCategory(code)
}

// Normalize maps raw to a product. It never fails; unknown values stay
// zero.
func (t *Transformer) Normalize(raw *feed.RawRecord) *model.Product {
	dept := model.NormalizeDepartment(raw.DepartmentCode)
	text := raw.Text()
	start := DepartmentCategory(dept)

	// Caliber feeds the rifle/shotgun split, so it is pulled before
	// classification using the department context alone.
	deptCtx := facet.Context{Department: dept}
	caliber, _ := t.extractor.Tables(model.FacetCaliber, deptCtx).Match(text)

	res := t.engine.Classify(classify.Input{
		Name:             raw.Description,
		Description:      raw.ExpandedDescription,
		Department:       dept,
		Manufacturer:     raw.ManufacturerName,
		Current:          start,
		Caliber:          caliber,
		RequiresTransfer: classify.DepartmentRequiresTransfer(dept),
		DropShipBlocked:  raw.DropShipBlocked,
	})

	p := &model.Product{
		SKU:                       raw.StockNumber,
		UPC:                       raw.UPC,
		Name:                      raw.Description,
		Description:               firstNonEmpty(raw.ExpandedDescription, raw.Description),
		Category:                  res.Category,
		DepartmentCode:            dept,
		Manufacturer:              firstNonEmpty(raw.ManufacturerName, raw.ManufacturerID),
		ManufacturerPartNumber:    raw.ManufacturerPartNumber,
		Model:                     raw.Model,
		Wholesale:                 raw.DealerCost,
		MSRP:                      raw.MSRP,
		MAP:                       raw.MAPPrice,
		StockQuantity:             max(raw.QuantityOnHand, 0),
		InStock:                   raw.QuantityOnHand > 0,
		RequiresRegulatedTransfer: res.RequiresRegulatedTransfer,
		MayDropShip:               res.MayDropShip,
		GroundShipOnly:            raw.GroundShipOnly,
		AdultSignatureRequired:    raw.AdultSignatureRequired,
		Prop65:                    raw.Prop65,
		RestrictedStates:          raw.RestrictedStates,
		Weight:                    raw.Weight,
		Dimensions:                model.Dimensions{Length: raw.Length, Width: raw.Width, Height: raw.Height},
		Lifecycle:                 raw.Lifecycle,
		Active:                    raw.Lifecycle != model.LifecycleDeleted,
		ImageName:                 raw.ImageName,
		UpdatedAt:                 t.now().UTC(),
	}
	p.Prices = pricing.Compute(pricing.Inputs{
		Wholesale: raw.DealerCost,
		MSRP:      raw.MSRP,
		MAP:       raw.MAPPrice,
	}, t.rules)

	extracted := t.extractor.Extract(text, facet.Context{Department: dept, Category: res.Category})
	facet.ApplyUnset(&p.Facets, extracted)

	p.Tags = t.tags(p)
	return p
}

func (t *Transformer) tags(p *model.Product) []string {
	var tags []string
	if c, ok := p.Facets.Get(model.FacetCaliber); ok {
		tags = append(tags, c)
	}
	tags = append(tags, string(p.Category), p.Manufacturer, p.Model)

	switch p.Lifecycle {
	case model.LifecycleAllocated:
		tags = append(tags, "Allocated")
	case model.LifecycleCloseout:
		tags = append(tags, "Closeout")
	}
	if p.Prop65 {
		tags = append(tags, "Prop65")
	}
	if p.RequiresRegulatedTransfer {
		tags = append(tags, "FFL Required")
	}
	if p.MayDropShip {
		tags = append(tags, "Drop Shippable")
	} else {
		tags = append(tags, "Warehouse Only")
	}
	tags = append(tags, t.distributor)
	return Dedupe(tags)
}

// Dedupe drops blank and case-insensitively repeated tags, keeping the
// first spelling.
func Dedupe(tags []string) []string {
	fold := cases.Fold()
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := fold.String(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

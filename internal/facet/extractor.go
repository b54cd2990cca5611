package facet

import (
	"sort"

	"github.com/sells-group/catalog-sync/internal/model"
)

// Result maps a facet to its extracted value. A missing key means no rule
// matched.
type Result map[model.FacetName]string

// gated binds a table to the product kinds it applies to.
type gated struct {
	kinds map[Kind]bool
	table Table
}

// Extractor evaluates the facet tables. It is immutable after construction
// and safe for concurrent use.
type Extractor struct {
	tables map[model.FacetName][]gated
}

// Option configures an Extractor.
type Option func(*Extractor)

// NewExtractor returns an Extractor with the built-in tables plus any
// overrides.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{tables: builtinTables()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func builtinTables() map[model.FacetName][]gated {
	return map[model.FacetName][]gated{
		model.FacetCaliber: {
			{kinds(append(allButAmmo, KindAmmo)...), caliberTable},
		},
		model.FacetBarrelLength: {
			{kinds(append(firearmKinds, KindNFA, KindParts, KindUnknown)...), barrelLengthTable},
		},
		model.FacetFinish: {
			{kinds(allButAmmo...), finishTable},
		},
		model.FacetFrameSize: {
			{kinds(KindHandgun), handgunFrameTable},
			{kinds(KindRifle), rifleFrameTable},
			{kinds(KindShotgun), shotgunFrameTable},
			{kinds(KindOptic), opticZoomTable},
		},
		model.FacetActionType: {
			{kinds(KindHandgun), handgunActionTable},
			{kinds(KindRifle, KindShotgun, KindNFA), longGunActionTable},
		},
		model.FacetSightType: {
			{kinds(KindOptic, KindAccessory, KindUnknown), sightTypeTable},
		},
		model.FacetAccessoryType: {
			{kinds(KindAccessory, KindParts, KindMagazine, KindUnknown), accessoryTypeTable},
		},
		model.FacetCompatibility: {
			{kinds(KindMagazine, KindParts, KindAccessory, KindOptic, KindNFA, KindUnknown), compatibilityTable},
		},
		model.FacetMaterial: {
			{kinds(allButAmmo...), materialTable},
		},
		model.FacetMountType: {
			{kinds(KindOptic, KindAccessory, KindParts), mountTypeTable},
		},
		model.FacetCapacity: {
			{kinds(append(firearmKinds, KindMagazine, KindUnknown)...), capacityTable},
		},
	}
}

// Tables returns the table used for name under ctx, or nil when the facet
// does not apply to that kind of product.
func (e *Extractor) Tables(name model.FacetName, ctx Context) Table {
	k := ctx.Kind()
	for _, g := range e.tables[name] {
		if g.kinds[k] {
			return g.table
		}
	}
	return nil
}

// Extract runs every applicable table against text.
func (e *Extractor) Extract(text string, ctx Context) Result {
	out := Result{}
	if text == "" {
		return out
	}
	for _, name := range model.FacetNames {
		t := e.Tables(name, ctx)
		if t == nil {
			continue
		}
		if v, ok := t.Match(text); ok {
			out[name] = v
		}
	}
	return out
}

// Names is the authoritative facet list. The search index configuration
// is built from it.
func Names() []model.FacetName {
	out := make([]model.FacetName, len(model.FacetNames))
	copy(out, model.FacetNames)
	return out
}

// ApplyUnset copies values from r into dst only where dst has no value yet.
// It returns the names it set, sorted.
func ApplyUnset(dst *model.Facets, r Result) []model.FacetName {
	if len(r) == 0 {
		return nil
	}
	if *dst == nil {
		*dst = model.Facets{}
	}
	var set []model.FacetName
	for name, v := range r {
		if v == "" {
			continue
		}
		if _, ok := (*dst).Get(name); ok {
			continue
		}
		(*dst)[name] = v
		set = append(set, name)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

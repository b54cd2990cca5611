// Package search shapes catalog products into index objects and
// publishes them in bounded batches.
package search

import (
	"github.com/sells-group/catalog-sync/internal/facet"
	"github.com/sells-group/catalog-sync/internal/model"
	"github.com/sells-group/catalog-sync/pkg/searchindex"
)

// productFacets are the attributes every product carries.
var productFacets = []string{
	"category",
	"searchable(manufacturer)",
	"department_code",
	"in_stock",
	"requires_regulated_transfer",
	"may_drop_ship",
	"lifecycle",
	"tags",
	"restricted_states",
}

// FacetFields lists every attribute the index filters on: the fixed
// product attributes followed by each extracted facet.
func FacetFields() []string {
	names := facet.Names()
	out := make([]string, 0, len(productFacets)+len(names))
	out = append(out, productFacets...)
	for _, n := range names {
		out = append(out, string(n))
	}
	return out
}

// ToObject maps p to its index record, keyed by SKU. Unset facets are
// omitted rather than indexed as empty.
func ToObject(p model.Product) searchindex.Object {
	o := searchindex.Object{
		"objectID":                    p.SKU,
		"sku":                         p.SKU,
		"upc":                         p.UPC,
		"name":                        p.Name,
		"description":                 p.Description,
		"category":                    string(p.Category),
		"department_code":             p.DepartmentCode,
		"manufacturer":                p.Manufacturer,
		"manufacturer_part_number":    p.ManufacturerPartNumber,
		"model":                       p.Model,
		"price":                       p.Prices.Bronze,
		"price_gold":                  p.Prices.Gold,
		"price_platinum":              p.Prices.Platinum,
		"msrp":                        p.MSRP,
		"map":                         p.MAP,
		"stock_quantity":              p.StockQuantity,
		"in_stock":                    p.InStock,
		"requires_regulated_transfer": p.RequiresRegulatedTransfer,
		"may_drop_ship":               p.MayDropShip,
		"ground_ship_only":            p.GroundShipOnly,
		"adult_signature_required":    p.AdultSignatureRequired,
		"prop65":                      p.Prop65,
		"restricted_states":           nonNil(p.RestrictedStates),
		"lifecycle":                   string(p.Lifecycle),
		"image_name":                  p.ImageName,
		"tags":                        nonNil(p.Tags),
		"updated_at":                  p.UpdatedAt.Unix(),
	}
	for _, n := range facet.Names() {
		if v, ok := p.Facets.Get(n); ok {
			o[string(n)] = v
		}
	}
	return o
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

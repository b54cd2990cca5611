// Package catalog persists normalized products and applies reviewed
// classification changes with a restorable backup.
package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-sync/internal/model"
)

var (
	// ErrPersistenceConflict is returned when a write collides with a
	// uniqueness constraint, typically a concurrent insert of the same SKU.
	ErrPersistenceConflict = eris.New("persistence conflict")

	// ErrNotFound is returned when an update targets a missing product.
	ErrNotFound = eris.New("product not found")
)

// Store is the product persistence contract.
type Store interface {
	// FindBySKU returns nil, nil when no product has the SKU.
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	Insert(ctx context.Context, p *model.Product) (int64, error)
	Update(ctx context.Context, id int64, patch Patch) error
	List(ctx context.Context, filter ListFilter) ([]model.Product, error)
	// Count ignores AfterID and Limit.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter selects a page of products ordered by id. Pages are keyed on
// AfterID so concurrent updates do not shift the window.
type ListFilter struct {
	AfterID    int64
	Limit      int
	Categories []model.Category
	ActiveOnly bool
	// InactiveOnly selects retired products. It is ignored with ActiveOnly.
	InactiveOnly bool
}

// assignment is one column update. Facets merge rather than overwrite.
type assignment struct {
	col string
	val any
}

// Patch is an ordered set of column assignments for Store.Update.
type Patch struct {
	sets []assignment
}

// patchColumns are the columns a Patch may touch.
var patchColumns = map[string]bool{
	"upc": true, "name": true, "description": true, "category": true,
	"department_code": true, "manufacturer": true, "manufacturer_part_number": true,
	"model": true, "wholesale": true, "msrp": true, "map": true,
	"price_bronze": true, "price_gold": true, "price_platinum": true,
	"stock_quantity": true, "in_stock": true, "requires_regulated_transfer": true,
	"may_drop_ship": true, "ground_ship_only": true, "adult_signature_required": true,
	"prop65": true, "restricted_states": true, "weight": true, "length": true,
	"width": true, "height": true, "lifecycle": true, "image_name": true,
	"tags": true, "facets": true, "nfa_item_type": true, "receiver_type": true,
	"platform_category": true, "subcategory": true, "is_active": true,
}

// Set returns a copy of p with col assigned to v. A later Set on the same
// column replaces the earlier value.
func (p Patch) Set(col string, v any) Patch {
	sets := make([]assignment, 0, len(p.sets)+1)
	for _, a := range p.sets {
		if a.col != col {
			sets = append(sets, a)
		}
	}
	return Patch{sets: append(sets, assignment{col: col, val: v})}
}

// Empty reports whether the patch assigns nothing.
func (p Patch) Empty() bool { return len(p.sets) == 0 }

// Columns returns the assigned column names in assignment order.
func (p Patch) Columns() []string {
	cols := make([]string, len(p.sets))
	for i, a := range p.sets {
		cols[i] = a.col
	}
	return cols
}

// Value returns the value assigned to col.
func (p Patch) Value(col string) (any, bool) {
	for _, a := range p.sets {
		if a.col == col {
			return a.val, true
		}
	}
	return nil, false
}

func (p Patch) validate() error {
	for _, a := range p.sets {
		if !patchColumns[a.col] {
			return eris.Errorf("catalog: column %q cannot be patched", a.col)
		}
		if a.col == "facets" {
			if _, ok := a.val.(model.Facets); !ok {
				return eris.Errorf("catalog: facets patch needs model.Facets, got %T", a.val)
			}
		}
	}
	return nil
}

// CategoryPatch moves a product to cat and updates its transfer flag.
func CategoryPatch(cat model.Category, regulated bool) Patch {
	return Patch{}.
		Set("category", string(cat)).
		Set("requires_regulated_transfer", regulated)
}

// QuantityPatch sets on-hand stock.
func QuantityPatch(qty int) Patch {
	if qty < 0 {
		qty = 0
	}
	return Patch{}.
		Set("stock_quantity", qty).
		Set("in_stock", qty > 0)
}

// DeletedPatch retires a product the vendor no longer carries.
func DeletedPatch() Patch {
	return Patch{}.
		Set("is_active", false).
		Set("lifecycle", string(model.LifecycleDeleted)).
		Set("stock_quantity", 0).
		Set("in_stock", false)
}

// FacetsPatch merges f into the stored facets. Stored values win.
func FacetsPatch(f model.Facets) Patch {
	return Patch{}.Set("facets", f)
}

// ProductPatch rewrites every feed-derived column of an existing product.
func ProductPatch(p *model.Product) Patch {
	return Patch{}.
		Set("upc", p.UPC).
		Set("name", p.Name).
		Set("description", p.Description).
		Set("category", string(p.Category)).
		Set("department_code", p.DepartmentCode).
		Set("manufacturer", p.Manufacturer).
		Set("manufacturer_part_number", p.ManufacturerPartNumber).
		Set("model", p.Model).
		Set("wholesale", p.Wholesale).
		Set("msrp", p.MSRP).
		Set("map", p.MAP).
		Set("price_bronze", p.Prices.Bronze).
		Set("price_gold", p.Prices.Gold).
		Set("price_platinum", p.Prices.Platinum).
		Set("stock_quantity", p.StockQuantity).
		Set("in_stock", p.InStock).
		Set("requires_regulated_transfer", p.RequiresRegulatedTransfer).
		Set("may_drop_ship", p.MayDropShip).
		Set("ground_ship_only", p.GroundShipOnly).
		Set("adult_signature_required", p.AdultSignatureRequired).
		Set("prop65", p.Prop65).
		Set("restricted_states", nonNil(p.RestrictedStates)).
		Set("weight", p.Weight).
		Set("length", p.Dimensions.Length).
		Set("width", p.Dimensions.Width).
		Set("height", p.Dimensions.Height).
		Set("lifecycle", string(p.Lifecycle)).
		Set("image_name", p.ImageName).
		Set("tags", nonNil(p.Tags)).
		Set("facets", p.Facets.Clone()).
		Set("is_active", p.Active)
}

// applyTo mirrors Update's semantics on an in-memory product.
func (p Patch) applyTo(dst *model.Product) {
	for _, a := range p.sets {
		switch a.col {
		case "upc":
			dst.UPC = a.val.(string)
		case "name":
			dst.Name = a.val.(string)
		case "description":
			dst.Description = a.val.(string)
		case "category":
			dst.Category = model.Category(a.val.(string))
		case "department_code":
			dst.DepartmentCode = a.val.(string)
		case "manufacturer":
			dst.Manufacturer = a.val.(string)
		case "manufacturer_part_number":
			dst.ManufacturerPartNumber = a.val.(string)
		case "model":
			dst.Model = a.val.(string)
		case "wholesale":
			dst.Wholesale = a.val.(float64)
		case "msrp":
			dst.MSRP = a.val.(float64)
		case "map":
			dst.MAP = a.val.(float64)
		case "price_bronze":
			dst.Prices.Bronze = a.val.(float64)
		case "price_gold":
			dst.Prices.Gold = a.val.(float64)
		case "price_platinum":
			dst.Prices.Platinum = a.val.(float64)
		case "stock_quantity":
			dst.StockQuantity = a.val.(int)
		case "in_stock":
			dst.InStock = a.val.(bool)
		case "requires_regulated_transfer":
			dst.RequiresRegulatedTransfer = a.val.(bool)
		case "may_drop_ship":
			dst.MayDropShip = a.val.(bool)
		case "ground_ship_only":
			dst.GroundShipOnly = a.val.(bool)
		case "adult_signature_required":
			dst.AdultSignatureRequired = a.val.(bool)
		case "prop65":
			dst.Prop65 = a.val.(bool)
		case "restricted_states":
			dst.RestrictedStates = append([]string(nil), a.val.([]string)...)
		case "weight":
			dst.Weight = a.val.(float64)
		case "length":
			dst.Dimensions.Length = a.val.(float64)
		case "width":
			dst.Dimensions.Width = a.val.(float64)
		case "height":
			dst.Dimensions.Height = a.val.(float64)
		case "lifecycle":
			dst.Lifecycle = model.Lifecycle(a.val.(string))
		case "image_name":
			dst.ImageName = a.val.(string)
		case "tags":
			dst.Tags = append([]string(nil), a.val.([]string)...)
		case "facets":
			dst.Facets = mergeFacets(dst.Facets, a.val.(model.Facets))
		case "nfa_item_type":
			dst.NFAItemType = a.val.(string)
		case "receiver_type":
			dst.ReceiverType = a.val.(string)
		case "platform_category":
			dst.PlatformCategory = a.val.(string)
		case "subcategory":
			dst.Subcategory = a.val.(string)
		case "is_active":
			dst.Active = a.val.(bool)
		}
	}
	dst.UpdatedAt = time.Now().UTC()
}

// mergeFacets overlays incoming under stored: keys already set keep their
// stored value.
func mergeFacets(stored, incoming model.Facets) model.Facets {
	out := incoming.Clone()
	if out == nil {
		out = model.Facets{}
	}
	for k, v := range stored {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func encodeFacets(f model.Facets) ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: marshal facets")
	}
	return data, nil
}

func decodeFacets(data []byte) (model.Facets, error) {
	f := model.Facets{}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "catalog: unmarshal facets")
	}
	return f, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func categoryStrings(cats []model.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	sort.Strings(out)
	return out
}

// Package model holds the catalog's shared data types.
package model

import "time"

// Lifecycle is the vendor's stocking status for an item.
type Lifecycle string

const (
	LifecycleActive    Lifecycle = ""
	LifecycleAllocated Lifecycle = "Allocated"
	LifecycleCloseout  Lifecycle = "Closeout"
	LifecycleDeleted   Lifecycle = "Deleted"
)

// PriceTiers are the three consumer-facing prices.
type PriceTiers struct {
	Bronze   float64 `json:"bronze"`   // tier 1, retail
	Gold     float64 `json:"gold"`     // tier 2, advertised
	Platinum float64 `json:"platinum"` // tier 3, cost-plus
}

// Dimensions are shipping dimensions in inches.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Product is the canonical catalog record. SKU is the stable identity.
type Product struct {
	ID                        int64      `json:"id"`
	SKU                       string     `json:"sku"`
	UPC                       string     `json:"upc"`
	Name                      string     `json:"name"`
	Description               string     `json:"description"`
	Category                  Category   `json:"category"`
	DepartmentCode            string     `json:"department_code"`
	Manufacturer              string     `json:"manufacturer"`
	ManufacturerPartNumber    string     `json:"manufacturer_part_number"`
	Model                     string     `json:"model"`
	Wholesale                 float64    `json:"wholesale"`
	MSRP                      float64    `json:"msrp"`
	MAP                       float64    `json:"map"`
	Prices                    PriceTiers `json:"prices"`
	StockQuantity             int        `json:"stock_quantity"`
	InStock                   bool       `json:"in_stock"`
	RequiresRegulatedTransfer bool       `json:"requires_regulated_transfer"`
	MayDropShip               bool       `json:"may_drop_ship"`
	GroundShipOnly            bool       `json:"ground_ship_only"`
	AdultSignatureRequired    bool       `json:"adult_signature_required"`
	Prop65                    bool       `json:"prop65"`
	RestrictedStates          []string   `json:"restricted_states"`
	Weight                    float64    `json:"weight"`
	Dimensions                Dimensions `json:"dimensions"`
	Lifecycle                 Lifecycle  `json:"lifecycle"`
	Active                    bool       `json:"active"`
	ImageName                 string     `json:"image_name"`
	Tags                      []string   `json:"tags"`
	Facets                    Facets     `json:"facets"`

	// Classification hints carried from enrichment; empty when unknown.
	NFAItemType      string `json:"nfa_item_type,omitempty"`
	ReceiverType     string `json:"receiver_type,omitempty"`
	PlatformCategory string `json:"platform_category,omitempty"`
	Subcategory      string `json:"subcategory,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Text is the free text rule tables run against: name plus description
// when the two differ.
func (p Product) Text() string {
	if p.Description == "" || p.Description == p.Name {
		return p.Name
	}
	return p.Name + " " + p.Description
}

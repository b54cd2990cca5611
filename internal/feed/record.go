// Package feed decodes the distributor's delimited inventory, quantity and
// deletion files.
package feed

import (
	"time"

	"github.com/sells-group/catalog-sync/internal/model"
)

// Positional layout of an inventory line.
const (
	idxStockNumber     = 0
	idxUPC             = 1
	idxDescription     = 2
	idxDepartment      = 3
	idxManufacturerID  = 4
	idxMSRP            = 5
	idxDealerCost      = 6
	idxWeight          = 7
	idxQuantity        = 8
	idxModel           = 9
	idxManufacturer    = 10
	idxMfrPartNumber   = 11
	idxLifecycle       = 12
	idxExpandedDesc    = 13
	idxImageName       = 14
	idxStatesStart     = 15
	idxGroundShipOnly  = 66
	idxAdultSignature  = 67
	idxDropShipBlocked = 68
	idxDateEntered     = 69
	idxMAP             = 70
	idxImageDisclaimer = 71
	idxLength          = 72
	idxWidth           = 73
	idxHeight          = 74
	idxProp65          = 75
	idxVendorApproval  = 76

	// MinFields is the documented field count of an inventory line.
	MinFields = 77
)

// StateCodes is the order of the per-state restriction flags, starting at
// field 15.
var StateCodes = [...]string{
	"AK", "AL", "AR", "AZ", "CA", "CO", "CT", "DC", "DE", "FL",
	"GA", "HI", "IA", "ID", "IL", "IN", "KS", "KY", "LA", "MA",
	"MD", "ME", "MI", "MN", "MO", "MS", "MT", "NC", "ND", "NE",
	"NH", "NJ", "NM", "NV", "NY", "OH", "OK", "OR", "PA", "RI",
	"SC", "SD", "TN", "TX", "UT", "VA", "VT", "WA", "WI", "WV",
	"WY",
}

// RawRecord is one decoded inventory line.
type RawRecord struct {
	StockNumber            string
	UPC                    string
	Description            string
	ExpandedDescription    string
	DepartmentCode         string
	ManufacturerID         string
	ManufacturerName       string
	ManufacturerPartNumber string
	Model                  string
	MSRP                   float64
	DealerCost             float64
	MAPPrice               float64
	Weight                 float64
	Length                 float64
	Width                  float64
	Height                 float64
	QuantityOnHand         int
	Lifecycle              model.Lifecycle
	ImageName              string
	RestrictedStates       []string
	GroundShipOnly         bool
	AdultSignatureRequired bool
	DropShipBlocked        bool
	MayDropShip            bool
	DateEntered            time.Time
	ImageDisclaimer        bool
	Prop65                 bool
	VendorApprovalRequired bool
}

// Text returns the free text used for classification and facet extraction.
func (r *RawRecord) Text() string {
	if r.ExpandedDescription == "" || r.ExpandedDescription == r.Description {
		return r.Description
	}
	return r.Description + " " + r.ExpandedDescription
}

// RestrictedIn reports whether shipping to state is restricted.
func (r *RawRecord) RestrictedIn(state string) bool {
	for _, s := range r.RestrictedStates {
		if s == state {
			return true
		}
	}
	return false
}

package classify

import (
	"strings"

	"github.com/sells-group/catalog-sync/internal/model"
)

// Input is everything the rules look at.
type Input struct {
	Name         string
	Description  string
	Department   string
	Manufacturer string
	// Current is the category the record holds now. Empty means the
	// department default.
	Current model.Category

	NFAItemType      string
	ReceiverType     string
	PlatformCategory string
	Subcategory      string
	Caliber          string

	// RequiresTransfer is the stored regulated flag, or the department's
	// default for fresh records.
	RequiresTransfer bool
	DropShipBlocked  bool
}

// FromProduct builds an Input from a stored product.
func FromProduct(p model.Product) Input {
	caliber, _ := p.Facets.Get(model.FacetCaliber)
	return Input{
		Name:             p.Name,
		Description:      p.Description,
		Department:       p.DepartmentCode,
		Manufacturer:     p.Manufacturer,
		Current:          p.Category,
		NFAItemType:      p.NFAItemType,
		ReceiverType:     p.ReceiverType,
		PlatformCategory: p.PlatformCategory,
		Subcategory:      p.Subcategory,
		Caliber:          caliber,
		RequiresTransfer: p.RequiresRegulatedTransfer || DepartmentRequiresTransfer(p.DepartmentCode),
		DropShipBlocked:  !p.MayDropShip,
	}
}

// Facts are derived once per Input and shared by every rule.
type Facts struct {
	Input
	// Text is name and description joined.
	Text  string
	Dept  string
	Score Score
	// FirearmModel is set when the name carries a brand+model pattern.
	FirearmModel bool
}

func newFacts(in Input) *Facts {
	dept := model.NormalizeDepartment(in.Department)
	if in.Current == "" {
		in.Current = model.DepartmentCategory(dept)
	}
	return &Facts{
		Input:        in,
		Text:         strings.TrimSpace(in.Name + " " + in.Description),
		Dept:         dept,
		Score:        FirearmScore(in.Name, in.Manufacturer),
		FirearmModel: hasFirearmModel(in.Name),
	}
}

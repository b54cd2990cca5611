package facet

import (
	"github.com/sells-group/catalog-sync/internal/model"
)

// Kind is the product family a table is gated on.
type Kind string

const (
	KindUnknown   Kind = "unknown"
	KindHandgun   Kind = "handgun"
	KindRifle     Kind = "rifle"
	KindShotgun   Kind = "shotgun"
	KindNFA       Kind = "nfa"
	KindOptic     Kind = "optic"
	KindMagazine  Kind = "magazine"
	KindAmmo      Kind = "ammunition"
	KindParts     Kind = "parts"
	KindAccessory Kind = "accessory"
)

// Context narrows which tables apply. Both fields are optional; Category
// wins over Department when both are set.
type Context struct {
	Department string
	Category   model.Category
}

// Kind resolves the product family for c.
func (c Context) Kind() Kind {
	cat := c.Category
	if cat == "" {
		if c.Department == "" {
			return KindUnknown
		}
		cat = model.DepartmentCategory(c.Department)
	}
	return categoryKind(cat)
}

func categoryKind(c model.Category) Kind {
	switch c {
	case model.CategoryHandguns, model.CategoryUsedHandguns:
		return KindHandgun
	case model.CategoryRifles, model.CategoryLongGuns, model.CategoryUsedLongGuns, model.CategoryBlackPowder:
		return KindRifle
	case model.CategoryShotguns:
		return KindShotgun
	case model.CategoryNFA:
		return KindNFA
	case model.CategoryOptics, model.CategorySights, model.CategoryBinoculars, model.CategorySpottingScopes:
		return KindOptic
	case model.CategoryMagazines, model.CategoryHighCapMagazines:
		return KindMagazine
	case model.CategoryAmmunition:
		return KindAmmo
	case model.CategoryParts, model.CategoryUpperReceivers, model.CategorySBRUppers,
		model.CategoryUpperReceiversHighCap, model.CategoryUppersLowers, model.CategoryBarrelsMuzzle:
		return KindParts
	default:
		return KindAccessory
	}
}

func kinds(ks ...Kind) map[Kind]bool {
	m := make(map[Kind]bool, len(ks))
	for _, k := range ks {
		m[k] = true
	}
	return m
}

var (
	firearmKinds = []Kind{KindHandgun, KindRifle, KindShotgun}
	allButAmmo   = []Kind{KindUnknown, KindHandgun, KindRifle, KindShotgun, KindNFA, KindOptic, KindMagazine, KindParts, KindAccessory}
)

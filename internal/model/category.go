package model

import "strings"

// Category is the closed storefront taxonomy. Every product carries exactly
// one.
type Category string

const (
	CategoryHandguns               Category = "Handguns"
	CategoryUsedHandguns           Category = "Used Handguns"
	CategoryUsedLongGuns           Category = "Used Long Guns"
	CategoryTasers                 Category = "Tasers"
	CategoryLongGuns               Category = "Long Guns"
	CategoryRifles                 Category = "Rifles"
	CategoryShotguns               Category = "Shotguns"
	CategoryNFA                    Category = "NFA Products"
	CategoryBlackPowder            Category = "Black Powder"
	CategoryOptics                 Category = "Optics"
	CategoryOpticalAccessories     Category = "Optical Accessories"
	CategoryMagazines              Category = "Magazines"
	CategoryGripsStocks            Category = "Grips, Pads, Stocks, Bipods"
	CategorySoftCases              Category = "Soft Gun Cases, Packs, Bags"
	CategoryMiscAccessories        Category = "Misc. Accessories"
	CategoryHolsters               Category = "Holsters & Pouches"
	CategoryReloading              Category = "Reloading Equipment"
	CategoryBlackPowderAccessories Category = "Black Powder Accessories"
	CategoryCloseoutAccessories    Category = "Closeout Accessories"
	CategoryAmmunition             Category = "Ammunition"
	CategorySurvival               Category = "Survival & Camping Supplies"
	CategoryLightsLasers           Category = "Lights, Lasers & Batteries"
	CategoryCleaning               Category = "Cleaning Equipment"
	CategoryAirguns                Category = "Airguns"
	CategoryKnivesTools            Category = "Knives & Tools"
	CategoryHighCapMagazines       Category = "High Capacity Magazines"
	CategorySafes                  Category = "Safes & Security"
	CategorySafety                 Category = "Safety & Protection"
	CategoryNonLethal              Category = "Non-Lethal Defense"
	CategoryBinoculars             Category = "Binoculars"
	CategorySpottingScopes         Category = "Spotting Scopes"
	CategorySights                 Category = "Sights"
	CategoryBarrelsMuzzle          Category = "Barrels, Choke Tubes & Muzzle Devices"
	CategoryClothing               Category = "Clothing"
	CategoryParts                  Category = "Parts"
	CategorySlings                 Category = "Slings & Swivels"
	CategoryElectronics            Category = "Electronics"
	CategoryBooks                  Category = "Books, Software & DVDs"
	CategoryTargets                Category = "Targets"
	CategoryHardCases              Category = "Hard Gun Cases"
	CategoryUpperReceivers         Category = "Upper Receivers & Conversion Kits"
	CategorySBRUppers              Category = "SBR Barrels & Upper Receivers"
	CategoryUpperReceiversHighCap  Category = "Upper Receivers & Conversion Kits - High Capacity"
	CategoryUppersLowers           Category = "Uppers/Lowers"
	CategoryAccessories            Category = "Accessories"
)

// departmentCategories maps the vendor's two-digit department codes to the
// category a record starts in before classification rules run.
var departmentCategories = map[string]Category{
	"01": CategoryHandguns,
	"02": CategoryUsedHandguns,
	"03": CategoryUsedLongGuns,
	"04": CategoryTasers,
	"05": CategoryLongGuns,
	"06": CategoryNFA,
	"07": CategoryBlackPowder,
	"08": CategoryOptics,
	"09": CategoryOpticalAccessories,
	"10": CategoryMagazines,
	"11": CategoryGripsStocks,
	"12": CategorySoftCases,
	"13": CategoryMiscAccessories,
	"14": CategoryHolsters,
	"15": CategoryReloading,
	"16": CategoryBlackPowderAccessories,
	"17": CategoryCloseoutAccessories,
	"18": CategoryAmmunition,
	"19": CategorySurvival,
	"20": CategoryLightsLasers,
	"21": CategoryCleaning,
	"22": CategoryAirguns,
	"23": CategoryKnivesTools,
	"24": CategoryHighCapMagazines,
	"25": CategorySafes,
	"26": CategorySafety,
	"27": CategoryNonLethal,
	"28": CategoryBinoculars,
	"29": CategorySpottingScopes,
	"30": CategorySights,
	"31": CategoryOpticalAccessories,
	"32": CategoryBarrelsMuzzle,
	"33": CategoryClothing,
	"34": CategoryParts,
	"35": CategorySlings,
	"36": CategoryElectronics,
	"38": CategoryBooks,
	"39": CategoryTargets,
	"40": CategoryHardCases,
	"41": CategoryUpperReceivers,
	"42": CategorySBRUppers,
	"43": CategoryUpperReceiversHighCap,
}

var allCategories = func() map[Category]bool {
	m := map[Category]bool{
		CategoryRifles:       true,
		CategoryShotguns:     true,
		CategoryUppersLowers: true,
		CategoryAccessories:  true,
	}
	for _, c := range departmentCategories {
		m[c] = true
	}
	return m
}()

// NormalizeDepartment left-pads a numeric department code to two digits.
func NormalizeDepartment(code string) string {
	code = strings.TrimSpace(code)
	if len(code) == 1 && code[0] >= '0' && code[0] <= '9' {
		return "0" + code
	}
	return code
}

// DepartmentCategory returns the starting category for a department code.
// Unknown departments land in Accessories.
func DepartmentCategory(code string) Category {
	if c, ok := departmentCategories[NormalizeDepartment(code)]; ok {
		return c
	}
	return CategoryAccessories
}

// ParseCategory validates s against the taxonomy.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.TrimSpace(s))
	return c, allCategories[c]
}

// Valid reports whether c is part of the taxonomy.
func (c Category) Valid() bool {
	return allCategories[c]
}

func (c Category) String() string { return string(c) }

// IsFirearm reports whether c holds complete firearms.
func (c Category) IsFirearm() bool {
	switch c {
	case CategoryHandguns, CategoryUsedHandguns, CategoryUsedLongGuns,
		CategoryLongGuns, CategoryRifles, CategoryShotguns:
		return true
	}
	return false
}

// IsRegulated reports whether items in c ship only to a licensed dealer.
func (c Category) IsRegulated() bool {
	if c.IsFirearm() {
		return true
	}
	switch c {
	case CategoryNFA, CategoryBlackPowder, CategoryUppersLowers,
		CategoryUpperReceivers, CategorySBRUppers, CategoryUpperReceiversHighCap:
		return true
	}
	return false
}

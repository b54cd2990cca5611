package classify

import (
	"regexp"
	"strings"

	"github.com/sells-group/catalog-sync/internal/facet"
	"github.com/sells-group/catalog-sync/internal/model"
)

// Decision is what a rule produces.
type Decision struct {
	Category model.Category
	Reason   string
}

// Rule pairs a predicate with the category it assigns.
type Rule struct {
	Name    string
	Applies func(f *Facts) bool
	Produce func(f *Facts) Decision
}

// FirstMatch evaluates rules in order and returns the first applicable
// decision along with the rule name.
func FirstMatch(rules []Rule, f *Facts) (Decision, string, bool) {
	for _, r := range rules {
		if r.Applies(f) {
			return r.Produce(f), r.Name, true
		}
	}
	return Decision{}, "", false
}

// Rule names.
const (
	RuleNFA        = "nfa"
	RuleAccessory  = "accessory"
	RuleDepartment = "department"
	RuleParts      = "parts"
	RuleFirearm    = "firearm-fallback"
	RuleKeep       = "keep"
)

// DefaultRules is the precedence chain. Order is significant.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleNFA, Applies: isNFA, Produce: produceNFA},
		{Name: RuleAccessory, Applies: isAccessory, Produce: produceAccessory},
		{Name: RuleDepartment, Applies: isFirearmDepartment, Produce: produceDepartment},
		{Name: RuleParts, Applies: isParts, Produce: produceParts},
		{Name: RuleFirearm, Applies: needsFirearmCategory, Produce: produceFirearm},
		{Name: RuleKeep, Applies: func(*Facts) bool { return true }, Produce: produceKeep},
	}
}

// Rule 1.

func isNFA(f *Facts) bool {
	if strings.TrimSpace(f.NFAItemType) != "" {
		return true
	}
	if f.Dept == "06" {
		return !nfaExcluded(f.Text)
	}
	return IsNFAItem(f.Text)
}

func produceNFA(f *Facts) Decision {
	switch {
	case strings.TrimSpace(f.NFAItemType) != "":
		return Decision{model.CategoryNFA, "NFA item type: " + strings.TrimSpace(f.NFAItemType)}
	case f.Dept == "06":
		return Decision{model.CategoryNFA, "Department 06 (NFA)"}
	default:
		return Decision{model.CategoryNFA, "NFA indicators (suppressor/SBR/SBS/AOW)"}
	}
}

// Rule 2.

var accessoryKeywordRe = regexp.MustCompile(`(?i)\b(?:triggers?|springs?|pins?|bolt carrier|buffer|handguards?|stocks?|rails?|grips?|barrels?|upper|lower|receiver|sights?|scopes?|optics?|red dot|lasers?|lights?|flashlight|holsters?|cases?|slings?|bags?|pouch(?:es)?|straps?|cleaning|oil|solvent|brush(?:es)?|kits?|tools?|wrench|targets?|bullseye|snap caps?|dummy|speed loaders?|mounts?|bipods?|adapters?|conversion|plugs?|caps?|covers?|protectors?|recoil pad|butt pad|cheek rest|flash hider|muzzle brake|compensators?|magazines?|mags?)\b`)

var firearmModelRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bglock\s*\d+`),
	regexp.MustCompile(`(?i)\bsig\s*(?:p\d+|m\d+)`),
	regexp.MustCompile(`(?i)smith.*wesson.*m&p`),
	regexp.MustCompile(`(?i)\bruger\s*(?:lcp|sr\d+|gp\d+|security)`),
	regexp.MustCompile(`(?i)\bcolt\s*(?:1911|python|anaconda)`),
	regexp.MustCompile(`(?i)\bberetta\s*(?:92|m9|apx)`),
	regexp.MustCompile(`(?i)\bar-?\d+`),
	regexp.MustCompile(`(?i)\bak-?\d+`),
	regexp.MustCompile(`(?i)\bm(?:1|4|16)\b`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:mm|acp|mag|special|gauge|ga)\s+(?:pistol|rifle|shotgun|revolver|carbine)`),
}

func hasFirearmModel(name string) bool {
	for _, re := range firearmModelRes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// accessoryRoutes picks the accessory sub-category. Pouches precede
// magazines so "mag pouch" lands with holsters.
var accessoryRoutes = facet.Table{
	facet.R(`\bholsters?\b|\bpouch(?:es)?\b`, string(model.CategoryHolsters)),
	facet.R(`\bmagazines?\b|\bmags?\b`, string(model.CategoryMagazines)),
	facet.R(`\bflash\s+hider\b|\bmuzzle\s+brake\b|\bcompensators?\b|\bchoke\b`, string(model.CategoryBarrelsMuzzle)),
	facet.R(`\bcleaning\b|\boil\b|\bsolvent\b|\bbrush(?:es)?\b`, string(model.CategoryCleaning)),
	facet.R(`\bscopes?\b|\boptics?\b|\bred\s*dot\b`, string(model.CategoryOptics)),
	facet.R(`\bsights?\b`, string(model.CategorySights)),
	facet.R(`\blasers?\b|\blights?\b|\bflashlight\b`, string(model.CategoryLightsLasers)),
	facet.R(`\bslings?\b`, string(model.CategorySlings)),
	facet.R(`\bcases?\b|\bbags?\b|\bstraps?\b`, string(model.CategorySoftCases)),
	facet.R(`\btargets?\b|\bbullseye\b`, string(model.CategoryTargets)),
	facet.R(`\bgrips?\b|\bstocks?\b|\bbipods?\b|\brecoil\s+pad\b|\bbutt\s+pad\b|\bcheek\s+rest\b`, string(model.CategoryGripsStocks)),
	facet.R(`\btriggers?\b|\bsprings?\b|\bpins?\b|\bbolt\s+carrier\b|\bbuffer\b|\bhandguards?\b|\brails?\b|\bbarrels?\b|\bupper\b|\blower\b|\breceiver\b|\bmounts?\b|\badapters?\b|\bconversion\b`, string(model.CategoryParts)),
}

func accessoryText(f *Facts) string {
	return strings.TrimSpace(f.Name + " " + f.Subcategory)
}

// isAccessory never fires for a department that only carries firearms, so
// a listing such as "XD-M 9MM 2 MAGS" stays a handgun.
func isAccessory(f *Facts) bool {
	if f.FirearmModel || f.Score.IsFirearm() || model.DepartmentCategory(f.Dept).IsFirearm() {
		return false
	}
	return accessoryKeywordRe.MatchString(accessoryText(f))
}

func produceAccessory(f *Facts) Decision {
	label, ok := accessoryRoutes.Match(accessoryText(f))
	if !ok {
		return Decision{model.CategoryAccessories, "Accessory keywords (no firearm model)"}
	}
	return Decision{model.Category(label), "Accessory keywords (no firearm model): " + label}
}

// Rule 3.

var (
	shotgunGaugeRe   = regexp.MustCompile(`(?i)\b(?:12|20|28|16|10)\s*(?:ga|gauge)\b|\.?\b410\b`)
	shotgunKeywordRe = regexp.MustCompile(`(?i)\bshot\s?guns?\b|\bsxs\b|\bside\s+by\s+side\b|\bover\s*/?\s*under\b|\bo/u\b`)
	rifleCaliberRe   = regexp.MustCompile(`(?i)5\.56|\b223\b|\b556\b|\b308\b|7\.62|300\s*(?:blk|blackout)|6\.5|30-06|\b270\b|30-30|\b7mm|\b338\b|\b375\b|50\s*bmg|22\s*lr|17\s*hmr|\b243\b|25-06|\b280\b|22-250|\b204\b`)
	rifleKeywordRe   = regexp.MustCompile(`(?i)\brifles?\b|\bcarbine\b|\bar-?15\b|\bak-?47\b|\bbolt[\s-]action\b`)
	handgunKeywordRe = regexp.MustCompile(`(?i)\bpistols?\b|\bhandguns?\b|\brevolvers?\b|\bderringer\b`)
)

func isShotgun(f *Facts) bool {
	return shotgunGaugeRe.MatchString(f.Name) || shotgunGaugeRe.MatchString(f.Caliber) ||
		shotgunKeywordRe.MatchString(f.Name) || shotgunKeywordRe.MatchString(f.Subcategory)
}

func isRifle(f *Facts) bool {
	return rifleCaliberRe.MatchString(f.Caliber) ||
		rifleKeywordRe.MatchString(f.Name) || rifleKeywordRe.MatchString(f.Subcategory) ||
		strings.Contains(strings.ToLower(f.ReceiverType), "rifle")
}

func isFirearmDepartment(f *Facts) bool {
	return f.Dept == "01" || f.Dept == "05"
}

func produceDepartment(f *Facts) Decision {
	if f.Dept == "01" {
		return Decision{model.CategoryHandguns, "Department 01 (Handguns)"}
	}
	if isShotgun(f) {
		return Decision{model.CategoryShotguns, "Department 05 + shotgun indicators (gauges/keywords)"}
	}
	return Decision{model.CategoryRifles, "Department 05 + rifle indicators/default"}
}

// Rule 4.

var partsKeywordRe = regexp.MustCompile(`(?i)\bupper\s+receiver\b|\blower\s+receiver\b|\breceiver\s+set\b|\bconversion\s+kit\b`)

func isParts(f *Facts) bool {
	rt := strings.ToLower(f.ReceiverType)
	if strings.Contains(rt, "upper") || strings.Contains(rt, "lower") || strings.Contains(rt, "receiver") {
		return true
	}
	return strings.TrimSpace(f.PlatformCategory) != "" || partsKeywordRe.MatchString(f.Name)
}

func produceParts(f *Facts) Decision {
	const reason = "Parts detection (receiver type/platform category)"
	rt := strings.ToLower(f.ReceiverType)
	name := strings.ToLower(f.Name)
	switch {
	case strings.Contains(rt, "upper"):
		return Decision{model.CategoryUpperReceivers, reason}
	case strings.Contains(rt, "lower"):
		return Decision{model.CategoryUppersLowers, reason}
	case rt == "" && (strings.Contains(name, "upper receiver") || strings.Contains(name, "conversion kit")):
		return Decision{model.CategoryUpperReceivers, reason}
	case rt == "" && strings.Contains(name, "lower receiver"):
		return Decision{model.CategoryUppersLowers, reason}
	}
	return Decision{model.CategoryParts, reason}
}

// Rule 5. A known firearm outside the regulated categories is forced into a
// firearm category. One already filed as a firearm moves only when its name
// names a different firearm type; used stock and non-firearm regulated
// categories (NFA, receivers, black powder) are left alone.

func needsFirearmCategory(f *Facts) bool {
	if !f.RequiresTransfer && !f.Score.IsFirearm() {
		return false
	}
	// Shell names score like shotguns ("REMINGTON 12GA"); ammo only moves on
	// a transfer flag.
	if !f.RequiresTransfer && model.DepartmentCategory(f.Dept) == model.CategoryAmmunition {
		return false
	}
	switch {
	case !f.Current.IsRegulated():
		return true
	case f.Current.IsFirearm() && !isUsed(f.Current):
		c, ok := namedFirearmType(f)
		return ok && c != f.Current
	}
	return false
}

func isUsed(c model.Category) bool {
	return c == model.CategoryUsedHandguns || c == model.CategoryUsedLongGuns
}

// namedFirearmType reads only explicit type words and gauges. Calibers are
// shared between rifles and handguns so they never move a firearm.
func namedFirearmType(f *Facts) (model.Category, bool) {
	switch {
	case isShotgun(f):
		return model.CategoryShotguns, true
	case handgunKeywordRe.MatchString(f.Name) || handgunKeywordRe.MatchString(f.Subcategory):
		return model.CategoryHandguns, true
	case rifleKeywordRe.MatchString(f.Name) || rifleKeywordRe.MatchString(f.Subcategory):
		return model.CategoryRifles, true
	}
	return "", false
}

func produceFirearm(f *Facts) Decision {
	const reason = "Firearm requiring proper categorization"
	if f.Current.IsFirearm() {
		if c, ok := namedFirearmType(f); ok {
			return Decision{c, "Firearm type contradicts current category"}
		}
		return Decision{f.Current, ReasonNoChange}
	}
	switch {
	case isShotgun(f):
		return Decision{model.CategoryShotguns, reason}
	case isRifle(f):
		return Decision{model.CategoryRifles, reason}
	case handgunKeywordRe.MatchString(f.Name):
		return Decision{model.CategoryHandguns, reason}
	}
	return Decision{model.CategoryHandguns, reason + " (default)"}
}

// Rule 6.

func produceKeep(f *Facts) Decision {
	return Decision{f.Current, ReasonNoChange}
}

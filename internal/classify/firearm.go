package classify

import (
	"regexp"
	"strings"
)

// Threshold is the minimum score at which a name is treated as a complete
// firearm.
const Threshold = 5

// Signal weights.
const (
	weightManufacturer = 3
	weightCaliber      = 4
	weightType         = 5
	weightModel        = 2
	weightAction       = 2
	weightBarrel       = 2
	weightPlatform     = 5
)

// Score is the result of the firearm heuristic.
type Score struct {
	Total   int
	Signals []string
	// Veto names the non-firearm pattern that zeroed the score, if any.
	Veto string
}

// IsFirearm reports whether s reaches Threshold.
func (s Score) IsFirearm() bool { return s.Total >= Threshold }

// veto is a non-firearm noun. A veto with unless set is ignored when unless
// matches anywhere in the text.
type veto struct {
	name   string
	re     *regexp.Regexp
	unless *regexp.Regexp
}

func v(name, pattern string) veto {
	return veto{name: name, re: regexp.MustCompile(`(?i)` + pattern)}
}

func (x veto) unlessMatch(pattern string) veto {
	x.unless = regexp.MustCompile(`(?i)` + pattern)
	return x
}

func (x veto) match(text string) bool {
	if !x.re.MatchString(text) {
		return false
	}
	return x.unless == nil || !x.unless.MatchString(text)
}

const firearmWords = `\b(?:pistol|rifle|shotgun|revolver)\b`

var vetoes = []veto{
	v("magazine", `\b(?:magazines?|pmags?)\b`),
	v("mag", `\bmags?\b`).unlessMatch(`\d\s*(?:win\s*|rem\s*)?mag\b|\bmagnum\b`),
	v("holster", `\bholsters?\b`),
	v("case", `\b(?:gun\s+)?cases?\b`),
	v("suppressor", `\bsuppressors?\b`),
	v("silencer", `\bsilencers?\b`),
	v("scope", `\bscopes?\b`),
	v("optic", `\boptics?\b`),
	v("red dot", `\bred\s*dot\b`),
	v("sight", `\bsights?\b`).unlessMatch(firearmWords),
	v("trigger", `\btriggers?\b`).unlessMatch(`\btrigger\s+(?:pull|weight)\b`),
	v("grip", `\bgrips?\b`).unlessMatch(`\b(?:pistol|rifle|shotgun)\b`),
	v("mount", `\bmount(?:s|ing)?\b`),
	v("sling", `\bslings?\b`),
	v("ammunition", `\bammo(?:unition)?\b`),
	v("bullet type", `\b(?:FMJ|JHP|JSP|TMJ|HP|SP|RN)\b`),
	v("cleaning", `\bcleaning\b`),
	v("oil", `\boil\b`),
	v("solvent", `\bsolvent\b`),
	v("brush", `\bbrush(?:es)?\b`),
	v("kit", `\bkits?\b`).unlessMatch(`\b(?:pistol|rifle)\b`),
	v("light", `\blights?\b`),
	v("laser", `\blasers?\b`),
	v("thread adapter", `\bthread\s+adapter\b`),
	v("stock", `\bstocks?\b`).unlessMatch(`\b(?:rifle|shotgun)\b`),
	v("rail", `\brails?\b`),
	v("barrel", `\bbarrels?\b`).unlessMatch(`\b(?:rifle|pistol|length)\b`),
	v("upper", `\bupper\s+(?:receiver|assembly)\b`),
	v("lower", `\blower\s+(?:receiver|assembly)\b`),
	v("parts", `\bparts\b`),
	v("spring", `\bsprings?\b`),
	v("pin", `\bpins?\b`),
	v("bolt carrier", `\bbolt\s+carrier\b`),
	v("buffer", `\bbuffer\b`),
	v("handguard", `\bhandguards?\b`),
	v("brace", `\bbraces?\b`),
	v("strap", `\bstraps?\b`),
	v("bag", `\bbags?\b`),
	v("pouch", `\bpouch(?:es)?\b`),
	v("target", `\btargets?\b`),
	v("bipod", `\bbipods?\b`),
	v("swivel", `\bswivels?\b`),
	v("adapter", `\badapters?\b`).unlessMatch(`\b(?:pistol|rifle)\b`),
	v("conversion", `\bconversion\b`).unlessMatch(`\b(?:pistol|rifle)\b`),
	v("tool", `\btools?\b`),
	v("plug", `\bplugs?\b`),
	v("cap", `\bcaps?\b`).unlessMatch(`\b(?:pistol|rifle)\b`),
	v("cover", `\bcovers?\b`),
	v("protector", `\bprotectors?\b`),
	v("wrench", `\bwrench\b`),
	v("gauge tool", `\bgauge\b`).unlessMatch(`\b(?:12|20|410|16|28)\b`),
	v("bore sight", `\bbore\s*sight`),
	v("snap cap", `\bsnap\s+caps?\b`),
	v("dummy round", `\bdummy\s+rounds?\b`),
	v("speed loader", `\bspeed\s*loaders?\b`),
	v("brass", `\bbrass\b`).unlessMatch(`\b(?:rifle|pistol)\b`),
	v("shell holder", `\bshell\s+holders?\b`),
	v("recoil pad", `\brecoil\s+pads?\b`),
	v("butt pad", `\bbutt\s+(?:pad|plate)s?\b`),
	v("cheek rest", `\bcheek\s+(?:rest|riser)s?\b`),
	v("flash hider", `\bflash\s+(?:hider|suppressor)s?\b`),
	v("muzzle device", `\bmuzzle\s+(?:brake|device)s?\b`),
	v("compensator", `\bcompensators?\b`),
}

var (
	ammoCountRe = regexp.MustCompile(`(?i)\b\d+\s*(?:rd|rds|round|rounds|count|ct|box|pk)\b`)
	grainRe     = regexp.MustCompile(`(?i)\b\d+\s*(?:gr|grain)\b`)

	caliberRe  = regexp.MustCompile(`(?i)\b(?:\d+\s*mm|9x19|\.?\d{2,3}\s*(?:acp|auto|mag|magnum|special|s&w|sw|lr|long rifle|short|win|winchester|rem|remington|wby|weatherby|creed|creedmoor|norma|prc|wsm|rum|ultra mag)|\.?\d{2,3}x\d{2,3})\b`)
	gaugeRe    = regexp.MustCompile(`(?i)\b(?:12|20|410|16|28|10)\s*(?:ga|gauge)\b`)
	typeRe     = regexp.MustCompile(`(?i)\b(?:pistol|handgun|revolver|rifle|carbine|shotgun|firearm|sidearm|longgun|long gun)\b`)
	modelRe    = regexp.MustCompile(`(?i)\b(?:gen\s*[1-5]|m&p|xd|p320|p365|p226|p229|glock\s*\d+|g\d{2}|model\s*\d+|mk\s*(?:ii|iii|iv|v))\b`)
	actionRe   = regexp.MustCompile(`(?i)\b(?:semi[\s-]?auto|automatic|bolt[\s-]?action|lever[\s-]?action|pump[\s-]?action|single[\s-]?action|double[\s-]?action|striker[\s-]?fired|da/sa|sao|dao)\b`)
	barrelRe   = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?[\s-]?(?:inch|in|")\s*(?:barrel|bbl)\b`)
	platformRe = regexp.MustCompile(`(?i)\b(?:ar-15|ar15|ar-10|ar10|ak-47|ak47|ak-74|ak74|sks|m1|m14|m16|m4)\b`)
)

var firearmManufacturers = []string{
	"glock", "sig", "smith", "wesson", "s&w", "ruger", "colt", "beretta",
	"springfield", "remington", "mossberg", "savage", "winchester", "marlin",
	"browning", "fn", "hk", "heckler", "walther", "cz", "canik", "taurus",
	"kimber", "daniel defense", "bcm", "bravo company", "lwrc", "wilson combat",
	"staccato", "dan wesson", "nighthawk", "ed brown", "les baer", "kahr",
	"kel-tec", "keltec", "sccy", "hi-point", "hipoint", "diamondback", "dpms",
	"bushmaster", "windham", "anderson", "aero", "palmetto", "psa", "radical",
	"delton", "stag", "rock river", "cmmg", "jp enterprises", "noveske",
	"christensen", "barrett", "accuracy international", "tikka", "sako",
	"weatherby", "henry", "rossi", "heritage", "chiappa",
	"uberti", "pietta", "benelli", "stoeger", "franchi", "cz-usa", "czusa",
	"girsan", "tisas", "sar", "century", "zastava", "arsenal", "iwi",
	"tavor", "galil", "desert eagle", "magnum research", "charter arms",
	"bond arms", "derringer", "north american arms", "naa",
}

var manufacturerRe = func() *regexp.Regexp {
	quoted := make([]string, len(firearmManufacturers))
	for i, m := range firearmManufacturers {
		quoted[i] = regexp.QuoteMeta(m)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\w])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\w])`)
}()

// FirearmScore sums weighted firearm signals in name. Manufacturer is
// checked separately since the vendor carries it in its own column. A
// non-firearm noun or an ammunition signature zeroes the score.
func FirearmScore(name, manufacturer string) Score {
	for _, x := range vetoes {
		if x.match(name) {
			return Score{Veto: x.name}
		}
	}
	if ammoCountRe.MatchString(name) && grainRe.MatchString(name) {
		return Score{Veto: "ammunition"}
	}

	var s Score
	add := func(ok bool, weight int, signal string) {
		if ok {
			s.Total += weight
			s.Signals = append(s.Signals, signal)
		}
	}
	add(manufacturerRe.MatchString(manufacturer) || manufacturerRe.MatchString(name), weightManufacturer, "manufacturer")
	add(caliberRe.MatchString(name) || gaugeRe.MatchString(name), weightCaliber, "caliber")
	add(typeRe.MatchString(name), weightType, "type")
	add(modelRe.MatchString(name), weightModel, "model")
	add(actionRe.MatchString(name), weightAction, "action")
	add(barrelRe.MatchString(name), weightBarrel, "barrel")
	add(platformRe.MatchString(name), weightPlatform, "platform")
	return s
}

// IsFirearm reports whether name scores as a complete firearm.
func IsFirearm(name, manufacturer string) bool {
	return FirearmScore(name, manufacturer).IsFirearm()
}

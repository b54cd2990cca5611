package classify

import (
	"regexp"

	"github.com/sells-group/catalog-sync/internal/model"
)

// NFA exclusions are checked before any NFA word so accessories that merely
// mention a suppressor stay out of the NFA category.
var (
	nfaExclusionRe = regexp.MustCompile(`(?i)\bflash\s+suppressors?\b|\bmuzzle\s+brakes?\b|\bcompensators?\b|\bthread\s+protectors?\b|\bcleaning\b|\bcleaners?\b|\badapters?\b|\bmounts?\b|\bcovers?\b|\bpouch(?:es)?\b|\bcases?\b|\bkits?\b|\btools?\b`)
	nfaWordRe      = regexp.MustCompile(`(?i)\bsilencer|\bsuppressors?\b|\bsbr\b|\bshort[\s-]barrel(?:ed)?\s+(?:rifle|shotgun)\b|\bsbs\b|\bmachine\s*gun\b|\bfull[\s-]auto\b|\bany\s+other\s+weapon\b|\baow\b`)
)

// IsNFAItem reports whether text describes an NFA-regulated item.
func IsNFAItem(text string) bool {
	if nfaExclusionRe.MatchString(text) {
		return false
	}
	return nfaWordRe.MatchString(text)
}

// nfaExcluded reports whether text names an NFA accessory rather than an
// NFA item.
func nfaExcluded(text string) bool {
	return nfaExclusionRe.MatchString(text)
}

var transferDepartments = map[string]bool{
	"01": true, "02": true, "03": true, "05": true,
	"06": true, "07": true, "41": true, "42": true, "43": true,
}

// DepartmentRequiresTransfer reports whether items from dept ship only to a
// licensed dealer.
func DepartmentRequiresTransfer(dept string) bool {
	return transferDepartments[model.NormalizeDepartment(dept)]
}

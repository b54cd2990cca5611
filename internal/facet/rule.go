// Package facet derives secondary product attributes from free text using
// ordered pattern tables. The first matching rule in a table wins.
package facet

import (
	"regexp"
	"strings"
)

// Rule maps a pattern to a facet value. Label may reference capture groups
// as ${1}. A rule with Unless set is suppressed when Unless matches
// anywhere in the text.
type Rule struct {
	Pattern *regexp.Regexp
	Unless  *regexp.Regexp
	Label   string
}

// R compiles a case-insensitive rule. It panics on a bad pattern, so it is
// only used for the built-in tables.
func R(pattern, label string) Rule {
	return Rule{Pattern: regexp.MustCompile("(?i)" + pattern), Label: label}
}

// Except adds a suppressing pattern to r.
func (r Rule) Except(pattern string) Rule {
	r.Unless = regexp.MustCompile("(?i)" + pattern)
	return r
}

// Match applies r to text.
func (r Rule) Match(text string) (string, bool) {
	loc := r.Pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", false
	}
	if r.Unless != nil && r.Unless.MatchString(text) {
		return "", false
	}
	if !strings.Contains(r.Label, "$") {
		return r.Label, true
	}
	out := r.Pattern.ExpandString(nil, r.Label, text, loc)
	return strings.TrimSpace(string(out)), true
}

// Table is an ordered rule list. Specific rules must precede generic ones.
type Table []Rule

// Match returns the label of the first matching rule.
func (t Table) Match(text string) (string, bool) {
	for _, r := range t {
		if label, ok := r.Match(text); ok {
			return label, true
		}
	}
	return "", false
}

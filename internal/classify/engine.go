// Package classify assigns the canonical category and the compliance flags
// for a product. Classification is a pure function of its Input.
package classify

import (
	"github.com/sells-group/catalog-sync/internal/model"
)

// ReasonNoChange is the reason reported when the category is unchanged.
const ReasonNoChange = "no change"

// Result is the engine's verdict for one record.
type Result struct {
	Category                  model.Category
	Reason                    string
	Rule                      string
	RequiresRegulatedTransfer bool
	MayDropShip               bool
	Score                     Score
}

// Changed reports whether the category moved.
func (r Result) Changed(from model.Category) bool { return r.Category != from }

// Engine runs a rule chain. The zero value is not usable; call New.
type Engine struct {
	rules []Rule
}

// New returns an Engine using DefaultRules.
func New() *Engine {
	return &Engine{rules: DefaultRules()}
}

// NewWithRules returns an Engine with a custom chain. The chain must end in
// a rule that always applies.
func NewWithRules(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Classify returns the category for in. It always resolves.
func (e *Engine) Classify(in Input) Result {
	f := newFacts(in)
	d, rule, ok := FirstMatch(e.rules, f)
	if !ok || d.Category == "" {
		d, rule = produceKeep(f), RuleKeep
	}
	if d.Category == f.Current {
		d.Reason = ReasonNoChange
	}
	return Result{
		Category:                  d.Category,
		Reason:                    d.Reason,
		Rule:                      rule,
		RequiresRegulatedTransfer: d.Category.IsRegulated() || model.DepartmentCategory(f.Dept).IsFirearm(),
		MayDropShip:               !in.DropShipBlocked,
		Score:                     f.Score,
	}
}

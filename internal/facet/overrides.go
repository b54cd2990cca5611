package facet

import (
	"errors"
	"io"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/catalog-sync/internal/model"
)

// OverrideRule is one pattern entry in a rules file.
type OverrideRule struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`
	Unless  string `yaml:"unless,omitempty"`
}

// FacetOverride adds rules ahead of (Prepend) or behind (Append) the
// built-in table for a facet.
type FacetOverride struct {
	Prepend []OverrideRule `yaml:"prepend"`
	Append  []OverrideRule `yaml:"append"`
}

// Overrides holds compiled override rules keyed by facet.
type Overrides struct {
	before map[model.FacetName]Table
	after  map[model.FacetName]Table
}

// Empty reports whether o adds no rules.
func (o Overrides) Empty() bool {
	return len(o.before) == 0 && len(o.after) == 0
}

// LoadOverrides parses a YAML rules file of the form:
//
//	caliber:
//	  prepend:
//	    - pattern: '\b8\.6\s*BLK\b'
//	      label: 8.6 BLK
func LoadOverrides(r io.Reader) (Overrides, error) {
	var raw map[string]FacetOverride
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Overrides{}, nil
		}
		return Overrides{}, eris.Wrap(err, "facet: decode overrides")
	}

	known := make(map[model.FacetName]bool, len(model.FacetNames))
	for _, n := range model.FacetNames {
		known[n] = true
	}

	o := Overrides{before: map[model.FacetName]Table{}, after: map[model.FacetName]Table{}}
	for key, fo := range raw {
		name := model.FacetName(key)
		if !known[name] {
			return Overrides{}, eris.Errorf("facet: unknown facet %q in overrides", key)
		}
		pre, err := compileRules(name, fo.Prepend)
		if err != nil {
			return Overrides{}, err
		}
		post, err := compileRules(name, fo.Append)
		if err != nil {
			return Overrides{}, err
		}
		if len(pre) > 0 {
			o.before[name] = pre
		}
		if len(post) > 0 {
			o.after[name] = post
		}
	}
	return o, nil
}

// LoadOverridesFile reads overrides from path.
func LoadOverridesFile(path string) (Overrides, error) {
	f, err := os.Open(path)
	if err != nil {
		return Overrides{}, eris.Wrapf(err, "facet: open overrides %s", path)
	}
	defer f.Close() //nolint:errcheck
	return LoadOverrides(f)
}

func compileRules(name model.FacetName, rules []OverrideRule) (Table, error) {
	var t Table
	for i, or := range rules {
		if or.Pattern == "" || or.Label == "" {
			return nil, eris.Errorf("facet: %s rule %d needs pattern and label", name, i)
		}
		re, err := regexp.Compile("(?i)" + or.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "facet: %s rule %d", name, i)
		}
		rule := Rule{Pattern: re, Label: or.Label}
		if or.Unless != "" {
			un, err := regexp.Compile("(?i)" + or.Unless)
			if err != nil {
				return nil, eris.Wrapf(err, "facet: %s rule %d unless", name, i)
			}
			rule.Unless = un
		}
		t = append(t, rule)
	}
	return t, nil
}

// WithOverrides splices o into every gated table of each overridden facet.
func WithOverrides(o Overrides) Option {
	return func(e *Extractor) {
		for name, gs := range e.tables {
			pre, post := o.before[name], o.after[name]
			if len(pre) == 0 && len(post) == 0 {
				continue
			}
			out := make([]gated, len(gs))
			for i, g := range gs {
				t := make(Table, 0, len(pre)+len(g.table)+len(post))
				t = append(t, pre...)
				t = append(t, g.table...)
				t = append(t, post...)
				out[i] = gated{kinds: g.kinds, table: t}
			}
			e.tables[name] = out
		}
	}
}

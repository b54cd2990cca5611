package classify

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-sync/internal/model"
)

// Diff classifies a stored product and returns a change when the category
// differs. It never mutates p.
func (e *Engine) Diff(p model.Product) *model.ClassificationChange {
	res := e.Classify(FromProduct(p))
	if !res.Changed(p.Category) {
		return nil
	}
	return &model.ClassificationChange{
		ProductID:     p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		FromCategory:  p.Category,
		ToCategory:    res.Category,
		Reason:        res.Reason,
		FromRegulated: p.RequiresRegulatedTransfer,
		ToRegulated:   res.RequiresRegulatedTransfer,
	}
}

// Movement counts changes into one target category by source.
type Movement struct {
	From  map[model.Category]int `json:"from"`
	Total int                    `json:"total"`
}

// Analysis is a dry-run reclassification report.
type Analysis struct {
	Changes      []model.ClassificationChange `json:"changes"`
	Summary      map[model.Category]*Movement `json:"summary"`
	TotalChanges int                          `json:"total_changes"`
	Scanned      int                          `json:"scanned"`
}

// NewAnalysis returns an empty Analysis.
func NewAnalysis() *Analysis {
	return &Analysis{Summary: make(map[model.Category]*Movement)}
}

// Add records c.
func (a *Analysis) Add(c model.ClassificationChange) {
	a.Changes = append(a.Changes, c)
	m, ok := a.Summary[c.ToCategory]
	if !ok {
		m = &Movement{From: make(map[model.Category]int)}
		a.Summary[c.ToCategory] = m
	}
	m.From[c.FromCategory]++
	m.Total++
	a.TotalChanges++
}

// Analyze diffs every product.
func (e *Engine) Analyze(products []model.Product) *Analysis {
	a := NewAnalysis()
	for _, p := range products {
		a.Scanned++
		if c := e.Diff(p); c != nil {
			a.Add(*c)
		}
	}
	return a
}

// Targets returns the summary categories sorted by change count, largest
// first.
func (a *Analysis) Targets() []model.Category {
	out := make([]model.Category, 0, len(a.Summary))
	for c := range a.Summary {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := a.Summary[out[i]].Total, a.Summary[out[j]].Total
		if ti != tj {
			return ti > tj
		}
		return out[i] < out[j]
	})
	return out
}

var changesHeader = []string{"product_id", "sku", "name", "from_category", "to_category", "reason", "from_regulated", "to_regulated"}

// WriteChangesCSV writes changes as CSV with a header row.
func WriteChangesCSV(w io.Writer, changes []model.ClassificationChange) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(changesHeader); err != nil {
		return eris.Wrap(err, "classify: write csv header")
	}
	for _, c := range changes {
		row := []string{
			strconv.FormatInt(c.ProductID, 10),
			c.SKU,
			c.Name,
			string(c.FromCategory),
			string(c.ToCategory),
			c.Reason,
			strconv.FormatBool(c.FromRegulated),
			strconv.FormatBool(c.ToRegulated),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "classify: write csv row %s", c.SKU)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "classify: flush csv")
}

package stoich

import (
	"github.com/turtacn/alchemist/internal/domain/formula"
	"github.com/turtacn/alchemist/internal/domain/thermo"
	"github.com/turtacn/alchemist/pkg/errors"
)

// ErrFormulaUnresolved is returned when no table formula has the composition
// of the input.
var ErrFormulaUnresolved = errors.New(errors.CodeNameUnresolved, "no table formula matches composition")

// Rearranger maps an arbitrary molecular formula (e.g. "C2H6O" from PubChem)
// to the spelling used by the thermodynamic table (e.g. "C2H5OH").
type Rearranger struct {
	thermo *thermo.Table
	filter *Filter
}

// NewRearranger returns a Rearranger.
func NewRearranger(t *thermo.Table, f *Filter) *Rearranger {
	return &Rearranger{thermo: t, filter: f}
}

// Rearrange returns f unchanged when the table already knows it. Otherwise it
// returns the most common state-stripped spelling among exact-composition
// entries; ties resolve to the earliest entry.
func (r *Rearranger) Rearrange(f string) (string, error) {
	if r.thermo.ContainsFormula(f) || r.thermo.ContainsAbbrv(f) || r.thermo.ContainsBase(f) {
		return f, nil
	}

	variants, err := r.filter.Candidates([]string{f}, Options{Exact: true})
	if err != nil {
		return "", err
	}
	if len(variants) == 0 {
		return "", ErrFormulaUnresolved.WithDetail(f)
	}

	counts := make(map[string]int, len(variants))
	var order []string
	for _, v := range variants {
		base := formula.SeparateState(v)
		if counts[base] == 0 {
			order = append(order, base)
		}
		counts[base]++
	}
	best := order[0]
	for _, b := range order[1:] {
		if counts[b] > counts[best] {
			best = b
		}
	}
	return best, nil
}

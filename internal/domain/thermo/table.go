// Package thermo holds the immutable thermodynamic table: standard Gibbs free
// energy of formation and molar mass per formula-with-state.
package thermo

import (
	"fmt"
	"strings"

	"github.com/turtacn/alchemist/internal/domain/formula"
	"github.com/turtacn/alchemist/pkg/errors"
)

// Species is one row of the thermodynamic table.
type Species struct {
	Formula string  `json:"formula" yaml:"formula"`
	G       float64 `json:"g" yaml:"g"`       // J/mol
	Mass    float64 `json:"mass" yaml:"mass"` // g/mol
	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	Abbrv   string  `json:"abbrv,omitempty" yaml:"abbrv,omitempty"`
}

// Field selects a numeric column for Value.
type Field string

const (
	FieldG    Field = "G"
	FieldMass Field = "mass"
)

var (
	// ErrFormulaNotFound is returned when no row matches a formula.
	ErrFormulaNotFound = errors.New(errors.CodeFormulaNotFound, "formula not found in thermodynamic table")
	// ErrAmbiguousFormula is returned when Resolve matches more than one row.
	ErrAmbiguousFormula = errors.New(errors.CodeFormulaAmbiguous, "formula matches more than one table row")
)

// Table is safe for concurrent use; it is never mutated after NewTable.
type Table struct {
	rows      []Species
	byFormula map[string]int
	byBase    map[string][]int
	byAbbrv   map[string]int
	byName    map[string]int
}

// NewTable indexes rows. Duplicate exact formulas are rejected.
func NewTable(rows []Species) (*Table, error) {
	t := &Table{
		rows:      append([]Species(nil), rows...),
		byFormula: make(map[string]int, len(rows)),
		byBase:    make(map[string][]int, len(rows)),
		byAbbrv:   make(map[string]int),
		byName:    make(map[string]int),
	}
	for i, r := range t.rows {
		if r.Formula == "" {
			return nil, errors.New(errors.CodeDatasetInvalid, "thermodynamic row has empty formula").
				WithDetail(fmt.Sprintf("row %d", i))
		}
		if _, dup := t.byFormula[r.Formula]; dup {
			return nil, errors.New(errors.CodeDatasetInvalid, "duplicate formula in thermodynamic table").
				WithDetail(r.Formula)
		}
		t.byFormula[r.Formula] = i
		base := formula.SeparateState(r.Formula)
		t.byBase[base] = append(t.byBase[base], i)
		if r.Abbrv != "" {
			if _, ok := t.byAbbrv[r.Abbrv]; !ok {
				t.byAbbrv[r.Abbrv] = i
			}
			key := strings.ToLower(r.Abbrv)
			if _, ok := t.byName[key]; !ok {
				t.byName[key] = i
			}
		}
		if r.Name != "" {
			key := strings.ToLower(r.Name)
			if _, ok := t.byName[key]; !ok {
				t.byName[key] = i
			}
		}
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of all rows in table order.
func (t *Table) Rows() []Species {
	return append([]Species(nil), t.rows...)
}

// Lookup returns the rows matching f. An exact formula-with-state match wins;
// otherwise every row whose state-stripped formula equals f matches.
func (t *Table) Lookup(f string) ([]Species, error) {
	if i, ok := t.byFormula[f]; ok {
		return []Species{t.rows[i]}, nil
	}
	idx := t.byBase[f]
	if len(idx) == 0 {
		return nil, ErrFormulaNotFound.WithDetail(f)
	}
	out := make([]Species, len(idx))
	for j, i := range idx {
		out[j] = t.rows[i]
	}
	return out, nil
}

// Resolve is Lookup that requires exactly one row.
func (t *Table) Resolve(f string) (Species, error) {
	rows, err := t.Lookup(f)
	if err != nil {
		return Species{}, err
	}
	if len(rows) > 1 {
		names := make([]string, len(rows))
		for i, r := range rows {
			names[i] = r.Formula
		}
		return Species{}, ErrAmbiguousFormula.WithDetail(fmt.Sprintf("%s matches %s", f, strings.Join(names, ", ")))
	}
	return rows[0], nil
}

// Value returns field for the single row matching f.
func (t *Table) Value(f string, field Field) (float64, error) {
	s, err := t.Resolve(f)
	if err != nil {
		return 0, err
	}
	switch field {
	case FieldG:
		return s.G, nil
	case FieldMass:
		return s.Mass, nil
	default:
		return 0, errors.InvalidParam("unknown thermodynamic field").WithDetail(string(field))
	}
}

// PredictState returns the formula-with-state of minimum G among rows sharing
// the base of f. Ties resolve to the earliest row.
func (t *Table) PredictState(f string) (string, error) {
	base := formula.SeparateState(f)
	idx := t.byBase[base]
	if len(idx) == 0 {
		return "", ErrFormulaNotFound.WithDetail(f)
	}
	best := idx[0]
	for _, i := range idx[1:] {
		if t.rows[i].G < t.rows[best].G {
			best = i
		}
	}
	return t.rows[best].Formula, nil
}

// ContainsFormula reports an exact formula-with-state match.
func (t *Table) ContainsFormula(f string) bool {
	_, ok := t.byFormula[f]
	return ok
}

// ContainsAbbrv reports whether f is a known abbreviation.
func (t *Table) ContainsAbbrv(f string) bool {
	_, ok := t.byAbbrv[f]
	return ok
}

// ContainsBase reports whether some row's state-stripped formula equals f.
func (t *Table) ContainsBase(f string) bool {
	return len(t.byBase[f]) > 0
}

// FindByName matches name case-insensitively against Name or Abbrv. The
// earliest row wins.
func (t *Table) FindByName(name string) (Species, bool) {
	i, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Species{}, false
	}
	return t.rows[i], true
}

// Names returns every distinct non-empty Name and Abbrv in table order.
func (t *Table) Names() []string {
	seen := make(map[string]struct{}, len(t.rows))
	var out []string
	for _, r := range t.rows {
		for _, n := range []string{r.Name, r.Abbrv} {
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

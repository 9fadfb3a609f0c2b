// Package stoich holds the stoichiometric composition table and the element
// filter that narrows it to candidate products for a set of reactants.
package stoich

import (
	"sort"

	"github.com/turtacn/alchemist/internal/domain/formula"
	"github.com/turtacn/alchemist/pkg/errors"
)

// Entry is one row of the composition table.
type Entry struct {
	Formula     string
	Composition formula.Composition
}

// Table is immutable after NewTable.
type Table struct {
	entries []Entry
}

// NewTable copies entries in order. Compositions are cloned.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{entries: make([]Entry, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Formula == "" {
			return nil, errors.New(errors.CodeDatasetInvalid, "stoichiometric row has empty formula")
		}
		if _, dup := seen[e.Formula]; dup {
			return nil, errors.New(errors.CodeDatasetInvalid, "duplicate formula in stoichiometric table").
				WithDetail(e.Formula)
		}
		seen[e.Formula] = struct{}{}
		c := make(formula.Composition, len(e.Composition))
		for k, v := range e.Composition {
			if v != 0 {
				c[k] = v
			}
		}
		t.entries = append(t.entries, Entry{Formula: e.Formula, Composition: c})
	}
	return t, nil
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns the entries in table order. Callers must not mutate the
// compositions.
func (t *Table) Entries() []Entry { return t.entries }

// ElementSet is a set of atomic numbers; 0 stands for charge.
type ElementSet map[int]struct{}

// Has reports membership.
func (s ElementSet) Has(z int) bool {
	_, ok := s[z]
	return ok
}

// Sorted returns the members in ascending order.
func (s ElementSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for z := range s {
		out = append(out, z)
	}
	sort.Ints(out)
	return out
}

// Equal reports set equality.
func (s ElementSet) Equal(o ElementSet) bool {
	if len(s) != len(o) {
		return false
	}
	for z := range s {
		if !o.Has(z) {
			return false
		}
	}
	return true
}

// UniqueElements returns the union of atomic numbers across formulas. Charge
// (0) is included only when some formula is charged.
func UniqueElements(formulas []string) (ElementSet, error) {
	set := ElementSet{}
	for _, f := range formulas {
		c, err := formula.Parse(f)
		if err != nil {
			return nil, err
		}
		for _, z := range c.Elements() {
			set[z] = struct{}{}
		}
	}
	return set, nil
}

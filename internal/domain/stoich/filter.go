package stoich

import (
	"github.com/turtacn/alchemist/internal/domain/formula"
	"github.com/turtacn/alchemist/internal/domain/thermo"
	"github.com/turtacn/alchemist/pkg/errors"
)

// Options controls Candidates.
type Options struct {
	// Exact keeps only entries whose composition equals formulas[0]. It
	// implies Thorough.
	Exact bool
	// Thorough returns raw table formulas without state prediction or
	// de-duplication.
	Thorough bool
}

// Filter selects composition-table entries built from a given element set.
type Filter struct {
	stoich *Table
	thermo *thermo.Table
}

// NewFilter returns a Filter over the two tables.
func NewFilter(s *Table, t *thermo.Table) *Filter {
	return &Filter{stoich: s, thermo: t}
}

// Candidates returns table formulas composed only of elements present in
// formulas (charge is always allowed). In the default mode the results are
// state-predicted, exclude the inputs themselves and keep first-seen order.
func (f *Filter) Candidates(formulas []string, opts Options) ([]string, error) {
	if len(formulas) == 0 {
		return nil, errors.InvalidParam("at least one formula is required")
	}
	allowed, err := UniqueElements(formulas)
	if err != nil {
		return nil, err
	}
	allowed[formula.ChargeKey] = struct{}{}

	var target formula.Composition
	if opts.Exact {
		target, err = formula.Parse(formulas[0])
		if err != nil {
			return nil, err
		}
		opts.Thorough = true
	}

	var matched []string
	for _, e := range f.stoich.entries {
		if !withinElements(e.Composition, allowed) || allZero(e.Composition) {
			continue
		}
		if target != nil && !e.Composition.Equal(target) {
			continue
		}
		matched = append(matched, e.Formula)
	}

	if opts.Thorough {
		return matched, nil
	}

	inputs := make(map[string]struct{}, len(formulas))
	for _, in := range formulas {
		inputs[formula.SeparateState(in)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(matched))
	out := make([]string, 0, len(matched))
	for _, m := range matched {
		base := formula.SeparateState(m)
		if _, isInput := inputs[base]; isInput {
			continue
		}
		predicted, err := f.thermo.PredictState(base)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[predicted]; dup {
			continue
		}
		seen[predicted] = struct{}{}
		out = append(out, predicted)
	}
	return out, nil
}

func withinElements(c formula.Composition, allowed ElementSet) bool {
	for z, n := range c {
		if n != 0 && !allowed.Has(z) {
			return false
		}
	}
	return true
}

func allZero(c formula.Composition) bool {
	for _, n := range c {
		if n != 0 {
			return false
		}
	}
	return true
}

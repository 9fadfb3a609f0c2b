// Package reaction balances chemical equations over exact rationals and
// searches the composition table for the minimum-Gibbs-energy reaction.
package reaction

import (
	"strconv"
	"strings"
)

// Reaction is an ordered, balanced equation.
type Reaction struct {
	Reactants []Term `json:"reactants" yaml:"reactants"`
	Products  []Term `json:"products" yaml:"products"`
}

// String renders e.g. "4 Al(s) + 3 O2(g) → 2 Al2O3(s)". Unit coefficients
// are omitted.
func (r Reaction) String() string {
	return side(r.Reactants) + " → " + side(r.Products)
}

func side(terms []Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		if t.Coefficient == 1 {
			parts[i] = t.Formula
			continue
		}
		parts[i] = strconv.FormatInt(t.Coefficient, 10) + " " + t.Formula
	}
	return strings.Join(parts, " + ")
}

// Coefficients returns formula → coefficient for both sides.
func (r Reaction) Coefficients() map[string]int64 {
	out := make(map[string]int64, len(r.Reactants)+len(r.Products))
	for _, t := range r.Reactants {
		out[t.Formula] = t.Coefficient
	}
	for _, t := range r.Products {
		out[t.Formula] = t.Coefficient
	}
	return out
}

// ReactantFormulas returns the reactant formulas in order.
func (r Reaction) ReactantFormulas() []string { return formulas(r.Reactants) }

// ProductFormulas returns the product formulas in order.
func (r Reaction) ProductFormulas() []string { return formulas(r.Products) }

func formulas(terms []Term) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Formula
	}
	return out
}

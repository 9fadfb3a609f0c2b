package reaction

import (
	"fmt"
	"math/big"

	"github.com/turtacn/alchemist/internal/domain/formula"
	"github.com/turtacn/alchemist/pkg/errors"
)

// Reason classifies a balancing failure.
type Reason string

const (
	ReasonNoSolution       Reason = "no_solution"
	ReasonUnderdetermined  Reason = "underdetermined"
	ReasonNonPositive      Reason = "non_positive"
	ReasonDuplicateSpecies Reason = "duplicate_species"
	ReasonInvalidFormula   Reason = "invalid_formula"
)

// ErrBalanceFailed is the sentinel every BalanceError unwraps to.
var ErrBalanceFailed = errors.New(errors.CodeBalanceFailed, "reaction cannot be balanced")

// BalanceError reports why a species set has no unique positive balance.
type BalanceError struct {
	Reason Reason
	Detail string
}

func (e *BalanceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("balance failed: %s", e.Reason)
	}
	return fmt.Sprintf("balance failed: %s: %s", e.Reason, e.Detail)
}

// Unwrap exposes the CHEM_004 AppError so errors.IsCode works.
func (e *BalanceError) Unwrap() error {
	return ErrBalanceFailed.WithDetail(string(e.Reason))
}

// Term is one species with its stoichiometric coefficient.
type Term struct {
	Formula     string `json:"formula" yaml:"formula"`
	Coefficient int64  `json:"coefficient" yaml:"coefficient"`
}

// Balanced holds the minimal positive integer coefficients of a reaction.
type Balanced struct {
	Reactants []Term
	Products  []Term
}

// Reaction returns the balanced equation as a Reaction.
func (b *Balanced) Reaction() Reaction {
	return Reaction{
		Reactants: append([]Term(nil), b.Reactants...),
		Products:  append([]Term(nil), b.Products...),
	}
}

// Balance finds the unique (up to scale) positive integer coefficients that
// conserve every element and net charge. The conservation matrix has reactant
// columns positive and product columns negative; its null space must be
// one-dimensional with every entry of one sign.
func Balance(reactants, products []string) (*Balanced, error) {
	if len(reactants) == 0 || len(products) == 0 {
		return nil, &BalanceError{Reason: ReasonInvalidFormula, Detail: "both sides need at least one species"}
	}

	species := make([]string, 0, len(reactants)+len(products))
	species = append(species, reactants...)
	species = append(species, products...)

	seen := make(map[string]struct{}, len(species))
	comps := make([]formula.Composition, len(species))
	rowIndex := map[int]int{}
	var rowKeys []int
	for j, s := range species {
		if _, dup := seen[s]; dup {
			return nil, &BalanceError{Reason: ReasonDuplicateSpecies, Detail: s}
		}
		seen[s] = struct{}{}
		c, err := formula.Parse(s)
		if err != nil {
			return nil, &BalanceError{Reason: ReasonInvalidFormula, Detail: s}
		}
		comps[j] = c
		for _, z := range c.Elements() {
			if _, ok := rowIndex[z]; !ok {
				rowIndex[z] = len(rowKeys)
				rowKeys = append(rowKeys, z)
			}
		}
	}

	m := make([][]*big.Rat, len(rowKeys))
	for i := range m {
		m[i] = make([]*big.Rat, len(species))
		for j := range m[i] {
			m[i][j] = new(big.Rat)
		}
	}
	for j, c := range comps {
		sign := int64(1)
		if j >= len(reactants) {
			sign = -1
		}
		for z, n := range c {
			if n == 0 {
				continue
			}
			m[rowIndex[z]][j].SetInt64(sign * int64(n))
		}
	}

	basis := nullSpace(m, len(species))
	switch {
	case len(basis) == 0:
		return nil, &BalanceError{Reason: ReasonNoSolution}
	case len(basis) > 1:
		return nil, &BalanceError{Reason: ReasonUnderdetermined, Detail: fmt.Sprintf("null space dimension %d", len(basis))}
	}

	coeffs, ok := scaleToIntegers(basis[0])
	if !ok {
		return nil, &BalanceError{Reason: ReasonNonPositive}
	}

	out := &Balanced{
		Reactants: make([]Term, len(reactants)),
		Products:  make([]Term, len(products)),
	}
	for j, s := range species {
		if j < len(reactants) {
			out.Reactants[j] = Term{Formula: s, Coefficient: coeffs[j]}
		} else {
			out.Products[j-len(reactants)] = Term{Formula: s, Coefficient: coeffs[j]}
		}
	}
	return out, nil
}

// CheckCoefficients reports whether Balance succeeds.
func CheckCoefficients(reactants, products []string) bool {
	_, err := Balance(reactants, products)
	return err == nil
}

// nullSpace returns a basis of {x : m·x = 0} via reduced row echelon form.
// m is modified in place.
func nullSpace(m [][]*big.Rat, cols int) [][]*big.Rat {
	pivotCols := make([]int, 0, cols)
	row := 0
	for col := 0; col < cols && row < len(m); col++ {
		p := -1
		for r := row; r < len(m); r++ {
			if m[r][col].Sign() != 0 {
				p = r
				break
			}
		}
		if p < 0 {
			continue
		}
		m[row], m[p] = m[p], m[row]

		inv := new(big.Rat).Inv(m[row][col])
		for c := col; c < cols; c++ {
			m[row][c].Mul(m[row][c], inv)
		}
		for r := range m {
			if r == row || m[r][col].Sign() == 0 {
				continue
			}
			factor := new(big.Rat).Set(m[r][col])
			for c := col; c < cols; c++ {
				m[r][c].Sub(m[r][c], new(big.Rat).Mul(factor, m[row][c]))
			}
		}
		pivotCols = append(pivotCols, col)
		row++
	}

	isPivot := make([]bool, cols)
	for _, c := range pivotCols {
		isPivot[c] = true
	}

	var basis [][]*big.Rat
	for free := 0; free < cols; free++ {
		if isPivot[free] {
			continue
		}
		v := make([]*big.Rat, cols)
		for i := range v {
			v[i] = new(big.Rat)
		}
		v[free].SetInt64(1)
		for r, pc := range pivotCols {
			v[pc].Neg(m[r][free])
		}
		basis = append(basis, v)
	}
	return basis
}

// scaleToIntegers scales v to the smallest positive integer vector. It fails
// when an entry is zero or the signs are mixed.
func scaleToIntegers(v []*big.Rat) ([]int64, bool) {
	sign := v[0].Sign()
	if sign == 0 {
		return nil, false
	}
	lcm := big.NewInt(1)
	for _, x := range v {
		if x.Sign() != sign {
			return nil, false
		}
		d := x.Denom()
		g := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Mul(lcm, new(big.Int).Quo(d, g))
	}

	ints := make([]*big.Int, len(v))
	gcd := new(big.Int)
	for i, x := range v {
		n := new(big.Int).Mul(x.Num(), new(big.Int).Quo(lcm, x.Denom()))
		n.Abs(n)
		ints[i] = n
		gcd.GCD(nil, nil, gcd, n)
	}

	out := make([]int64, len(v))
	for i, n := range ints {
		q := new(big.Int).Quo(n, gcd)
		if !q.IsInt64() {
			return nil, false
		}
		out[i] = q.Int64()
	}
	return out, true
}

package reaction

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/turtacn/alchemist/internal/domain/stoich"
	"github.com/turtacn/alchemist/internal/domain/thermo"
	apperrors "github.com/turtacn/alchemist/pkg/errors"
)

// Default search bounds.
const (
	DefaultMaxCandidates = 12
	DefaultMaxSize       = 6
)

// ErrNoReactionFound is returned when no candidate product set balances.
var ErrNoReactionFound = apperrors.New(apperrors.CodeNoReactionFound, "no balanced reaction found")

// Options bounds a prediction. Zero values take the defaults.
type Options struct {
	MaxCandidates int
	MaxSize       int
	Unit          Unit
}

func (o Options) withDefaults() Options {
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.Unit == "" {
		o.Unit = UnitKJ
	}
	return o
}

// Prediction is the best reaction found plus search statistics.
type Prediction struct {
	Reaction     Reaction       `json:"reaction" yaml:"reaction"`
	DeltaG       float64        `json:"delta_g" yaml:"delta_g"`
	Unit         Unit           `json:"unit" yaml:"unit"`
	Candidates   []string       `json:"candidates" yaml:"candidates"`
	Combinations int            `json:"combinations" yaml:"combinations"`
	Valid        int            `json:"valid" yaml:"valid"`
	Attempts     map[string]int `json:"attempts" yaml:"attempts"`
}

// AttemptOK is the Attempts key for successful balances.
const AttemptOK = "ok"

// Predictor runs the bounded generate-and-test search.
type Predictor struct {
	thermo *thermo.Table
	filter *stoich.Filter
}

// NewPredictor returns a Predictor over the given tables.
func NewPredictor(t *thermo.Table, f *stoich.Filter) *Predictor {
	return &Predictor{thermo: t, filter: f}
}

// Predict returns the balanced reaction of minimum ΔG whose products are
// drawn from the composition table and use exactly the reactants' elements.
// Combinations are tried smallest first in lexicographic order and the first
// minimum wins, so results are deterministic for fixed tables and options.
func (p *Predictor) Predict(ctx context.Context, reactants []string, opts Options) (*Prediction, error) {
	opts = opts.withDefaults()
	if len(reactants) == 0 {
		return nil, apperrors.InvalidParam("at least one reactant is required")
	}

	stated, err := predictStates(p.thermo, reactants)
	if err != nil {
		return nil, err
	}

	candidates, err := p.filter.Candidates(stated, stoich.Options{})
	if err != nil {
		return nil, err
	}
	if len(candidates) > opts.MaxCandidates {
		candidates, err = p.rankByEnergyDensity(candidates)
		if err != nil {
			return nil, err
		}
		candidates = candidates[:opts.MaxCandidates]
	}

	want, err := stoich.UniqueElements(stated)
	if err != nil {
		return nil, err
	}

	maxSize := opts.MaxSize
	if n := len(reactants) + 3; n < maxSize {
		maxSize = n
	}

	result := &Prediction{
		Unit:       opts.Unit,
		Candidates: candidates,
		Attempts:   map[string]int{},
	}
	var best *Balanced
	bestG := math.Inf(1)

	for size := 1; size < maxSize && size <= len(candidates); size++ {
		it := newCombinations(len(candidates), size)
		for idx := it.next(); idx != nil; idx = it.next() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			products := make([]string, len(idx))
			for i, j := range idx {
				products[i] = candidates[j]
			}
			got, err := stoich.UniqueElements(products)
			if err != nil {
				return nil, err
			}
			if !got.Equal(want) {
				continue
			}
			result.Combinations++

			bal, err := Balance(stated, products)
			if err != nil {
				var be *BalanceError
				if errors.As(err, &be) {
					result.Attempts[string(be.Reason)]++
					continue
				}
				return nil, err
			}
			result.Attempts[AttemptOK]++
			result.Valid++

			g, err := deltaG(p.thermo, bal, opts.Unit)
			if err != nil {
				return nil, err
			}
			if g < bestG {
				best, bestG = bal, g
			}
		}
	}

	if best == nil {
		return nil, ErrNoReactionFound.WithDetail(strings.Join(stated, " + "))
	}
	result.Reaction = best.Reaction()
	result.DeltaG = bestG
	return result, nil
}

// rankByEnergyDensity stable-sorts candidates by G/mass ascending.
func (p *Predictor) rankByEnergyDensity(candidates []string) ([]string, error) {
	type scored struct {
		formula string
		ratio   float64
	}
	rows := make([]scored, len(candidates))
	for i, c := range candidates {
		s, err := p.thermo.Resolve(c)
		if err != nil {
			return nil, err
		}
		ratio := math.Inf(1)
		if s.Mass > 0 {
			ratio = s.G / s.Mass
		}
		rows[i] = scored{formula: c, ratio: ratio}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ratio < rows[j].ratio })
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.formula
	}
	return out, nil
}

// combinations yields k-subsets of [0, n) in lexicographic order.
type combinations struct {
	n, k  int
	idx   []int
	first bool
}

func newCombinations(n, k int) *combinations {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	return &combinations{n: n, k: k, idx: idx, first: true}
}

// next returns the next subset, or nil when exhausted. The returned slice is
// reused between calls.
func (c *combinations) next() []int {
	if c.k > c.n || c.k == 0 {
		return nil
	}
	if c.first {
		c.first = false
		return c.idx
	}
	i := c.k - 1
	for i >= 0 && c.idx[i] == c.n-c.k+i {
		i--
	}
	if i < 0 {
		return nil
	}
	c.idx[i]++
	for j := i + 1; j < c.k; j++ {
		c.idx[j] = c.idx[j-1] + 1
	}
	return c.idx
}

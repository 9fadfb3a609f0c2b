package reaction

import (
	"github.com/turtacn/alchemist/internal/domain/thermo"
	"github.com/turtacn/alchemist/pkg/errors"
)

// Unit is the energy unit of a reported ΔG.
type Unit string

const (
	UnitKJ Unit = "kJ"
	UnitJ  Unit = "J"
)

// ParseUnit maps "" to kJ and rejects anything but kJ or J.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case "", UnitKJ:
		return UnitKJ, nil
	case UnitJ:
		return UnitJ, nil
	}
	return "", errors.InvalidParam("unknown energy unit").WithDetail(s)
}

// GibbsEnergy is the ΔG of a balanced reaction.
type GibbsEnergy struct {
	Reaction Reaction `json:"reaction"`
	DeltaG   float64  `json:"delta_g"`
	Unit     Unit     `json:"unit"`
}

// StandardGibbsEnergy state-normalises both sides, balances them and returns
// ΔG = Σ G·coef(products) − Σ G·coef(reactants).
func StandardGibbsEnergy(t *thermo.Table, reactants, products []string, unit Unit) (*GibbsEnergy, error) {
	r, err := predictStates(t, reactants)
	if err != nil {
		return nil, err
	}
	p, err := predictStates(t, products)
	if err != nil {
		return nil, err
	}
	bal, err := Balance(r, p)
	if err != nil {
		return nil, err
	}
	dg, err := deltaG(t, bal, unit)
	if err != nil {
		return nil, err
	}
	return &GibbsEnergy{Reaction: bal.Reaction(), DeltaG: dg, Unit: unit}, nil
}

func predictStates(t *thermo.Table, fs []string) ([]string, error) {
	out := make([]string, len(fs))
	for i, f := range fs {
		s, err := t.PredictState(f)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func deltaG(t *thermo.Table, bal *Balanced, unit Unit) (float64, error) {
	var sum float64
	for _, term := range bal.Products {
		g, err := t.Value(term.Formula, thermo.FieldG)
		if err != nil {
			return 0, err
		}
		sum += g * float64(term.Coefficient)
	}
	for _, term := range bal.Reactants {
		g, err := t.Value(term.Formula, thermo.FieldG)
		if err != nil {
			return 0, err
		}
		sum -= g * float64(term.Coefficient)
	}
	if unit != UnitJ {
		sum /= 1000
	}
	return sum, nil
}

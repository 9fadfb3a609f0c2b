package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/pkg/errors"
)

func TestSplitState(t *testing.T) {
	tests := []struct {
		in, base, state string
	}{
		{"NaCl(aq)", "NaCl", "aq"},
		{"Al2O3(s)", "Al2O3", "s"},
		{"O2(g)", "O2", "g"},
		{"H2O(l)", "H2O", "l"},
		{"CH4", "CH4", ""},
		{"Ca(OH)2(s)", "Ca(OH)2", "s"},
		{"Ca(OH)2", "Ca(OH)2", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			base, state := SplitState(tt.in)
			assert.Equal(t, tt.base, base)
			assert.Equal(t, tt.state, state)
			assert.Equal(t, tt.base, SeparateState(tt.in))
			assert.Equal(t, tt.state != "", HasState(tt.in))
		})
	}
}

func TestSplitState_LeftInverse(t *testing.T) {
	bases := []string{"NaCl", "H2O", "Fe2O3", "C6H12O6", "Mg(NO3)2"}
	states := []string{"a", "g", "l", "s", "q", "aq", "gs"}
	for _, f := range bases {
		for _, s := range states {
			base, state := SplitState(WithState(f, s))
			assert.Equal(t, f, base)
			assert.Equal(t, s, state)
		}
	}
	assert.Equal(t, "NaCl", WithState("NaCl", ""))
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Composition
	}{
		{"H2O", Composition{1: 2, 8: 1}},
		{"CH4", Composition{1: 4, 6: 1}},
		{"Al2O3(s)", Composition{8: 3, 13: 2}},
		{"Ca(OH)2", Composition{1: 2, 8: 2, 20: 1}},
		{"K4[Fe(CN)6]", Composition{6: 6, 7: 6, 19: 4, 26: 1}},
		{"CuSO4.5H2O", Composition{1: 10, 8: 9, 16: 1, 29: 1}},
		{"Na+", Composition{0: 1, 11: 1}},
		{"Cl-", Composition{0: -1, 17: 1}},
		{"CO3-2", Composition{0: -2, 6: 1, 8: 3}},
		{"Fe+3(aq)", Composition{0: 3, 26: 1}},
		{"Og", Composition{118: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "h2o", "Xx2", "Ca(OH", "CaOH)2", "+", "-2", "H2O+0", "Na$"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeFormulaInvalid))
			assert.ErrorIs(t, err, ErrInvalidFormula)
		})
	}
}

func TestComposition_Elements(t *testing.T) {
	assert.Equal(t, []int{1, 6}, MustParse("CH4").Elements())
	assert.Equal(t, []int{0, 6, 8}, MustParse("CO3-2").Elements())
}

func TestComposition_String(t *testing.T) {
	assert.Equal(t, "CH4", MustParse("CH4").String())
	assert.Equal(t, "C2H6O", MustParse("CH3CH2OH").String())
	assert.Equal(t, "Al2O3", MustParse("Al2O3").String())
	assert.Equal(t, "H2O", MustParse("H2O").String())
	assert.Equal(t, "Na+", MustParse("Na+").String())
	assert.Equal(t, "CO3-2", MustParse("CO3-2").String())
	assert.Equal(t, "Fe+3", MustParse("Fe+3").String())
}

func TestComposition_Equal(t *testing.T) {
	assert.True(t, MustParse("CH3CH2OH").Equal(MustParse("C2H6O")))
	assert.False(t, MustParse("CO3-2").Equal(MustParse("CO3")))
	assert.True(t, Composition{1: 2, 8: 0}.Equal(Composition{1: 2}))
}

func TestSymbolAtomicNumber(t *testing.T) {
	assert.Equal(t, "H", Symbol(1))
	assert.Equal(t, "Al", Symbol(13))
	assert.Equal(t, "Og", Symbol(118))
	assert.Equal(t, "", Symbol(0))
	assert.Equal(t, "", Symbol(119))

	z, ok := AtomicNumber("Fe")
	assert.True(t, ok)
	assert.Equal(t, 26, z)
	_, ok = AtomicNumber("Zz")
	assert.False(t, ok)
	assert.Equal(t, 118, MaxAtomicNumber)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("not a formula") })
}

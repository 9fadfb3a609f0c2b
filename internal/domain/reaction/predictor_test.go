package reaction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/internal/domain/formula"
	"github.com/turtacn/alchemist/internal/domain/reaction"
	"github.com/turtacn/alchemist/internal/domain/stoich"
	"github.com/turtacn/alchemist/internal/domain/thermo"
	"github.com/turtacn/alchemist/internal/testutil"
	apperrors "github.com/turtacn/alchemist/pkg/errors"
)

func newPredictor(t *testing.T) *reaction.Predictor {
	th, _, f := testutil.Tables(t)
	return reaction.NewPredictor(th, f)
}

func TestPredict_Alumina(t *testing.T) {
	p := newPredictor(t)

	got, err := p.Predict(context.Background(), []string{"Al", "O2"}, reaction.Options{})
	require.NoError(t, err)

	assert.Equal(t, "4 Al(s) + 3 O2(g) → 2 Al2O3(s)", got.Reaction.String())
	assert.InDelta(t, -3164.6, got.DeltaG, 1e-9)
	assert.Equal(t, reaction.UnitKJ, got.Unit)
	assert.Equal(t, []string{"O(g)", "O3(g)", "Al2O3(s)", "AlO(g)", "Al2O(g)"}, got.Candidates)
	assert.Equal(t, 27, got.Combinations)
	assert.Equal(t, 3, got.Valid)
	assert.Equal(t, 3, got.Attempts[reaction.AttemptOK])
	assert.Equal(t, 24, got.Attempts[string(reaction.ReasonUnderdetermined)])
}

func TestPredict_Deterministic(t *testing.T) {
	p := newPredictor(t)
	ctx := context.Background()

	first, err := p.Predict(ctx, []string{"CH4", "H2O"}, reaction.Options{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Predict(ctx, []string{"CH4", "H2O"}, reaction.Options{})
		require.NoError(t, err)
		assert.Equal(t, first.Reaction, again.Reaction)
		assert.Equal(t, first.DeltaG, again.DeltaG)
	}
	assert.True(t, reaction.CheckCoefficients(first.Reaction.ReactantFormulas(), first.Reaction.ProductFormulas()))
}

func TestPredict_JouleUnit(t *testing.T) {
	p := newPredictor(t)

	got, err := p.Predict(context.Background(), []string{"Al", "O2"}, reaction.Options{Unit: reaction.UnitJ})
	require.NoError(t, err)
	assert.InDelta(t, -3164600, got.DeltaG, 1e-6)
}

func TestPredict_CandidateCapRanksByEnergyDensity(t *testing.T) {
	p := newPredictor(t)

	got, err := p.Predict(context.Background(), []string{"Al", "O2"}, reaction.Options{MaxCandidates: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Al2O3(s)", "Al2O(g)"}, got.Candidates)
	assert.Equal(t, "4 Al(s) + 3 O2(g) → 2 Al2O3(s)", got.Reaction.String())
}

func TestPredict_NoReaction(t *testing.T) {
	th, err := thermo.NewTable([]thermo.Species{
		{Formula: "Na(s)", G: 0, Mass: 22.99},
		{Formula: "Na+(aq)", G: -261900, Mass: 22.99},
	})
	require.NoError(t, err)
	st, err := stoich.NewTable([]stoich.Entry{
		{Formula: "Na(s)", Composition: formula.MustParse("Na")},
		{Formula: "Na+(aq)", Composition: formula.MustParse("Na+")},
	})
	require.NoError(t, err)
	p := reaction.NewPredictor(th, stoich.NewFilter(st, th))

	_, err = p.Predict(context.Background(), []string{"Na"}, reaction.Options{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNoReactionFound))
	assert.ErrorIs(t, err, reaction.ErrNoReactionFound)
}

func TestPredict_UnknownReactant(t *testing.T) {
	p := newPredictor(t)

	_, err := p.Predict(context.Background(), []string{"Xe", "O2"}, reaction.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, thermo.ErrFormulaNotFound)
}

func TestPredict_EmptyReactants(t *testing.T) {
	p := newPredictor(t)
	_, err := p.Predict(context.Background(), nil, reaction.Options{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
}

func TestPredict_ContextCancelled(t *testing.T) {
	p := newPredictor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Predict(ctx, []string{"Al", "O2"}, reaction.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

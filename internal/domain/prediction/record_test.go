package prediction

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/pkg/errors"
)

func TestNewRecord(t *testing.T) {
	in := []string{"Al", "O2"}
	r := NewRecord("", in)
	in[0] = "X"

	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, []string{"Al", "O2"}, r.Reactants)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestRecord_Lifecycle(t *testing.T) {
	r := NewRecord("", []string{"Al", "O2"})
	require.NoError(t, r.Start())
	assert.Equal(t, StatusRunning, r.Status)

	require.NoError(t, r.Complete(Outcome{
		Reaction:     "4 Al(s) + 3 O2(g) → 2 Al2O3(s)",
		DeltaG:       -3164.6,
		Unit:         "kJ",
		Combinations: 27,
		Attempts:     map[string]int{"ok": 3},
	}))
	assert.Equal(t, StatusCompleted, r.Status)
	require.NotNil(t, r.DeltaG)
	assert.InDelta(t, -3164.6, *r.DeltaG, 1e-9)
	assert.NotNil(t, r.CompletedAt)

	err := r.Fail(errors.New(errors.CodeInternal, "late"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecord_Fail(t *testing.T) {
	r := NewRecord("text", nil)
	require.NoError(t, r.Fail(errors.New(errors.CodeNoReactionFound, "no balanced reaction found")))

	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "CHEM_005", r.ErrorCode)
	assert.Contains(t, r.Error, "no balanced reaction")
	assert.True(t, r.Status.IsTerminal())
}

func TestRecord_StartTwice(t *testing.T) {
	r := NewRecord("", []string{"H2"})
	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.Start(), ErrInvalidTransition)
}

func TestEvents(t *testing.T) {
	r := NewRecord("", []string{"Na", "Cl2"})
	req := NewRequestedEvent(r, 5, "J")
	assert.Equal(t, r.ID, req.PredictionID)
	assert.Equal(t, 5, req.MaxCandidates)
	assert.Equal(t, "J", req.Unit)
	assert.NotEmpty(t, req.EventID)

	require.NoError(t, r.Fail(errors.New(errors.CodeBalanceFailed, "x")))
	done := NewCompletedEvent(r)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Equal(t, "CHEM_004", done.ErrorCode)
}

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"formula not found", errors.CodeFormulaNotFound, "XeF8 not found"},
		{"invalid param", errors.CodeInvalidParam, "reactants must not be empty"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestAppError_ErrorFormat(t *testing.T) {
	ae := errors.New(errors.CodeFormulaNotFound, "formula not found")
	assert.Equal(t, "[CHEM_001] formula not found", ae.Error())

	withDetail := ae.WithDetail("XeF8")
	assert.Equal(t, "[CHEM_001] formula not found: XeF8", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "noop"))
}

func TestWrap_PreservesCodeWhenUnknown(t *testing.T) {
	inner := errors.New(errors.CodeBalanceFailed, "underdetermined")
	outer := errors.Wrap(inner, errors.CodeUnknown, "scoring failed")

	assert.Equal(t, errors.CodeBalanceFailed, outer.Code)
	assert.True(t, stderrors.Is(outer, inner))
}

func TestIsCode_TraversesStdlibWrapping(t *testing.T) {
	inner := errors.New(errors.CodeNoReactionFound, "nothing balanced")
	wrapped := fmt.Errorf("predict: %w", inner)

	assert.True(t, errors.IsCode(wrapped, errors.CodeNoReactionFound))
	assert.False(t, errors.IsCode(wrapped, errors.CodeInternal))
	assert.Equal(t, errors.CodeNoReactionFound, errors.GetCode(wrapped))
}

func TestIs_MatchesSentinelAfterWithDetail(t *testing.T) {
	sentinel := errors.New(errors.CodeFormulaNotFound, "formula not found")
	err := sentinel.WithDetail("Unobtainium")

	assert.True(t, stderrors.Is(err, sentinel))
	assert.False(t, stderrors.Is(err, errors.New(errors.CodeFormulaInvalid, "x")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, errors.IsNotFound(errors.NotFound("missing")))
	assert.True(t, errors.IsNotFound(errors.New(errors.CodeFormulaNotFound, "missing")))
	assert.True(t, errors.IsNotFound(errors.New(errors.CodeNameUnresolved, "missing")))
	assert.False(t, errors.IsNotFound(errors.Internal("boom")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeRateLimit, errors.GetCode(errors.RateLimit("slow down")))
}

package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseApiSurface(t *testing.T) {
	tests := []struct {
		input   string
		want    ApiSurface
		wantErr bool
	}{
		{"tables", SurfaceTables, false},
		{" Collections ", SurfaceCollections, false},
		{"TABLES", SurfaceTables, false},
		{"graph", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseApiSurface(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValueClass(t *testing.T) {
	for _, vc := range AllValueClasses {
		got, err := ParseValueClass(vc.String())
		require.NoError(t, err)
		assert.Equal(t, vc, got)
	}

	got, err := ParseValueClass("NaN")
	require.NoError(t, err)
	assert.Equal(t, ValueNaN, got)

	_, err = ParseValueClass("complex")
	require.Error(t, err)
}

func TestResultStateLabel(t *testing.T) {
	assert.Equal(t, "PASS", StatePass.Label())
	assert.Equal(t, "FAIL", StateFail.Label())
	assert.Equal(t, "EXPECTED FAIL", StateExpectedFail.Label())
	assert.Equal(t, "UNEXPECTED PASS", StateUnexpectedPass.Label())
	assert.Equal(t, "UNKNOWN", ResultState("x").Label())
}

func TestResultStateIsViolation(t *testing.T) {
	assert.False(t, StatePass.IsViolation())
	assert.False(t, StateExpectedFail.IsViolation())
	assert.True(t, StateFail.IsViolation())
	assert.True(t, StateUnexpectedPass.IsViolation())
}

func TestTestCaseFixture(t *testing.T) {
	tc := TestCase{Name: "Tables: insert null vector (dim=8)", ValueClass: ValueNull}
	assert.Equal(t, "null", tc.Fixture())
	assert.Equal(t, tc.Name, tc.String())

	tc.ValueClass = ValueWrongDimension
	tc.Variant = VariantShort
	assert.Equal(t, "wrong-dimension/short", tc.Fixture())
}

func TestOutcome(t *testing.T) {
	var zero Outcome
	assert.False(t, zero.Succeeded())

	ok := OutcomeOf("inserted 1 row", nil)
	assert.True(t, ok.Succeeded())
	assert.Equal(t, "inserted 1 row", ok.Message())

	failed := OutcomeOf("ignored", errors.New("dimension mismatch"))
	assert.False(t, failed.Succeeded())
	assert.Equal(t, "dimension mismatch", failed.Message())
	assert.Empty(t, failed.Detail)

	assert.Equal(t, Failure("x"), Outcome{Kind: OutcomeFailure, Error: "x"})
	assert.Equal(t, Success("y"), Outcome{Kind: OutcomeSuccess, Detail: "y"})
}

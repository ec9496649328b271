package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

func TestParseTemporalScope(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		scopeType ScopeType
		view      ScopeView
		effective string
	}{
		{
			name:      "bare year is an interval",
			expr:      "2023",
			scopeType: ScopeInterval,
			view:      ScopeView{Type: "interval", Start: "2023-01-01", End: "2023-12-31"},
			effective: "2023-12-31",
		},
		{
			name:      "literal date",
			expr:      "2024-02-29",
			scopeType: ScopeDate,
			view:      ScopeView{Type: "date", Date: "2024-02-29"},
			effective: "2024-02-29",
		},
		{
			name:      "current is today",
			expr:      "  Current ",
			scopeType: ScopeDate,
			view:      ScopeView{Type: "date", Date: "2025-03-14"},
			effective: "2025-03-14",
		},
		{
			name:      "last year",
			expr:      "last year",
			scopeType: ScopeInterval,
			view:      ScopeView{Type: "interval", Start: "2024-01-01", End: "2024-12-31"},
			effective: "2024-12-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := ParseTemporalScope(tt.expr, today)
			require.NoError(t, err)
			assert.Equal(t, tt.scopeType, scope.Type)
			assert.Equal(t, tt.view, scope.View())
			assert.Equal(t, tt.effective, scope.EffectiveDate().Format(DateLayout))
		})
	}
}

func TestParseTemporalScope_Invalid(t *testing.T) {
	for _, expr := range []string{"not-a-date", "", "2023-13-01", "2023-02-30", "yesterday", "23"} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseTemporalScope(expr, today)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-06-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("30/06/2023")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTemporalScope_String(t *testing.T) {
	scope, err := ParseTemporalScope("2023", today)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01..2023-12-31", scope.String())
}

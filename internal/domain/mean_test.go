package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   float64
	}{
		{"whole numbers", []string{"10", "12", "11"}, 11.0},
		{"single value", []string{"7"}, 7.0},
		{"repeating fraction", []string{"1", "2", "2"}, 1.7},
		{"half rounds up", []string{"1.2", "1.3"}, 1.3},
		{"negative half rounds away from zero", []string{"-1.2", "-1.3"}, -1.3},
		{"negative quarter rounds away from zero", []string{"-0.2", "-0.3"}, -0.3},
		{"positive quarter rounds away from zero", []string{"0.2", "0.3"}, 0.3},
		{"negative below half rounds toward zero", []string{"-0.2", "-0.2", "-0.3"}, -0.2},
		{"float drift free", []string{"0.1", "0.2"}, 0.2},
		{"mixed signs", []string{"-3", "2", "4"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Mean(decimals(tt.values...))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMean_Empty(t *testing.T) {
	_, err := Mean(nil)
	require.ErrorIs(t, err, ErrEmptySample)
}

func TestReading(t *testing.T) {
	var cells []Reading
	require.NoError(t, unmarshal(`["12", 13, "", null, " 4.5 ", "-"]`, &cells))
	require.Len(t, cells, 6)

	v, ok := cells[0].Decimal()
	assert.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(12)))

	v, ok = cells[1].Decimal()
	assert.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(13)))

	_, ok = cells[2].Decimal()
	assert.False(t, ok)
	_, ok = cells[3].Decimal()
	assert.False(t, ok)

	v, ok = cells[4].Decimal()
	assert.True(t, ok)
	assert.Equal(t, "4.5", v.String())

	_, ok = cells[5].Decimal()
	assert.False(t, ok)
}

package domain

import "github.com/shopspring/decimal"

// Mean returns the arithmetic mean of values rounded half away from zero to one
// decimal place. An empty sample is ErrEmptySample, never zero.
func Mean(values []decimal.Decimal) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptySample
	}
	sum := decimal.Sum(values[0], values[1:]...)
	mean := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(1)
	f, _ := mean.Float64()
	return f, nil
}

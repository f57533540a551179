package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AggregateWindSpeeds averages, for each sub-region, the maximum wind speed over
// land across every target-date time cell of the wind probability series. If
// the target date is absent the error wraps ErrTargetDateMissing. A sub-region
// whose cells are malformed or blank is reported as an issue and left out.
func AggregateWindSpeeds(doc ProbabilityDocument, target Date) (map[string]float64, []SubRegionIssue, error) {
	series, err := doc.WindSeries()
	if err != nil {
		return nil, nil, err
	}
	indices, err := ResolveDateIndices(series.TimeDefines, target)
	if err != nil {
		return nil, nil, fmt.Errorf("wind series: %w", err)
	}
	if len(indices) == 0 {
		return nil, nil, fmt.Errorf("wind series: %w: %s", ErrTargetDateMissing, target)
	}

	speeds := make(map[string]float64, len(series.Areas))
	var issues []SubRegionIssue
areas:
	for _, area := range series.Areas {
		values := make([]decimal.Decimal, 0, len(indices))
		for _, i := range indices {
			r, err := area.MaxWindOverLand(i)
			if err != nil {
				issues = append(issues, SubRegionIssue{SubRegionID: area.Code, Metric: MetricWindSpeed, Err: err})
				continue areas
			}
			if v, ok := r.Decimal(); ok {
				values = append(values, v)
			}
		}
		mean, err := Mean(values)
		if err != nil {
			issues = append(issues, SubRegionIssue{SubRegionID: area.Code, Metric: MetricWindSpeed, Err: err})
			continue
		}
		speeds[area.Code] = mean
	}
	return speeds, issues, nil
}

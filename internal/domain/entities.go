package domain

// Region is a top-level JMA division (source term: center).
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Prefecture is a forecast office area (source term: office).
type Prefecture struct {
	ID       string `json:"id"`
	RegionID string `json:"region_id"`
	Name     string `json:"name"`
}

// SubRegion is the forecast and warning aggregation unit (source term: class10).
type SubRegion struct {
	ID           string `json:"id"`
	PrefectureID string `json:"prefecture_id"`
	Name         string `json:"name"`
}

// City is a municipality (source term: class20), flattened onto its sub-region.
type City struct {
	ID           string `json:"id"`
	PrefectureID string `json:"prefecture_id"`
	SubRegionID  string `json:"sub_region_id"`
	Name         string `json:"name"`
}

// Station is an AMeDAS observation point attached to a sub-region through its city.
type Station struct {
	ID          string `json:"id"`
	SubRegionID string `json:"sub_region_id"`
}

// ForecastRecord is the target-date forecast for one sub-region. Metrics missing
// from their source series stay nil (WeatherCode empty).
type ForecastRecord struct {
	SubRegionID    string   `json:"sub_region_id"`
	WeatherCode    string   `json:"weather_code,omitempty"`
	MinTemperature *float64 `json:"min_temperature,omitempty"`
	MaxTemperature *float64 `json:"max_temperature,omitempty"`
	WindSpeed      *float64 `json:"wind_speed,omitempty"`
}

// WarningRecord lists the whitelisted warnings active in one sub-region.
type WarningRecord struct {
	SubRegionID string   `json:"sub_region_id"`
	Warnings    []string `json:"warnings"`
}

// Package domain models the Japan Meteorological Agency (JMA) area master and
// the per-prefecture forecast, probability and warning documents.
//
// # Data Source
//
// All documents come from the JMA "bosai" JSON feed under https://www.jma.go.jp/bosai/.
// They are unauthenticated, published in Japan Standard Time, and carry no
// formal schema: positions inside arrays are part of the contract.
//
// # Area Hierarchy
//
// The area master (common/const/area.json) keys every level by a fixed-width code:
//
//	centers   010600   近畿地方       → Region
//	offices   280000   兵庫県         → Prefecture (parent: center)
//	class10s  280010   南部           → SubRegion  (parent: office)
//	class15s  280011   阪神           → intermediate, not stored (parent: class10)
//	class20s  2810000  神戸市         → City       (parent: class15)
//
// Cities are flattened to {prefecture, sub-region} by following the parent chain
// through class15. A broken chain is a master-data inconsistency and aborts the
// build; see [BuildHierarchy].
//
// Observation stations (AMeDAS) are listed per city in
// forecast/const/forecast_area.json as {class10, class20, amedas[]} and are
// attached to the sub-region of their city; see [AssociateStations].
//
// # Forecast Layout
//
// forecast/data/forecast/<office>.json is a list of reports. Report 0 is the
// three-day forecast:
//
//	timeSeries[0]  weatherCodes per sub-region, one slot per day
//	timeSeries[2]  temps per station, two slots per day: morning minimum then daytime maximum
//
// probability/data/probability/<office>.json, report 0, timeSeries[1] holds wind
// probabilities per sub-region. properties[3] is the maximum wind speed and each
// time cell's locals[0] is the value over land.
//
// warning/data/warning/<office>.json groups active warnings per sub-region in
// areaTypes[0].
//
// # Aggregation
//
// Only the target date (tomorrow in JST) is computed. Station temperatures and
// wind-speed cells are averaged per sub-region and rounded half away from zero to
// one decimal place using exact decimal arithmetic, so reruns over the same
// documents produce identical values.
package domain

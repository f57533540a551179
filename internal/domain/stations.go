package domain

import (
	"maps"
	"slices"
)

// UnmatchedStation is a station whose city is absent from the hierarchy.
type UnmatchedStation struct {
	StationID string
	CityID    string
}

// StationConflict is a station listed under more than one sub-region. The first
// association is kept.
type StationConflict struct {
	StationID string
	Kept      string
	Dropped   string
}

// StationAssociation is the result of AssociateStations.
type StationAssociation struct {
	Stations  []Station
	Excluded  []UnmatchedStation
	Conflicts []StationConflict
}

// AssociateStations attaches every station in the forecast-area document to the
// sub-region of its city. Stations whose city is unknown are excluded and
// reported instead of failing the run. Each station appears at most once in the
// result, which is sorted by station ID.
func AssociateStations(doc ForecastAreaDocument, cities map[string]City) StationAssociation {
	var res StationAssociation
	assigned := make(map[string]string)
	unmatched := make(map[string]string)

	for _, group := range slices.Sorted(maps.Keys(doc)) {
		for _, entry := range doc[group] {
			city, ok := cities[entry.Class20]
			for _, stationID := range entry.Amedas {
				if !ok {
					if _, seen := unmatched[stationID]; !seen {
						unmatched[stationID] = entry.Class20
					}
					continue
				}
				if kept, seen := assigned[stationID]; seen {
					if kept != city.SubRegionID {
						res.Conflicts = append(res.Conflicts, StationConflict{
							StationID: stationID, Kept: kept, Dropped: city.SubRegionID,
						})
					}
					continue
				}
				assigned[stationID] = city.SubRegionID
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(assigned)) {
		res.Stations = append(res.Stations, Station{ID: id, SubRegionID: assigned[id]})
	}
	// A station matched through another city is not excluded.
	for _, id := range slices.Sorted(maps.Keys(unmatched)) {
		if _, ok := assigned[id]; ok {
			continue
		}
		res.Excluded = append(res.Excluded, UnmatchedStation{StationID: id, CityID: unmatched[id]})
	}
	return res
}

// StationIndex answers which sub-regions belong to a prefecture and which
// stations belong to a sub-region.
type StationIndex struct {
	subRegions map[string][]string
	stations   map[string][]string
}

// NewStationIndex builds an index from the stored sub-region and station tables.
func NewStationIndex(subRegions []SubRegion, stations []Station) *StationIndex {
	idx := &StationIndex{
		subRegions: make(map[string][]string),
		stations:   make(map[string][]string),
	}
	for _, s := range subRegions {
		idx.subRegions[s.PrefectureID] = append(idx.subRegions[s.PrefectureID], s.ID)
	}
	for _, s := range stations {
		idx.stations[s.SubRegionID] = append(idx.stations[s.SubRegionID], s.ID)
	}
	for k := range idx.subRegions {
		slices.Sort(idx.subRegions[k])
	}
	for k := range idx.stations {
		slices.Sort(idx.stations[k])
	}
	return idx
}

// SubRegions returns the sub-region IDs of a prefecture in ascending order.
func (x *StationIndex) SubRegions(prefectureID string) []string {
	return x.subRegions[prefectureID]
}

// Stations returns the station IDs of a sub-region in ascending order.
func (x *StationIndex) Stations(subRegionID string) []string {
	return x.stations[subRegionID]
}

// Empty reports whether the index has no stations at all.
func (x *StationIndex) Empty() bool {
	return len(x.stations) == 0
}

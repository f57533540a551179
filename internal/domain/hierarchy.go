package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Hierarchy is the flattened area master. Every slice is sorted by ID.
type Hierarchy struct {
	Regions     []Region
	Prefectures []Prefecture
	SubRegions  []SubRegion
	Cities      []City
}

// BuildHierarchy builds the four hierarchy tables from the area master.
//
// Each level is read independently, then parent codes are resolved through
// in-memory lookups. Any unresolved parent is a master-data inconsistency: all
// of them are collected and returned together wrapped in ErrMissingParent, and
// no partial hierarchy is returned.
func BuildHierarchy(doc AreaDocument) (Hierarchy, error) {
	var errs []error
	missing := func(kind, code, parentKind, parent string) {
		errs = append(errs, fmt.Errorf("%w: %s %s references unknown %s %q", ErrMissingParent, kind, code, parentKind, parent))
	}

	var h Hierarchy
	for _, code := range slices.Sorted(maps.Keys(doc.Centers)) {
		h.Regions = append(h.Regions, Region{ID: code, Name: doc.Centers[code].Name})
	}

	for _, code := range slices.Sorted(maps.Keys(doc.Offices)) {
		e := doc.Offices[code]
		if _, ok := doc.Centers[e.Parent]; !ok {
			missing("prefecture", code, "region", e.Parent)
			continue
		}
		h.Prefectures = append(h.Prefectures, Prefecture{ID: code, RegionID: e.Parent, Name: e.Name})
	}

	for _, code := range slices.Sorted(maps.Keys(doc.Class10s)) {
		e := doc.Class10s[code]
		if _, ok := doc.Offices[e.Parent]; !ok {
			missing("sub-region", code, "prefecture", e.Parent)
			continue
		}
		h.SubRegions = append(h.SubRegions, SubRegion{ID: code, PrefectureID: e.Parent, Name: e.Name})
	}

	for _, code := range slices.Sorted(maps.Keys(doc.Class20s)) {
		e := doc.Class20s[code]
		class15, ok := doc.Class15s[e.Parent]
		if !ok {
			missing("city", code, "class15 area", e.Parent)
			continue
		}
		subRegion, ok := doc.Class10s[class15.Parent]
		if !ok {
			missing("city", code, "sub-region", class15.Parent)
			continue
		}
		if _, ok := doc.Offices[subRegion.Parent]; !ok {
			// already reported against the sub-region
			continue
		}
		h.Cities = append(h.Cities, City{
			ID:           code,
			PrefectureID: subRegion.Parent,
			SubRegionID:  class15.Parent,
			Name:         e.Name,
		})
	}

	if len(errs) > 0 {
		return Hierarchy{}, errors.Join(errs...)
	}
	return h, nil
}

// CityIndex returns the cities keyed by ID.
func (h Hierarchy) CityIndex() map[string]City {
	idx := make(map[string]City, len(h.Cities))
	for _, c := range h.Cities {
		idx[c.ID] = c
	}
	return idx
}

package pipeline

import (
	"context"
	"fmt"
	"io"
)

// Phase is one group of integrity checks and the problems it found.
type Phase struct {
	Name     string
	Problems []string
}

func (p *Phase) problemf(format string, args ...any) {
	p.Problems = append(p.Problems, fmt.Sprintf(format, args...))
}

// Passed reports whether the phase found no problems.
func (p *Phase) Passed() bool { return len(p.Problems) == 0 }

// CheckReport is the result of Check.
type CheckReport struct {
	Phases []*Phase
	Counts map[string]int
}

// Passed reports whether every phase passed.
func (r CheckReport) Passed() bool {
	for _, p := range r.Phases {
		if !p.Passed() {
			return false
		}
	}
	return true
}

// Write prints a summary line per phase followed by the detailed problems.
func (r CheckReport) Write(w io.Writer) {
	for _, p := range r.Phases {
		status := "PASS"
		if !p.Passed() {
			status = fmt.Sprintf("FAIL (%d problems)", len(p.Problems))
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.Name, status)
	}
	fmt.Fprintf(w, "\nRows: %d regions, %d prefectures, %d sub-regions, %d cities, %d stations, %d forecasts, %d warnings\n",
		r.Counts["regions"], r.Counts["prefectures"], r.Counts["sub_regions"], r.Counts["cities"],
		r.Counts["stations"], r.Counts["forecasts"], r.Counts["warnings"])

	for _, p := range r.Phases {
		if p.Passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.Name)
		for i, e := range p.Problems {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}
}

// Check verifies the stored tables reference each other consistently.
func Check(ctx context.Context, store Store) (CheckReport, error) {
	regions, err := store.Regions(ctx)
	if err != nil {
		return CheckReport{}, fmt.Errorf("load regions: %w", err)
	}
	prefectures, err := store.Prefectures(ctx)
	if err != nil {
		return CheckReport{}, fmt.Errorf("load prefectures: %w", err)
	}
	subRegions, err := store.SubRegions(ctx)
	if err != nil {
		return CheckReport{}, fmt.Errorf("load sub-regions: %w", err)
	}
	cities, err := store.Cities(ctx)
	if err != nil {
		return CheckReport{}, fmt.Errorf("load cities: %w", err)
	}
	stations, err := store.Stations(ctx)
	if err != nil {
		return CheckReport{}, fmt.Errorf("load stations: %w", err)
	}
	forecasts, err := store.Forecasts(ctx)
	if err != nil {
		return CheckReport{}, fmt.Errorf("load forecasts: %w", err)
	}
	warnings, err := store.Warnings(ctx)
	if err != nil {
		return CheckReport{}, fmt.Errorf("load warnings: %w", err)
	}

	regionIDs := make(map[string]bool, len(regions))
	for _, r := range regions {
		regionIDs[r.ID] = true
	}
	prefIDs := make(map[string]bool, len(prefectures))
	for _, p := range prefectures {
		prefIDs[p.ID] = true
	}
	subRegionPref := make(map[string]string, len(subRegions))
	for _, sr := range subRegions {
		subRegionPref[sr.ID] = sr.PrefectureID
	}

	hierarchy := &Phase{Name: "Hierarchy completeness"}
	for _, p := range prefectures {
		if !regionIDs[p.RegionID] {
			hierarchy.problemf("prefecture %s: unknown region %s", p.ID, p.RegionID)
		}
	}
	for _, sr := range subRegions {
		if !prefIDs[sr.PrefectureID] {
			hierarchy.problemf("sub-region %s: unknown prefecture %s", sr.ID, sr.PrefectureID)
		}
	}
	for _, c := range cities {
		pref, ok := subRegionPref[c.SubRegionID]
		switch {
		case !ok:
			hierarchy.problemf("city %s: unknown sub-region %s", c.ID, c.SubRegionID)
		case pref != c.PrefectureID:
			hierarchy.problemf("city %s: prefecture %s but sub-region %s belongs to %s", c.ID, c.PrefectureID, c.SubRegionID, pref)
		}
	}

	association := &Phase{Name: "Station association"}
	seen := make(map[string]bool, len(stations))
	for _, s := range stations {
		if seen[s.ID] {
			association.problemf("station %s: stored more than once", s.ID)
		}
		seen[s.ID] = true
		if _, ok := subRegionPref[s.SubRegionID]; !ok {
			association.problemf("station %s: unknown sub-region %s", s.ID, s.SubRegionID)
		}
	}

	records := &Phase{Name: "Record keys"}
	for _, f := range forecasts {
		if _, ok := subRegionPref[f.SubRegionID]; !ok {
			records.problemf("forecast %s: unknown sub-region", f.SubRegionID)
		}
		if f.WeatherCode == "" && f.MinTemperature == nil && f.MaxTemperature == nil && f.WindSpeed == nil {
			records.problemf("forecast %s: no metrics", f.SubRegionID)
		}
	}
	for _, w := range warnings {
		if _, ok := subRegionPref[w.SubRegionID]; !ok {
			records.problemf("warning %s: unknown sub-region", w.SubRegionID)
		}
		if len(w.Warnings) == 0 {
			records.problemf("warning %s: empty warning list", w.SubRegionID)
		}
	}

	return CheckReport{
		Phases: []*Phase{hierarchy, association, records},
		Counts: map[string]int{
			"regions":     len(regions),
			"prefectures": len(prefectures),
			"sub_regions": len(subRegions),
			"cities":      len(cities),
			"stations":    len(stations),
			"forecasts":   len(forecasts),
			"warnings":    len(warnings),
		},
	}, nil
}

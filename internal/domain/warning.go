package domain

import (
	"maps"
	"slices"
)

// statusLifted marks a warning that has been cancelled in the current report.
const statusLifted = "解除"

// Whitelist maps warning codes to display labels. It is copied on construction
// and never mutated.
type Whitelist struct {
	labels map[string]string
}

// NewWhitelist returns a whitelist holding a copy of labels.
func NewWhitelist(labels map[string]string) Whitelist {
	return Whitelist{labels: maps.Clone(labels)}
}

// DefaultWhitelist returns the warnings tracked when no override is configured.
func DefaultWhitelist() Whitelist {
	return NewWhitelist(map[string]string{
		"03": "大雨警報",
		"10": "大雨注意報",
		"14": "雷注意報",
		"15": "強風注意報",
		"16": "波浪注意報",
		"18": "洪水注意報",
		"20": "濃霧注意報",
		"21": "乾燥注意報",
		"24": "霜注意報",
	})
}

// Label returns the display label for code.
func (w Whitelist) Label(code string) (string, bool) {
	label, ok := w.labels[code]
	return label, ok
}

// Codes returns the tracked codes in ascending order.
func (w Whitelist) Codes() []string {
	return slices.Sorted(maps.Keys(w.labels))
}

// FilterWarnings keeps the whitelisted, active warnings of each sub-region.
// Labels are deduplicated and kept in first-seen order. Sub-regions left with
// no label produce no record.
func FilterWarnings(doc WarningDocument, whitelist Whitelist) ([]WarningRecord, error) {
	areas, err := doc.SubRegionAreas()
	if err != nil {
		return nil, err
	}
	var records []WarningRecord
	for _, area := range areas {
		var labels []string
		for _, w := range area.Warnings {
			if w.Status == statusLifted {
				continue
			}
			label, ok := whitelist.Label(w.Code)
			if !ok || slices.Contains(labels, label) {
				continue
			}
			labels = append(labels, label)
		}
		if len(labels) == 0 {
			continue
		}
		records = append(records, WarningRecord{SubRegionID: area.Code, Warnings: labels})
	}
	return records, nil
}

// MergeWarnings combines per-prefecture warning records. A sub-region seen more
// than once keeps the union of its labels. The result is sorted by sub-region.
func MergeWarnings(parts ...[]WarningRecord) []WarningRecord {
	byID := make(map[string]*WarningRecord)
	for _, part := range parts {
		for _, r := range part {
			existing, ok := byID[r.SubRegionID]
			if !ok {
				rec := WarningRecord{SubRegionID: r.SubRegionID, Warnings: slices.Clone(r.Warnings)}
				byID[r.SubRegionID] = &rec
				continue
			}
			for _, label := range r.Warnings {
				if !slices.Contains(existing.Warnings, label) {
					existing.Warnings = append(existing.Warnings, label)
				}
			}
		}
	}
	out := make([]WarningRecord, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, *byID[id])
	}
	return out
}

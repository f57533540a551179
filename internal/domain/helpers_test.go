package domain

import (
	"encoding/json"
	"time"
)

var may11 = Date{Year: 2024, Month: time.May, Day: 11}

func unmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

// testAreaDocument is a trimmed Hyogo slice of area.json.
func testAreaDocument() AreaDocument {
	return AreaDocument{
		Centers: map[string]AreaEntry{
			"010600": {Name: "近畿地方"},
		},
		Offices: map[string]AreaEntry{
			"280000": {Name: "兵庫県", Parent: "010600"},
		},
		Class10s: map[string]AreaEntry{
			"280010": {Name: "南部", Parent: "280000"},
			"280020": {Name: "北部", Parent: "280000"},
		},
		Class15s: map[string]AreaEntry{
			"280011": {Name: "阪神", Parent: "280010"},
			"280012": {Name: "播磨南東部", Parent: "280010"},
			"280021": {Name: "但馬北部", Parent: "280020"},
		},
		Class20s: map[string]AreaEntry{
			"2810000": {Name: "神戸市", Parent: "280011"},
			"2820100": {Name: "姫路市", Parent: "280012"},
			"2820900": {Name: "豊岡市", Parent: "280021"},
		},
	}
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterWarnings(t *testing.T) {
	t.Run("unknown code dropped", func(t *testing.T) {
		whitelist := NewWhitelist(map[string]string{"03": "heavy rain warning"})
		doc := WarningDocument{AreaTypes: []WarningAreaType{{Areas: []WarningArea{
			{Code: "280010", Warnings: []WarningEntry{{Code: "03"}, {Code: "99"}}},
		}}}}

		records, err := FilterWarnings(doc, whitelist)
		require.NoError(t, err)
		assert.Equal(t, []WarningRecord{{SubRegionID: "280010", Warnings: []string{"heavy rain warning"}}}, records)
	})

	t.Run("duplicates and lifted warnings", func(t *testing.T) {
		raw := `{
			"reportDatetime": "2024-05-10T16:32:00+09:00",
			"areaTypes": [
				{"areas": [
					{"code": "280010", "warnings": [
						{"code": "10", "status": "継続"},
						{"code": "14", "status": "発表"},
						{"code": "10", "status": "継続"},
						{"code": "15", "status": "解除"}
					]},
					{"code": "280020", "warnings": [{"code": "15", "status": "解除"}]},
					{"code": "280030"}
				]},
				{"areas": [{"code": "2810000", "warnings": [{"code": "03"}]}]}
			]
		}`
		var doc WarningDocument
		require.NoError(t, unmarshal(raw, &doc))

		records, err := FilterWarnings(doc, DefaultWhitelist())
		require.NoError(t, err)
		assert.Equal(t, []WarningRecord{{SubRegionID: "280010", Warnings: []string{"大雨注意報", "雷注意報"}}}, records)
	})

	t.Run("no area types", func(t *testing.T) {
		_, err := FilterWarnings(WarningDocument{}, DefaultWhitelist())
		require.ErrorIs(t, err, ErrSchema)
	})
}

func TestWhitelist_Immutable(t *testing.T) {
	labels := map[string]string{"03": "大雨警報"}
	w := NewWhitelist(labels)
	labels["99"] = "mutated"

	_, ok := w.Label("99")
	assert.False(t, ok)
	assert.Len(t, w.Codes(), 1)
	assert.Len(t, DefaultWhitelist().Codes(), 9)
	assert.Equal(t, []string{"03", "10", "14", "15", "16", "18", "20", "21", "24"}, DefaultWhitelist().Codes())
}

func TestMergeWarnings(t *testing.T) {
	merged := MergeWarnings(
		[]WarningRecord{{SubRegionID: "280020", Warnings: []string{"雷注意報"}}},
		[]WarningRecord{
			{SubRegionID: "130010", Warnings: []string{"大雨警報"}},
			{SubRegionID: "280020", Warnings: []string{"雷注意報", "濃霧注意報"}},
		},
	)
	assert.Equal(t, []WarningRecord{
		{SubRegionID: "130010", Warnings: []string{"大雨警報"}},
		{SubRegionID: "280020", Warnings: []string{"雷注意報", "濃霧注意報"}},
	}, merged)
}

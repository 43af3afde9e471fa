//go:build !integration

package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/metroscore/internal/ingest"
	"github.com/sells-group/metroscore/internal/model"
	"github.com/sells-group/metroscore/internal/store"
)

func ptrFloat64(v float64) *float64 { return &v }

func sampleResults() []model.CityScore {
	return []model.CityScore{
		{
			CityID: "denver-co", Name: "Denver", State: "CO", TotalScore: 61.25,
			Categories: model.CategoryScores{Climate: ptrFloat64(70), Cost: ptrFloat64(52.5)},
			Breakdown: []model.CategoryBreakdown{{
				Category: model.CategoryQualityOfLife,
				Score:    ptrFloat64(48),
				Weight:   0.5,
				Bonus:    ptrFloat64(3),
				Metrics: []model.MetricContribution{
					{Metric: "quality_of_life.violent_crime_rate", Label: "Violent crime", Raw: ptrFloat64(480), Score: ptrFloat64(48), Weight: 0.3, EffectiveWeight: 1},
					{Metric: "quality_of_life.walk_score", Label: "Walk score", Weight: 0.2, LowConfidence: true},
				},
			}},
		},
		{
			CityID: "tulsa-ok", Name: "Tulsa", State: "OK", TotalScore: 40,
			Excluded: true, ExclusionReason: "Must have an NFL team",
		},
	}
}

func TestLoadPreferences(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "me.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
weights:
  climate: 2
  cost: 1
housing: prospective_buyer
minority:
  subgroup: hispanic
  importance: 0.5
values:
  political_lean: 45
constraints:
  - kind: has_team
    league: NFL
  - kind: max_metric
    metric: cost.rpp_all
    value: 105
`), 0o644))

	p, err := loadPreferences(yamlPath)
	require.NoError(t, err)
	assert.InDelta(t, 2, p.Weights.Climate, 0.0001)
	assert.Equal(t, model.HousingBuyer, p.Housing)
	assert.Equal(t, model.WorkStandard, p.Work)
	require.NotNil(t, p.Minority)
	assert.Equal(t, model.SubgroupHispanic, p.Minority.Subgroup)
	require.NotNil(t, p.Values.PoliticalLean)
	assert.InDelta(t, 45, *p.Values.PoliticalLean, 0.0001)
	require.Len(t, p.Constraints, 2)
	assert.Equal(t, "cost.rpp_all must be at most 105", p.Constraints[1].Reason())

	jsonPath := filepath.Join(dir, "me.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"weights":{"cost":1},"work":"retiree"}`), 0o644))
	p, err = loadPreferences(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, model.WorkRetiree, p.Work)
	assert.Equal(t, model.HousingRenter, p.Housing)

	p, err = loadPreferences("")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPreferences(), p)
}

func TestLoadPreferences_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadPreferences(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read preferences")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("weights: [1, 2"), 0o644))
	_, err = loadPreferences(bad)
	assert.ErrorContains(t, err, "parse preferences")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("housing: squatter\n"), 0o644))
	_, err = loadPreferences(invalid)
	assert.ErrorContains(t, err, "unknown housing mode")
}

func TestFilterRecords(t *testing.T) {
	recs := []model.CityRecord{
		{City: model.City{ID: "denver-co", State: "CO"}},
		{City: model.City{ID: "tulsa-ok", State: "OK"}},
		{City: model.City{ID: "austin-tx", State: "TX"}},
	}

	tests := []struct {
		name   string
		filter store.CityFilter
		want   []string
	}{
		{"none", store.CityFilter{}, []string{"denver-co", "tulsa-ok", "austin-tx"}},
		{"ids", store.CityFilter{IDs: []string{"austin-tx", "denver-co"}}, []string{"denver-co", "austin-tx"}},
		{"states", store.CityFilter{States: []string{"ok", "TX"}}, []string{"tulsa-ok", "austin-tx"}},
		{"both", store.CityFilter{IDs: []string{"denver-co"}, States: []string{"TX"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range filterRecords(recs, tt.filter) {
				got = append(got, r.City.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"TX", "FL"}, splitAndTrim(" TX, ,FL "))
	assert.Nil(t, splitAndTrim(""))
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Quality Of Life", categoryLabel(model.CategoryQualityOfLife))
	assert.Equal(t, "Climate", categoryLabel(model.CategoryClimate))
	assert.Equal(t, "QoL", abbreviate("Quality Of Life"))
	assert.Equal(t, "Entertai", abbreviate("Entertainment"))
}

func TestWriteRankTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRankTable(&buf, sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "Rank")
	assert.Contains(t, out, "QoL")
	assert.Contains(t, out, "Denver")
	assert.Contains(t, out, "61.25")
	assert.Contains(t, out, "excluded: Must have an NFL team")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
}

func TestWriteRankCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRankCSV(&buf, sampleResults()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"rank", "city_id", "name", "state", "total_score", "climate", "cost", "demographics",
		"quality_of_life", "culture", "entertainment", "excluded", "exclusion_reason"}, rows[0])
	assert.Equal(t, "70.00", rows[1][5])
	assert.Equal(t, "", rows[1][7], "null category is blank")
	assert.Equal(t, "true", rows[2][11])
}

func TestWriteRankJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRankJSON(&buf, sampleResults()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	cats := got[0]["categories"].(map[string]any)
	assert.Contains(t, cats, "demographics")
	assert.Nil(t, cats["demographics"])
	_, hasReason := got[0]["exclusion_reason"]
	assert.False(t, hasReason)
}

func TestWriteExplain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeExplain(&buf, sampleResults()[0]))

	out := buf.String()
	assert.Contains(t, out, "Denver, CO (denver-co)")
	assert.Contains(t, out, "Total score: 61.25 / 100")
	assert.Contains(t, out, "Quality Of Life: 48.00 (weight 50%) incl. minority bonus +3.00")
	assert.Contains(t, out, "Violent crime")
	assert.Contains(t, out, "unknown")
	assert.Contains(t, out, "(low confidence)")
	assert.NotContains(t, out, "Excluded")
}

func TestRankCommand_Snapshot(t *testing.T) {
	testConfig(t)
	snap := writeSnapshot(t)

	out, err := execute(t, rankCmd, map[string]string{
		"snapshot": snap,
		"format":   "csv",
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, r := range rows[1:] {
		assert.Equal(t, "false", r[11])
	}
}

func TestRankCommand_ConstraintAndTop(t *testing.T) {
	testConfig(t)
	snap := writeSnapshot(t)
	prefs := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(prefs, []byte("constraints:\n  - kind: has_team\n    league: NBA\n"), 0o644))

	out, err := execute(t, rankCmd, map[string]string{
		"snapshot": snap,
		"prefs":    prefs,
		"format":   "json",
		"top":      "1",
	})
	require.NoError(t, err)

	var got []model.CityScore
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "denver-co", got[0].CityID)
	assert.False(t, got[0].Excluded)
}

func TestRankCommand_Explain(t *testing.T) {
	testConfig(t)
	snap := writeSnapshot(t)

	out, err := execute(t, rankCmd, map[string]string{"snapshot": snap, "explain": "tulsa-ok"})
	require.NoError(t, err)
	assert.Contains(t, out, "Tulsa, OK (tulsa-ok)")
	assert.Contains(t, out, "Climate")

	_, err = execute(t, rankCmd, map[string]string{"snapshot": snap, "explain": "boise-id"})
	assert.ErrorContains(t, err, `city "boise-id" is not in the ranking`)
}

func TestRankCommand_XLSX(t *testing.T) {
	testConfig(t)
	snap := writeSnapshot(t)
	outPath := filepath.Join(t.TempDir(), "ranking.xlsx")

	_, err := execute(t, rankCmd, map[string]string{"snapshot": snap, "format": "xlsx", "output": outPath})
	require.NoError(t, err)
	_, err = os.Stat(outPath)
	require.NoError(t, err)
}

func TestRankCommand_FromStoreAndSave(t *testing.T) {
	testConfig(t)
	snap := writeSnapshot(t)

	_, err := execute(t, importCmd, nil, snap)
	require.NoError(t, err)

	out, err := execute(t, rankCmd, map[string]string{"states": "CO,TX", "save": "true"})
	require.NoError(t, err)
	assert.Contains(t, out, "Denver")
	assert.Contains(t, out, "Austin")
	assert.NotContains(t, out, "Tulsa")
}

func TestRankCommand_Errors(t *testing.T) {
	testConfig(t)
	snap := writeSnapshot(t)

	tests := []struct {
		name    string
		flags   map[string]string
		wantErr string
	}{
		{"bad format", map[string]string{"snapshot": snap, "format": "html"}, "--format must be"},
		{"xlsx needs output", map[string]string{"snapshot": snap, "format": "xlsx"}, "--output is required"},
		{"negative top", map[string]string{"snapshot": snap, "top": "-1"}, "--top must be >= 0"},
		{"empty selection", map[string]string{"snapshot": snap, "states": "WY"}, "no cities to rank"},
		{"missing snapshot", map[string]string{"snapshot": filepath.Join(t.TempDir(), "nope.csv")}, "import: read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, rankCmd, tt.flags)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRankingRows_XLSXRoundTrip(t *testing.T) {
	header, rows := rankingRows(sampleResults())
	path := filepath.Join(t.TempDir(), "r.xlsx")
	require.NoError(t, ingest.WriteXLSX(path, "Ranking", header, rows))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

package scoring

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/metroscore/internal/config"
	"github.com/sells-group/metroscore/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func threeCities() []model.CityRecord {
	austin := model.CityRecord{City: model.City{
		ID: "austin-tx", Name: "Austin", State: "TX", HasMajorAirport: true,
		Teams: []model.Team{{League: "MLS", Name: "Austin FC"}},
	}}
	austin.Metrics.Climate.AvgTempF = ptr(69)
	austin.Metrics.Climate.SunnyDays = ptr(228)
	austin.Metrics.Cost.RPPAll = ptr(101)
	austin.Metrics.Cost.MedianHouseholdIncome = ptr(89_000)
	austin.Metrics.Demographics.Population = ptr(2_300_000)
	austin.Metrics.Demographics.BachelorsPct = ptr(50)
	austin.Metrics.QualityOfLife.WalkScore = ptr(42)
	austin.Metrics.Culture.ArtsVenuesPer10k = ptr(3.1)

	denver := model.CityRecord{City: model.City{
		ID: "denver-co", Name: "Denver", State: "CO", HasMajorAirport: true,
		Teams: []model.Team{{League: "NFL", Name: "Broncos"}, {League: "NBA", Name: "Nuggets"}},
	}}
	denver.Metrics.Climate.AvgTempF = ptr(51)
	denver.Metrics.Climate.SunnyDays = ptr(245)
	denver.Metrics.Cost.RPPAll = ptr(106)
	denver.Metrics.Cost.MedianHouseholdIncome = ptr(91_000)
	denver.Metrics.Demographics.Population = ptr(2_900_000)
	denver.Metrics.Demographics.BachelorsPct = ptr(48)
	denver.Metrics.QualityOfLife.WalkScore = ptr(61)
	denver.Metrics.Culture.ArtsVenuesPer10k = ptr(3.4)

	tulsa := model.CityRecord{City: model.City{ID: "tulsa-ok", Name: "Tulsa", State: "OK"}}
	tulsa.Metrics.Climate.AvgTempF = ptr(61)
	tulsa.Metrics.Climate.SunnyDays = ptr(227)
	tulsa.Metrics.Cost.RPPAll = ptr(89)
	tulsa.Metrics.Cost.MedianHouseholdIncome = ptr(60_000)
	tulsa.Metrics.Demographics.Population = ptr(1_000_000)
	tulsa.Metrics.Demographics.BachelorsPct = ptr(30)
	tulsa.Metrics.QualityOfLife.WalkScore = ptr(38)

	return []model.CityRecord{austin, denver, tulsa}
}

func assertWellFormed(t *testing.T, scores []model.CityScore) {
	t.Helper()
	seenExcluded := false
	for i, s := range scores {
		assert.GreaterOrEqual(t, s.TotalScore, 0.0, s.CityID)
		assert.LessOrEqual(t, s.TotalScore, 100.0, s.CityID)
		for _, c := range model.Categories {
			if v := s.Categories.Get(c); v != nil {
				assert.GreaterOrEqual(t, *v, 0.0, "%s %s", s.CityID, c)
				assert.LessOrEqual(t, *v, 100.0, "%s %s", s.CityID, c)
			}
		}
		assert.Equal(t, s.Excluded, s.ExclusionReason != "", s.CityID)

		if s.Excluded {
			seenExcluded = true
		} else {
			assert.False(t, seenExcluded, "included city %s ranked after an excluded one", s.CityID)
		}
		if i > 0 && scores[i-1].Excluded == s.Excluded {
			assert.GreaterOrEqual(t, scores[i-1].TotalScore, s.TotalScore)
		}
	}
}

func TestScore_EndToEnd(t *testing.T) {
	records := threeCities()

	scores, err := Score(records, model.DefaultPreferences())
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assertWellFormed(t, scores)
	for _, s := range scores {
		assert.False(t, s.Excluded)
		assert.Len(t, s.Breakdown, len(model.Categories))
	}

	prefs := model.DefaultPreferences()
	prefs.Constraints = []model.Constraint{model.MustHaveTeam("NFL")}
	scores, err = Score(records, prefs)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assertWellFormed(t, scores)

	assert.Equal(t, "denver-co", scores[0].CityID)
	assert.False(t, scores[0].Excluded)
	for _, s := range scores[1:] {
		assert.True(t, s.Excluded, s.CityID)
		assert.Equal(t, "Must have an NFL team", s.ExclusionReason)
	}
}

func TestScore_ExcludedStillScored(t *testing.T) {
	records := threeCities()
	prefs := model.DefaultPreferences()

	base, err := Score(records, prefs)
	require.NoError(t, err)

	prefs.Constraints = []model.Constraint{{Kind: model.ConstraintInState, States: []string{"OK"}}}
	filtered, err := Score(records, prefs)
	require.NoError(t, err)

	totals := map[string]float64{}
	for _, s := range base {
		totals[s.CityID] = s.TotalScore
	}
	for _, s := range filtered {
		assert.Equal(t, totals[s.CityID], s.TotalScore, s.CityID)
	}
	assert.Equal(t, "tulsa-ok", filtered[0].CityID)
}

func TestScore_AnchorAtMean(t *testing.T) {
	records := []model.CityRecord{
		sunnyRecord("a", ptr(100)),
		sunnyRecord("b", ptr(200)),
		sunnyRecord("c", ptr(300)),
	}
	prefs := model.DefaultPreferences()
	prefs.Weights = model.CategoryWeights{Climate: 1}

	scores, err := Score(records, prefs)
	require.NoError(t, err)

	byID := map[string]model.CityScore{}
	for _, s := range scores {
		byID[s.CityID] = s
	}
	require.NotNil(t, byID["b"].Categories.Climate)
	assert.InDelta(t, 50, *byID["b"].Categories.Climate, 0.001)
	assert.InDelta(t, 50, byID["b"].TotalScore, 0.001)
	assert.Greater(t, byID["c"].TotalScore, byID["b"].TotalScore)
	assert.Less(t, byID["a"].TotalScore, byID["b"].TotalScore)
	assert.Equal(t, []string{"c", "b", "a"}, []string{scores[0].CityID, scores[1].CityID, scores[2].CityID})
}

func TestScore_NameTieBreak(t *testing.T) {
	records := []model.CityRecord{
		sunnyRecord("a", ptr(200)),
		sunnyRecord("b", ptr(200)),
		sunnyRecord("c", ptr(200)),
	}
	records[0].City.Name = "boston"
	records[1].City.Name = "Austin"
	records[2].City.Name = "Boston"

	scores, err := Score(records, model.DefaultPreferences())
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Equal(t, scores[0].TotalScore, scores[1].TotalScore)
	assert.Equal(t, "b", scores[0].CityID)
	// Case-folded names tie, so the id decides.
	assert.Equal(t, "a", scores[1].CityID)
	assert.Equal(t, "c", scores[2].CityID)
}

func TestScore_Deterministic(t *testing.T) {
	records := randomRecords(rand.New(rand.NewSource(7)), 60)
	prefs := model.DefaultPreferences()
	prefs.Minority = &model.MinorityTarget{Subgroup: model.SubgroupAsian, Importance: 0.3}
	prefs.Constraints = []model.Constraint{model.MetricAtMost("cost.rpp_all", 110)}

	first, err := Score(records, prefs)
	require.NoError(t, err)
	second, err := Score(records, prefs)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestScore_ParallelMatchesSequential(t *testing.T) {
	records := randomRecords(rand.New(rand.NewSource(11)), 120)
	prefs := model.DefaultPreferences()
	prefs.Housing = model.HousingBuyer

	seq, err := NewEngine(config.ScoringConfig{FallbackSpread: 1, Parallelism: 1}).Score(records, prefs)
	require.NoError(t, err)
	par, err := NewEngine(config.ScoringConfig{FallbackSpread: 1, Parallelism: 8, ParallelThreshold: 1}).Score(records, prefs)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestScore_RandomizedInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	modes := []model.HousingMode{model.HousingRenter, model.HousingHomeowner, model.HousingBuyer}
	works := []model.WorkMode{model.WorkLocalEarner, model.WorkStandard, model.WorkRetiree}

	for round := 0; round < 20; round++ {
		records := randomRecords(rng, 1+rng.Intn(40))
		prefs := model.Preferences{
			Weights: model.CategoryWeights{
				Climate:       rng.Float64() * 3,
				Cost:          rng.Float64() * 3,
				Demographics:  rng.Float64() * 3,
				QualityOfLife: rng.Float64() * 3,
				Culture:       rng.Float64() * 3,
				Entertainment: rng.Float64() * 3,
			},
			Housing:     modes[rng.Intn(len(modes))],
			Work:        works[rng.Intn(len(works))],
			Minority:    &model.MinorityTarget{Subgroup: model.SubgroupBlack, Importance: rng.Float64()},
			Constraints: []model.Constraint{model.MustHaveTeam("NBA")},
		}

		scores, err := Score(records, prefs)
		require.NoError(t, err)
		assert.Len(t, scores, len(records))
		assertWellFormed(t, scores)
	}
}

func TestScore_MissingDataIsNeutral(t *testing.T) {
	records := threeCities()
	prefs := model.DefaultPreferences()
	prefs.Weights = model.CategoryWeights{Culture: 1, Climate: 1}

	scores, err := Score(records, prefs)
	require.NoError(t, err)

	var tulsa model.CityScore
	for _, s := range scores {
		if s.CityID == "tulsa-ok" {
			tulsa = s
		}
	}
	// Tulsa has no culture data, so its total is its climate score alone.
	assert.Nil(t, tulsa.Categories.Culture)
	require.NotNil(t, tulsa.Categories.Climate)
	assert.InDelta(t, *tulsa.Categories.Climate, tulsa.TotalScore, 0.01)
}

func TestScore_NoUsableData(t *testing.T) {
	records := []model.CityRecord{
		{City: model.City{ID: "ghost", Name: "Ghost Town"}},
		sunnyRecord("sunny", ptr(250)),
	}

	scores, err := Score(records, model.DefaultPreferences())
	require.NoError(t, err)

	var ghost model.CityScore
	for _, s := range scores {
		if s.CityID == "ghost" {
			ghost = s
		}
	}
	for _, c := range model.Categories {
		assert.Nil(t, ghost.Categories.Get(c), string(c))
	}
	assert.Zero(t, ghost.TotalScore)
	assert.Equal(t, "sunny", scores[0].CityID)
}

func TestScore_UnweightedCategoriesDoNotCount(t *testing.T) {
	records := []model.CityRecord{
		{City: model.City{ID: "fans", Name: "Fans", Teams: []model.Team{{League: "NFL"}}}},
		{City: model.City{ID: "quiet", Name: "Quiet", TeamsKnown: true}},
	}
	prefs := model.DefaultPreferences()
	prefs.Weights = model.CategoryWeights{Climate: 1}

	scores, err := Score(records, prefs)
	require.NoError(t, err)
	for _, s := range scores {
		// Entertainment is scored and shown but carries no weight.
		require.NotNil(t, s.Categories.Entertainment, s.CityID)
		assert.Zero(t, s.TotalScore, s.CityID)
	}
}

func TestScore_UnknownTeamsLeaveEntertainmentNull(t *testing.T) {
	a := model.CityRecord{City: model.City{ID: "a", Name: "A", Teams: []model.Team{{League: "NFL", Name: "Broncos"}}}}
	a.Metrics.Entertainment.RestaurantsPer10k = ptr(20)
	b := model.CityRecord{City: model.City{ID: "b", Name: "B"}}
	b.Metrics.Climate.SunnyDays = ptr(200)

	prefs := model.DefaultPreferences()
	prefs.Weights = model.CategoryWeights{Entertainment: 1, Climate: 1}

	scores, err := Score([]model.CityRecord{a, b}, prefs)
	require.NoError(t, err)

	byID := map[string]model.CityScore{}
	for _, s := range scores {
		byID[s.CityID] = s
	}
	assert.NotNil(t, byID["a"].Categories.Entertainment)
	assert.Nil(t, byID["b"].Categories.Entertainment)
	// B is judged on climate alone: one city, fallback spread, at the mean.
	require.NotNil(t, byID["b"].Categories.Climate)
	assert.InDelta(t, *byID["b"].Categories.Climate, byID["b"].TotalScore, 0.01)
	assert.InDelta(t, 50, byID["b"].TotalScore, 0.01)
}

func TestScore_PartialTaxDataIsNotRewarded(t *testing.T) {
	taxed := func(id string, income, sales, property *float64) model.CityRecord {
		rec := model.CityRecord{City: model.City{ID: id, Name: id}}
		rec.Metrics.Cost.IncomeTaxPct = income
		rec.Metrics.Cost.SalesTaxPct = sales
		rec.Metrics.Cost.PropertyTaxPct = property
		return rec
	}
	records := []model.CityRecord{
		taxed("full", ptr(5), ptr(7), ptr(1)),
		taxed("same", ptr(5), ptr(7), ptr(1)),
		taxed("partial", nil, ptr(7), nil),
	}
	prefs := model.DefaultPreferences()
	prefs.Work = model.WorkRetiree
	prefs.Weights = model.CategoryWeights{Cost: 1}

	scores, err := Score(records, prefs)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	partial := scores[2]
	assert.Equal(t, "partial", partial.CityID)
	assert.Nil(t, partial.Categories.Cost)
	assert.Zero(t, partial.TotalScore)
	for _, s := range scores[:2] {
		require.NotNil(t, s.Categories.Cost, s.CityID)
		assert.Greater(t, s.TotalScore, partial.TotalScore, s.CityID)
	}
}

// handScenario is three cities with one climate and one cost metric each.
// Sunny days 100/200/600: mean 300, sd 216.025. Price parity 90/100/120:
// mean 103.333, sd 12.472. Every other category is unknown.
func handScenario() []model.CityRecord {
	records := []model.CityRecord{
		sunnyRecord("one", ptr(100)),
		sunnyRecord("two", ptr(200)),
		sunnyRecord("six", ptr(600)),
	}
	for i, rpp := range []float64{90, 100, 120} {
		records[i].Metrics.Cost.RPPAll = ptr(rpp)
	}
	return records
}

func TestScore_HandComputedTotals(t *testing.T) {
	scores, err := Score(handScenario(), model.DefaultPreferences())
	require.NoError(t, err)

	byID := map[string]model.CityScore{}
	for _, s := range scores {
		byID[s.CityID] = s
	}

	// two: climate 50 - 50*100/216.025 = 26.85; cost 50 + 50*3.333/12.472 = 63.36.
	two := byID["two"]
	require.NotNil(t, two.Categories.Climate)
	require.NotNil(t, two.Categories.Cost)
	assert.InDelta(t, 26.85, *two.Categories.Climate, 0.1)
	assert.InDelta(t, 63.36, *two.Categories.Cost, 0.1)
	assert.InDelta(t, 45.11, two.TotalScore, 0.1)

	// one: climate 3.71; cost 103.45 clamps to 100.
	assert.InDelta(t, 51.85, byID["one"].TotalScore, 0.1)
	// six: climate 119.4 clamps to 100; cost -16.8 clamps to 0.
	assert.InDelta(t, 50, byID["six"].TotalScore, 0.1)

	assert.Equal(t, []string{"one", "six", "two"}, []string{scores[0].CityID, scores[1].CityID, scores[2].CityID})
}

func TestScore_RaisingAWeightPullsTowardThatCategory(t *testing.T) {
	records := handScenario()

	for _, id := range []string{"one", "two"} {
		t.Run(id, func(t *testing.T) {
			prev := math.Inf(1)
			for _, w := range []float64{0.25, 0.5, 1, 2, 4, 8} {
				prefs := model.DefaultPreferences()
				prefs.Weights = model.CategoryWeights{Climate: w, Cost: 1, Culture: 2}

				scores, err := Score(records, prefs)
				require.NoError(t, err)
				var cs model.CityScore
				for _, s := range scores {
					if s.CityID == id {
						cs = s
					}
				}
				require.NotNil(t, cs.Categories.Climate)
				require.NotNil(t, cs.Categories.Cost)
				require.NotEqual(t, *cs.Categories.Climate, *cs.Categories.Cost)

				gap := math.Abs(cs.TotalScore - *cs.Categories.Climate)
				assert.Less(t, gap, prev, "climate weight %v", w)
				prev = gap
			}
		})
	}
}

func TestScore_MinorityBonus(t *testing.T) {
	records := make([]model.CityRecord, 2)
	records[0].City = model.City{ID: "low", Name: "Low"}
	records[1].City = model.City{ID: "high", Name: "High"}
	for i := range records {
		records[i].Metrics.Demographics.DiversityIndex = ptr(50)
	}
	records[0].Metrics.Demographics.BlackPct = ptr(10)
	records[1].Metrics.Demographics.BlackPct = ptr(30)

	prefs := model.DefaultPreferences()
	prefs.Weights = model.CategoryWeights{Demographics: 1}

	base, err := Score(records, prefs)
	require.NoError(t, err)
	for _, s := range base {
		require.NotNil(t, s.Categories.Demographics)
		assert.InDelta(t, 50, *s.Categories.Demographics, 0.01)
	}

	prefs.Minority = &model.MinorityTarget{Subgroup: model.SubgroupBlack, Importance: 0.2}
	boosted, err := Score(records, prefs)
	require.NoError(t, err)
	require.Equal(t, "high", boosted[0].CityID)
	assert.InDelta(t, 70, *boosted[0].Categories.Demographics, 0.01)
	assert.InDelta(t, 50, *boosted[1].Categories.Demographics, 0.01)

	demo := boosted[0].Breakdown[2]
	assert.Equal(t, model.CategoryDemographics, demo.Category)
	require.NotNil(t, demo.Bonus)
	assert.InDelta(t, 20, *demo.Bonus, 0.01)
}

func TestScore_Breakdown(t *testing.T) {
	records := threeCities()
	scores, err := Score(records, model.DefaultPreferences())
	require.NoError(t, err)

	for _, s := range scores {
		for i, bd := range s.Breakdown {
			assert.Equal(t, model.Categories[i], bd.Category)
			assert.Equal(t, s.Categories.Get(bd.Category), bd.Score)

			var eff float64
			for _, m := range bd.Metrics {
				eff += m.EffectiveWeight
				if m.Score == nil {
					assert.Zero(t, m.EffectiveWeight, m.Metric)
				}
			}
			if bd.Score != nil {
				assert.InDelta(t, 1, eff, 0.001, "%s %s", s.CityID, bd.Category)
			}
		}
	}
}

func TestScore_Errors(t *testing.T) {
	records := threeCities()
	records = append(records, records[0])
	_, err := Score(records, model.DefaultPreferences())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate city id")

	prefs := model.DefaultPreferences()
	prefs.Weights.Climate = -2
	_, err = Score(threeCities(), prefs)
	assert.Error(t, err)
}

func TestScore_Empty(t *testing.T) {
	scores, err := Score(nil, model.DefaultPreferences())
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestRank(t *testing.T) {
	scores := []model.CityScore{
		{CityID: "x", Name: "Xenia", TotalScore: 90, Excluded: true, ExclusionReason: "no"},
		{CityID: "b", Name: "Boise", TotalScore: 60},
		{CityID: "a", Name: "Akron", TotalScore: 60},
		{CityID: "c", Name: "Chico", TotalScore: 75},
	}
	Rank(scores)

	ids := make([]string, len(scores))
	for i, s := range scores {
		ids[i] = s.CityID
	}
	assert.Equal(t, []string{"c", "a", "b", "x"}, ids)
}

// randomRecords builds n cities with every field independently present
// two-thirds of the time.
func randomRecords(rng *rand.Rand, n int) []model.CityRecord {
	leagues := []string{"NFL", "NBA", "MLB", "NHL", "MLS"}
	records := make([]model.CityRecord, n)
	for i := range records {
		rec := &records[i]
		rec.City = model.City{
			ID:              "city-" + string(rune('a'+i%26)) + "-" + string(rune('a'+i/26)),
			Name:            "City " + string(rune('A'+rng.Intn(26))),
			State:           "ST",
			HasMajorAirport: rng.Intn(2) == 0,
		}
		for _, l := range leagues {
			if rng.Intn(3) == 0 {
				rec.City.Teams = append(rec.City.Teams, model.Team{League: l})
			}
		}
		for _, f := range model.Fields {
			if rng.Intn(3) == 0 {
				continue
			}
			v := rng.Float64() * 120
			if f.Key == "demographics.population" {
				v = rng.Float64() * 5_000_000
			}
			f.Set(&rec.Metrics, &v)
		}
	}
	return records
}

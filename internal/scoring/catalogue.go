// Package scoring implements the personalized multi-factor city scoring
// engine: per-metric normalization against a national reference, category
// aggregation, preference resolution, hard-constraint filtering, and ranking.
// Every exported operation is a pure function of its arguments.
package scoring

import (
	"github.com/sells-group/metroscore/internal/model"
)

// Transform is the family used to map a raw metric onto 0-100.
type Transform string

const (
	// TransformLinear: higher is better, 50 at the national mean.
	TransformLinear Transform = "linear"
	// TransformInverseLinear: lower is better, 50 at the national mean.
	TransformInverseLinear Transform = "inverse_linear"
	// TransformTargetDistance: 100 at the ideal, 0 at or beyond the tolerance.
	TransformTargetDistance Transform = "target_distance"
	// TransformPercentageAnchored: percentages anchored at the national mean,
	// scaled by the national std-dev (or a configured spread).
	TransformPercentageAnchored Transform = "percentage_anchored"
)

// Direction tells percentage-anchored metrics which way is better.
type Direction string

const (
	HigherIsBetter Direction = "higher"
	LowerIsBetter  Direction = "lower"
)

// Scale is applied to raw values before the reference and normalization.
type Scale string

const (
	ScaleIdentity Scale = ""
	ScaleLog10    Scale = "log10"
)

// ExtractFunc reads (or derives) a metric value for a city. Nil means unknown.
type ExtractFunc func(city model.City, m *model.CityMetrics) *float64

// MetricSpec declares how one scoring metric is read and normalized.
type MetricSpec struct {
	ID        string         `json:"id"`
	Category  model.Category `json:"category"`
	Label     string         `json:"label"`
	Transform Transform      `json:"transform"`
	Direction Direction      `json:"direction,omitempty"`
	Scale     Scale          `json:"scale,omitempty"`
	Ideal     float64        `json:"ideal,omitempty"`
	Tolerance float64        `json:"tolerance,omitempty"`
	// Spread, when positive, replaces the reference std-dev.
	Spread float64 `json:"spread,omitempty"`
	// SpreadScale multiplies the effective spread; 0 means 1. Values below 1
	// steepen the falloff.
	SpreadScale float64 `json:"spread_scale,omitempty"`
	Percent     bool    `json:"percent,omitempty"`
	Derived     bool    `json:"derived,omitempty"`

	Extract ExtractFunc `json:"-"`
}

func field(key, label string, t Transform) MetricSpec {
	f, ok := model.LookupField(key)
	if !ok {
		panic("scoring: unknown field " + key)
	}
	return MetricSpec{
		ID:        key,
		Category:  f.Category,
		Label:     label,
		Transform: t,
		Percent:   f.Percent,
		Extract: func(_ model.City, m *model.CityMetrics) *float64 {
			return f.Get(m)
		},
	}
}

func pct(key, label string, d Direction) MetricSpec {
	s := field(key, label, TransformPercentageAnchored)
	s.Direction = d
	return s
}

func target(key, label string, ideal, tolerance float64) MetricSpec {
	s := field(key, label, TransformTargetDistance)
	s.Ideal = ideal
	s.Tolerance = tolerance
	return s
}

func derived(id string, cat model.Category, label string, t Transform, fn ExtractFunc) MetricSpec {
	return MetricSpec{ID: id, Category: cat, Label: label, Transform: t, Derived: true, Extract: fn}
}

// Catalogue is the closed set of scoring metrics, in breakdown order.
var Catalogue = []MetricSpec{
	target("climate.avg_temp_f", "Average temperature", 65, 20),
	target("climate.summer_high_f", "Summer high", 82, 15),
	target("climate.winter_low_f", "Winter low", 40, 25),
	field("climate.sunny_days", "Sunny days", TransformLinear),
	field("climate.rainy_days", "Rainy days", TransformInverseLinear),
	field("climate.snow_inches", "Snowfall", TransformInverseLinear),
	target("climate.humidity_pct", "Humidity", 45, 35),

	field("cost.rpp_all", "Overall price parity", TransformInverseLinear),
	field("cost.rpp_rents", "Rent price parity", TransformInverseLinear),
	field("cost.rpp_goods", "Goods price parity", TransformInverseLinear),
	derived("cost.real_income", model.CategoryCost, "Price-adjusted income", TransformLinear, realIncome),
	field("cost.regional_wage_index", "Regional wage level", TransformLinear),
	derived("cost.tax_burden", model.CategoryCost, "Combined tax burden", TransformInverseLinear, taxBurden),
	pct("cost.property_tax_pct", "Property tax rate", LowerIsBetter),
	derived("cost.rent_burden", model.CategoryCost, "Rent as share of income", TransformInverseLinear, rentBurden),
	derived("cost.affordability", model.CategoryCost, "Home price to income", TransformInverseLinear, affordability),
	field("cost.home_price_change_pct", "Home price trend", TransformLinear),

	withScale(field("demographics.population", "Population", TransformLinear), ScaleLog10),
	field("demographics.population_growth_pct", "Population growth", TransformLinear),
	pct("demographics.diversity_index", "Diversity", HigherIsBetter),
	target("demographics.median_age", "Median age", 38, 15),
	pct("demographics.bachelors_pct", "Bachelor's degree share", HigherIsBetter),
	pct("demographics.foreign_born_pct", "Foreign-born share", HigherIsBetter),
	pct("demographics.non_english_pct", "Non-English speakers", HigherIsBetter),
	pct("demographics.white_pct", "White population share", HigherIsBetter),
	pct("demographics.black_pct", "Black population share", HigherIsBetter),
	pct("demographics.hispanic_pct", "Hispanic population share", HigherIsBetter),
	pct("demographics.asian_pct", "Asian population share", HigherIsBetter),
	pct("demographics.native_pct", "Native American population share", HigherIsBetter),
	pct("demographics.pacific_islander_pct", "Pacific Islander population share", HigherIsBetter),
	pct("demographics.multiracial_pct", "Multiracial population share", HigherIsBetter),

	pct("quality_of_life.walk_score", "Walkability", HigherIsBetter),
	pct("quality_of_life.transit_score", "Transit", HigherIsBetter),
	field("quality_of_life.violent_crime_rate", "Violent crime", TransformInverseLinear),
	field("quality_of_life.property_crime_rate", "Property crime", TransformInverseLinear),
	field("quality_of_life.air_quality_index", "Air quality index", TransformInverseLinear),
	pct("quality_of_life.broadband_pct", "Broadband access", HigherIsBetter),
	field("quality_of_life.physicians_per_100k", "Physicians per capita", TransformLinear),
	field("quality_of_life.life_expectancy", "Life expectancy", TransformLinear),
	field("quality_of_life.school_rating", "School rating", TransformLinear),
	field("quality_of_life.parks_per_10k", "Parks per capita", TransformLinear),
	field("quality_of_life.commute_minutes", "Commute time", TransformInverseLinear),

	target("culture.democrat_vote_pct", "Political lean", 50, 30),
	target("culture.religious_adherence_pct", "Religious adherence", 50, 30),
	field("culture.arts_venues_per_10k", "Arts venues per capita", TransformLinear),

	derived("entertainment.pro_teams", model.CategoryEntertainment, "Major-league teams", TransformLinear, proTeams),
	field("entertainment.restaurants_per_10k", "Restaurants per capita", TransformLinear),
	field("entertainment.nightlife_per_10k", "Nightlife per capita", TransformLinear),
	field("entertainment.attractions_per_10k", "Attractions per capita", TransformLinear),
}

var catalogueIndex = func() map[string]MetricSpec {
	idx := make(map[string]MetricSpec, len(Catalogue))
	for _, s := range Catalogue {
		idx[s.ID] = s
	}
	return idx
}()

// LookupMetric returns the catalogue entry for id.
func LookupMetric(id string) (MetricSpec, bool) {
	s, ok := catalogueIndex[id]
	return s, ok
}

func withScale(s MetricSpec, sc Scale) MetricSpec {
	s.Scale = sc
	return s
}

func realIncome(_ model.City, m *model.CityMetrics) *float64 {
	inc, rpp := m.Cost.MedianHouseholdIncome, m.Cost.RPPAll
	if inc == nil || rpp == nil || *rpp <= 0 {
		return nil
	}
	v := *inc / (*rpp / 100)
	return &v
}

// taxBurden is income + sales + property tax. A missing component would read
// as a 0% rate, so the sum is unknown unless all three are present.
func taxBurden(_ model.City, m *model.CityMetrics) *float64 {
	var sum float64
	for _, p := range []*float64{m.Cost.IncomeTaxPct, m.Cost.SalesTaxPct, m.Cost.PropertyTaxPct} {
		if p == nil {
			return nil
		}
		sum += *p
	}
	return &sum
}

func rentBurden(_ model.City, m *model.CityMetrics) *float64 {
	rent, inc := m.Cost.MedianRent, m.Cost.MedianHouseholdIncome
	if rent == nil || inc == nil || *inc <= 0 {
		return nil
	}
	v := *rent * 12 / *inc * 100
	return &v
}

func affordability(_ model.City, m *model.CityMetrics) *float64 {
	price, inc := m.Cost.MedianHomePrice, m.Cost.MedianHouseholdIncome
	if price == nil || inc == nil || *inc <= 0 {
		return nil
	}
	v := *price / *inc
	return &v
}

func proTeams(c model.City, _ *model.CityMetrics) *float64 {
	return c.TeamCount()
}

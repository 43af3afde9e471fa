package model

// Category is one of the six top-level scoring dimensions.
type Category string

const (
	CategoryClimate       Category = "climate"
	CategoryCost          Category = "cost"
	CategoryDemographics  Category = "demographics"
	CategoryQualityOfLife Category = "quality_of_life"
	CategoryCulture       Category = "culture"
	CategoryEntertainment Category = "entertainment"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryClimate,
	CategoryCost,
	CategoryDemographics,
	CategoryQualityOfLife,
	CategoryCulture,
	CategoryEntertainment,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Field describes one raw numeric leaf of CityMetrics.
type Field struct {
	Key      string // "<category>.<leaf>", matches the JSON path
	Category Category
	Percent  bool // constrained to [0,100] upstream
	Ptr      func(*CityMetrics) **float64
}

// Get returns the leaf value, nil when unknown.
func (f Field) Get(m *CityMetrics) *float64 {
	return *f.Ptr(m)
}

// Set stores v (nil clears) into the leaf.
func (f Field) Set(m *CityMetrics, v *float64) {
	*f.Ptr(m) = v
}

// Fields is the ordered registry of every raw metric leaf.
var Fields = []Field{
	{"climate.avg_temp_f", CategoryClimate, false, func(m *CityMetrics) **float64 { return &m.Climate.AvgTempF }},
	{"climate.summer_high_f", CategoryClimate, false, func(m *CityMetrics) **float64 { return &m.Climate.SummerHighF }},
	{"climate.winter_low_f", CategoryClimate, false, func(m *CityMetrics) **float64 { return &m.Climate.WinterLowF }},
	{"climate.sunny_days", CategoryClimate, false, func(m *CityMetrics) **float64 { return &m.Climate.SunnyDays }},
	{"climate.rainy_days", CategoryClimate, false, func(m *CityMetrics) **float64 { return &m.Climate.RainyDays }},
	{"climate.snow_inches", CategoryClimate, false, func(m *CityMetrics) **float64 { return &m.Climate.SnowInches }},
	{"climate.humidity_pct", CategoryClimate, true, func(m *CityMetrics) **float64 { return &m.Climate.HumidityPct }},

	{"cost.median_household_income", CategoryCost, false, func(m *CityMetrics) **float64 { return &m.Cost.MedianHouseholdIncome }},
	{"cost.regional_wage_index", CategoryCost, false, func(m *CityMetrics) **float64 { return &m.Cost.RegionalWageIndex }},
	{"cost.income_tax_pct", CategoryCost, true, func(m *CityMetrics) **float64 { return &m.Cost.IncomeTaxPct }},
	{"cost.sales_tax_pct", CategoryCost, true, func(m *CityMetrics) **float64 { return &m.Cost.SalesTaxPct }},
	{"cost.property_tax_pct", CategoryCost, true, func(m *CityMetrics) **float64 { return &m.Cost.PropertyTaxPct }},
	{"cost.rpp_all", CategoryCost, false, func(m *CityMetrics) **float64 { return &m.Cost.RPPAll }},
	{"cost.rpp_rents", CategoryCost, false, func(m *CityMetrics) **float64 { return &m.Cost.RPPRents }},
	{"cost.rpp_goods", CategoryCost, false, func(m *CityMetrics) **float64 { return &m.Cost.RPPGoods }},
	{"cost.median_home_price", CategoryCost, false, func(m *CityMetrics) **float64 { return &m.Cost.MedianHomePrice }},
	{"cost.home_price_change_pct", CategoryCost, false, func(m *CityMetrics) **float64 { return &m.Cost.HomePriceChangePct }},
	{"cost.median_rent", CategoryCost, false, func(m *CityMetrics) **float64 { return &m.Cost.MedianRent }},

	{"demographics.population", CategoryDemographics, false, func(m *CityMetrics) **float64 { return &m.Demographics.Population }},
	{"demographics.population_growth_pct", CategoryDemographics, false, func(m *CityMetrics) **float64 { return &m.Demographics.PopulationGrowthPct }},
	{"demographics.diversity_index", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.DiversityIndex }},
	{"demographics.median_age", CategoryDemographics, false, func(m *CityMetrics) **float64 { return &m.Demographics.MedianAge }},
	{"demographics.bachelors_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.BachelorsPct }},
	{"demographics.foreign_born_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.ForeignBornPct }},
	{"demographics.non_english_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.NonEnglishPct }},
	{"demographics.white_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.WhitePct }},
	{"demographics.black_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.BlackPct }},
	{"demographics.hispanic_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.HispanicPct }},
	{"demographics.asian_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.AsianPct }},
	{"demographics.native_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.NativePct }},
	{"demographics.pacific_islander_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.PacificIslanderPct }},
	{"demographics.multiracial_pct", CategoryDemographics, true, func(m *CityMetrics) **float64 { return &m.Demographics.MultiracialPct }},

	{"quality_of_life.walk_score", CategoryQualityOfLife, true, func(m *CityMetrics) **float64 { return &m.QualityOfLife.WalkScore }},
	{"quality_of_life.transit_score", CategoryQualityOfLife, true, func(m *CityMetrics) **float64 { return &m.QualityOfLife.TransitScore }},
	{"quality_of_life.violent_crime_rate", CategoryQualityOfLife, false, func(m *CityMetrics) **float64 { return &m.QualityOfLife.ViolentCrimeRate }},
	{"quality_of_life.property_crime_rate", CategoryQualityOfLife, false, func(m *CityMetrics) **float64 { return &m.QualityOfLife.PropertyCrimeRate }},
	{"quality_of_life.air_quality_index", CategoryQualityOfLife, false, func(m *CityMetrics) **float64 { return &m.QualityOfLife.AirQualityIndex }},
	{"quality_of_life.broadband_pct", CategoryQualityOfLife, true, func(m *CityMetrics) **float64 { return &m.QualityOfLife.BroadbandPct }},
	{"quality_of_life.physicians_per_100k", CategoryQualityOfLife, false, func(m *CityMetrics) **float64 { return &m.QualityOfLife.PhysiciansPer100k }},
	{"quality_of_life.life_expectancy", CategoryQualityOfLife, false, func(m *CityMetrics) **float64 { return &m.QualityOfLife.LifeExpectancy }},
	{"quality_of_life.school_rating", CategoryQualityOfLife, false, func(m *CityMetrics) **float64 { return &m.QualityOfLife.SchoolRating }},
	{"quality_of_life.parks_per_10k", CategoryQualityOfLife, false, func(m *CityMetrics) **float64 { return &m.QualityOfLife.ParksPer10k }},
	{"quality_of_life.commute_minutes", CategoryQualityOfLife, false, func(m *CityMetrics) **float64 { return &m.QualityOfLife.CommuteMinutes }},

	{"culture.democrat_vote_pct", CategoryCulture, true, func(m *CityMetrics) **float64 { return &m.Culture.DemocratVotePct }},
	{"culture.religious_adherence_pct", CategoryCulture, true, func(m *CityMetrics) **float64 { return &m.Culture.ReligiousAdherencePct }},
	{"culture.arts_venues_per_10k", CategoryCulture, false, func(m *CityMetrics) **float64 { return &m.Culture.ArtsVenuesPer10k }},

	{"entertainment.restaurants_per_10k", CategoryEntertainment, false, func(m *CityMetrics) **float64 { return &m.Entertainment.RestaurantsPer10k }},
	{"entertainment.nightlife_per_10k", CategoryEntertainment, false, func(m *CityMetrics) **float64 { return &m.Entertainment.NightlifePer10k }},
	{"entertainment.attractions_per_10k", CategoryEntertainment, false, func(m *CityMetrics) **float64 { return &m.Entertainment.AttractionsPer10k }},
}

var fieldIndex = func() map[string]Field {
	idx := make(map[string]Field, len(Fields))
	for _, f := range Fields {
		idx[f.Key] = f
	}
	return idx
}()

// LookupField returns the field registered under key.
func LookupField(key string) (Field, bool) {
	f, ok := fieldIndex[key]
	return f, ok
}

// Package model defines the city, metric, preference, and score types shared
// by the scoring engine, the stores, and the HTTP/CLI surfaces.
package model

import "strings"

// Team is a major-league professional sports affiliation.
type Team struct {
	League string `json:"league" yaml:"league"`
	Name   string `json:"name" yaml:"name"`
}

// City is reference data for one metropolitan area. It is owned by the
// ingestion layer and treated as read-only by scoring. TeamsKnown marks an
// empty Teams as "no major-league teams" rather than "not recorded".
type City struct {
	ID              string            `json:"id" yaml:"id"`
	Name            string            `json:"name" yaml:"name"`
	State           string            `json:"state" yaml:"state"`
	Region          string            `json:"region,omitempty" yaml:"region,omitempty"`
	Teams           []Team            `json:"teams,omitempty" yaml:"teams,omitempty"`
	TeamsKnown      bool              `json:"teams_known,omitempty" yaml:"teams_known,omitempty"`
	HasMajorAirport bool              `json:"has_major_airport" yaml:"has_major_airport"`
	Slugs           map[string]string `json:"slugs,omitempty" yaml:"slugs,omitempty"`
}

// HasTeamIn reports whether the city has at least one team in the league
// (case-insensitive).
func (c City) HasTeamIn(league string) bool {
	for _, t := range c.Teams {
		if strings.EqualFold(t.League, league) {
			return true
		}
	}
	return false
}

// TeamCount returns the number of major-league affiliations, or nil when
// they were never recorded.
func (c City) TeamCount() *float64 {
	if len(c.Teams) == 0 && !c.TeamsKnown {
		return nil
	}
	n := float64(len(c.Teams))
	return &n
}

// CityRecord pairs a city with its metric snapshot.
type CityRecord struct {
	City    City        `json:"city" yaml:"city"`
	Metrics CityMetrics `json:"metrics" yaml:"metrics"`
}

// CityMetrics is the partially populated metric tree for one city. A nil
// leaf means "unknown", never zero.
type CityMetrics struct {
	Climate       ClimateMetrics       `json:"climate" yaml:"climate"`
	Cost          CostMetrics          `json:"cost" yaml:"cost"`
	Demographics  DemographicsMetrics  `json:"demographics" yaml:"demographics"`
	QualityOfLife QualityOfLifeMetrics `json:"quality_of_life" yaml:"quality_of_life"`
	Culture       CultureMetrics       `json:"culture" yaml:"culture"`
	Entertainment EntertainmentMetrics `json:"entertainment" yaml:"entertainment"`
}

// ClimateMetrics are sourced from NOAA normals.
type ClimateMetrics struct {
	AvgTempF    *float64 `json:"avg_temp_f" yaml:"avg_temp_f"`
	SummerHighF *float64 `json:"summer_high_f" yaml:"summer_high_f"`
	WinterLowF  *float64 `json:"winter_low_f" yaml:"winter_low_f"`
	SunnyDays   *float64 `json:"sunny_days" yaml:"sunny_days"`
	RainyDays   *float64 `json:"rainy_days" yaml:"rainy_days"`
	SnowInches  *float64 `json:"snow_inches" yaml:"snow_inches"`
	HumidityPct *float64 `json:"humidity_pct" yaml:"humidity_pct"`
}

// CostMetrics combine Census income, BEA regional price parities, state tax
// rates, and Zillow home values.
type CostMetrics struct {
	MedianHouseholdIncome *float64 `json:"median_household_income" yaml:"median_household_income"`
	RegionalWageIndex     *float64 `json:"regional_wage_index" yaml:"regional_wage_index"`
	IncomeTaxPct          *float64 `json:"income_tax_pct" yaml:"income_tax_pct"`
	SalesTaxPct           *float64 `json:"sales_tax_pct" yaml:"sales_tax_pct"`
	PropertyTaxPct        *float64 `json:"property_tax_pct" yaml:"property_tax_pct"`
	RPPAll                *float64 `json:"rpp_all" yaml:"rpp_all"`
	RPPRents              *float64 `json:"rpp_rents" yaml:"rpp_rents"`
	RPPGoods              *float64 `json:"rpp_goods" yaml:"rpp_goods"`
	MedianHomePrice       *float64 `json:"median_home_price" yaml:"median_home_price"`
	HomePriceChangePct    *float64 `json:"home_price_change_pct" yaml:"home_price_change_pct"`
	MedianRent            *float64 `json:"median_rent" yaml:"median_rent"`
}

// DemographicsMetrics are sourced from the Census ACS.
type DemographicsMetrics struct {
	Population          *float64 `json:"population" yaml:"population"`
	PopulationGrowthPct *float64 `json:"population_growth_pct" yaml:"population_growth_pct"`
	DiversityIndex      *float64 `json:"diversity_index" yaml:"diversity_index"`
	MedianAge           *float64 `json:"median_age" yaml:"median_age"`
	BachelorsPct        *float64 `json:"bachelors_pct" yaml:"bachelors_pct"`
	ForeignBornPct      *float64 `json:"foreign_born_pct" yaml:"foreign_born_pct"`
	NonEnglishPct       *float64 `json:"non_english_pct" yaml:"non_english_pct"`
	WhitePct            *float64 `json:"white_pct" yaml:"white_pct"`
	BlackPct            *float64 `json:"black_pct" yaml:"black_pct"`
	HispanicPct         *float64 `json:"hispanic_pct" yaml:"hispanic_pct"`
	AsianPct            *float64 `json:"asian_pct" yaml:"asian_pct"`
	NativePct           *float64 `json:"native_pct" yaml:"native_pct"`
	PacificIslanderPct  *float64 `json:"pacific_islander_pct" yaml:"pacific_islander_pct"`
	MultiracialPct      *float64 `json:"multiracial_pct" yaml:"multiracial_pct"`
}

// QualityOfLifeMetrics mix walkability, FBI crime, EPA air quality, FCC
// broadband, HRSA, NCES, and OpenStreetMap recreation data.
type QualityOfLifeMetrics struct {
	WalkScore         *float64 `json:"walk_score" yaml:"walk_score"`
	TransitScore      *float64 `json:"transit_score" yaml:"transit_score"`
	ViolentCrimeRate  *float64 `json:"violent_crime_rate" yaml:"violent_crime_rate"`
	PropertyCrimeRate *float64 `json:"property_crime_rate" yaml:"property_crime_rate"`
	AirQualityIndex   *float64 `json:"air_quality_index" yaml:"air_quality_index"`
	BroadbandPct      *float64 `json:"broadband_pct" yaml:"broadband_pct"`
	PhysiciansPer100k *float64 `json:"physicians_per_100k" yaml:"physicians_per_100k"`
	LifeExpectancy    *float64 `json:"life_expectancy" yaml:"life_expectancy"`
	SchoolRating      *float64 `json:"school_rating" yaml:"school_rating"`
	ParksPer10k       *float64 `json:"parks_per_10k" yaml:"parks_per_10k"`
	CommuteMinutes    *float64 `json:"commute_minutes" yaml:"commute_minutes"`
}

// CultureMetrics hold political and religious composition plus arts density.
type CultureMetrics struct {
	DemocratVotePct       *float64 `json:"democrat_vote_pct" yaml:"democrat_vote_pct"`
	ReligiousAdherencePct *float64 `json:"religious_adherence_pct" yaml:"religious_adherence_pct"`
	ArtsVenuesPer10k      *float64 `json:"arts_venues_per_10k" yaml:"arts_venues_per_10k"`
}

// EntertainmentMetrics hold venue densities. Sports affiliations live on City.
type EntertainmentMetrics struct {
	RestaurantsPer10k *float64 `json:"restaurants_per_10k" yaml:"restaurants_per_10k"`
	NightlifePer10k   *float64 `json:"nightlife_per_10k" yaml:"nightlife_per_10k"`
	AttractionsPer10k *float64 `json:"attractions_per_10k" yaml:"attractions_per_10k"`
}

package model

import "time"

// CategoryScores holds the six category scores. A nil score means the
// category had no usable data; it is serialized as null.
type CategoryScores struct {
	Climate       *float64 `json:"climate"`
	Cost          *float64 `json:"cost"`
	Demographics  *float64 `json:"demographics"`
	QualityOfLife *float64 `json:"quality_of_life"`
	Culture       *float64 `json:"culture"`
	Entertainment *float64 `json:"entertainment"`
}

// Get returns the score of c.
func (s CategoryScores) Get(c Category) *float64 {
	switch c {
	case CategoryClimate:
		return s.Climate
	case CategoryCost:
		return s.Cost
	case CategoryDemographics:
		return s.Demographics
	case CategoryQualityOfLife:
		return s.QualityOfLife
	case CategoryCulture:
		return s.Culture
	case CategoryEntertainment:
		return s.Entertainment
	}
	return nil
}

// Set stores v as the score of c.
func (s *CategoryScores) Set(c Category, v *float64) {
	switch c {
	case CategoryClimate:
		s.Climate = v
	case CategoryCost:
		s.Cost = v
	case CategoryDemographics:
		s.Demographics = v
	case CategoryQualityOfLife:
		s.QualityOfLife = v
	case CategoryCulture:
		s.Culture = v
	case CategoryEntertainment:
		s.Entertainment = v
	}
}

// MetricContribution explains one sub-metric's part in a category score.
type MetricContribution struct {
	Metric          string   `json:"metric"`
	Label           string   `json:"label"`
	Raw             *float64 `json:"raw"`
	Score           *float64 `json:"score"`
	Weight          float64  `json:"weight"`
	EffectiveWeight float64  `json:"effective_weight"`
	LowConfidence   bool     `json:"low_confidence,omitempty"`
}

// CategoryBreakdown explains one category score. Weight is the category's
// effective share of the total score for this city.
type CategoryBreakdown struct {
	Category Category             `json:"category"`
	Score    *float64             `json:"score"`
	Weight   float64              `json:"weight"`
	Bonus    *float64             `json:"bonus,omitempty"`
	Metrics  []MetricContribution `json:"metrics"`
}

// CityScore is the ranked, explainable result for one city.
type CityScore struct {
	CityID          string              `json:"city_id"`
	Name            string              `json:"name"`
	State           string              `json:"state"`
	Categories      CategoryScores      `json:"categories"`
	TotalScore      float64             `json:"total_score"`
	Excluded        bool                `json:"excluded"`
	ExclusionReason string              `json:"exclusion_reason,omitempty"`
	Breakdown       []CategoryBreakdown `json:"breakdown"`
}

// Ranking is a saved scoring run.
type Ranking struct {
	ID              string      `json:"id"`
	PreferencesHash string      `json:"preferences_hash"`
	Preferences     Preferences `json:"preferences"`
	Results         []CityScore `json:"results"`
	CreatedAt       time.Time   `json:"created_at"`
}

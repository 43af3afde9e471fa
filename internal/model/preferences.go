package model

// HousingMode selects the cost sub-formula for housing.
type HousingMode string

const (
	HousingRenter    HousingMode = "renter"
	HousingHomeowner HousingMode = "homeowner"
	HousingBuyer     HousingMode = "prospective_buyer"
)

// WorkMode selects how income and taxes are weighed.
type WorkMode string

const (
	WorkLocalEarner WorkMode = "local_earner"
	WorkStandard    WorkMode = "standard"
	WorkRetiree     WorkMode = "retiree"
)

// Subgroup identifies a demographic community for minority targeting.
type Subgroup string

const (
	SubgroupBlack           Subgroup = "black"
	SubgroupHispanic        Subgroup = "hispanic"
	SubgroupAsian           Subgroup = "asian"
	SubgroupNative          Subgroup = "native"
	SubgroupPacificIslander Subgroup = "pacific_islander"
	SubgroupMultiracial     Subgroup = "multiracial"
	SubgroupWhite           Subgroup = "white"
	SubgroupForeignBorn     Subgroup = "foreign_born"
)

// SubgroupFields maps each subgroup to the demographics leaf holding its
// population share.
var SubgroupFields = map[Subgroup]string{
	SubgroupBlack:           "demographics.black_pct",
	SubgroupHispanic:        "demographics.hispanic_pct",
	SubgroupAsian:           "demographics.asian_pct",
	SubgroupNative:          "demographics.native_pct",
	SubgroupPacificIslander: "demographics.pacific_islander_pct",
	SubgroupMultiracial:     "demographics.multiracial_pct",
	SubgroupWhite:           "demographics.white_pct",
	SubgroupForeignBorn:     "demographics.foreign_born_pct",
}

// CategoryWeights holds one non-negative weight per category. The weights
// need not sum to 1.
type CategoryWeights struct {
	Climate       float64 `json:"climate" yaml:"climate"`
	Cost          float64 `json:"cost" yaml:"cost"`
	Demographics  float64 `json:"demographics" yaml:"demographics"`
	QualityOfLife float64 `json:"quality_of_life" yaml:"quality_of_life"`
	Culture       float64 `json:"culture" yaml:"culture"`
	Entertainment float64 `json:"entertainment" yaml:"entertainment"`
}

// Get returns the weight of c.
func (w CategoryWeights) Get(c Category) float64 {
	switch c {
	case CategoryClimate:
		return w.Climate
	case CategoryCost:
		return w.Cost
	case CategoryDemographics:
		return w.Demographics
	case CategoryQualityOfLife:
		return w.QualityOfLife
	case CategoryCulture:
		return w.Culture
	case CategoryEntertainment:
		return w.Entertainment
	}
	return 0
}

// EqualWeights returns a weight of 1 for every category.
func EqualWeights() CategoryWeights {
	return CategoryWeights{1, 1, 1, 1, 1, 1}
}

// MinorityTarget asks the demographics category to reward cities with a
// larger share of the given community. Importance is in [0,1].
type MinorityTarget struct {
	Subgroup   Subgroup `json:"subgroup" yaml:"subgroup"`
	Importance float64  `json:"importance" yaml:"importance"`
}

// ValuePreferences carry the user's ideal culture values. A nil value means
// the matching culture metric does not count.
type ValuePreferences struct {
	// PoliticalLean is the preferred Democratic two-party vote share, 0-100.
	PoliticalLean *float64 `json:"political_lean" yaml:"political_lean"`
	// ReligiousAdherence is the preferred share of religious adherents, 0-100.
	ReligiousAdherence *float64 `json:"religious_adherence" yaml:"religious_adherence"`
}

// Preferences is the user's personalized scoring configuration. It is passed
// by value into each scoring call and never mutated by it.
type Preferences struct {
	Weights     CategoryWeights  `json:"weights" yaml:"weights"`
	Housing     HousingMode      `json:"housing" yaml:"housing"`
	Work        WorkMode         `json:"work" yaml:"work"`
	Minority    *MinorityTarget  `json:"minority,omitempty" yaml:"minority,omitempty"`
	Values      ValuePreferences `json:"values" yaml:"values"`
	Constraints []Constraint     `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// DefaultPreferences weighs every category equally for a standard renter.
func DefaultPreferences() Preferences {
	return Preferences{
		Weights: EqualWeights(),
		Housing: HousingRenter,
		Work:    WorkStandard,
	}
}

// WithDefaults fills empty modes with renter/standard.
func (p Preferences) WithDefaults() Preferences {
	if p.Housing == "" {
		p.Housing = HousingRenter
	}
	if p.Work == "" {
		p.Work = WorkStandard
	}
	return p
}

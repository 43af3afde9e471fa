package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/metroscore/internal/model"
)

// WeightedMetric is a metric spec with its resolved in-category weight.
type WeightedMetric struct {
	Spec   MetricSpec
	Weight float64
}

// MinorityBonus is the resolved minority-targeting term.
type MinorityBonus struct {
	Subgroup   model.Subgroup
	Spec       MetricSpec
	Importance float64
}

// Resolved is the concrete plan a scoring pass executes.
type Resolved struct {
	// CategoryWeights sum to 1.
	CategoryWeights map[model.Category]float64
	// EqualWeightFallback is set when every user weight was zero.
	EqualWeightFallback bool
	// Metrics lists each category's weighted metrics in catalogue order.
	// Metrics with zero weight are omitted.
	Metrics     map[model.Category][]WeightedMetric
	Minority    *MinorityBonus
	Constraints []model.Constraint
}

// plan is the mutable per-metric table the mode overrides edit.
type plan struct {
	weights      map[string]float64
	ideals       map[string]float64
	spreadScales map[string]float64
}

func (p plan) set(id string, w float64) { p.weights[id] = w }

// baseWeights are the fixed category-internal weights before mode overrides.
var baseWeights = map[string]float64{
	"climate.avg_temp_f":    0.25,
	"climate.summer_high_f": 0.15,
	"climate.winter_low_f":  0.15,
	"climate.sunny_days":    0.15,
	"climate.rainy_days":    0.10,
	"climate.snow_inches":   0.10,
	"climate.humidity_pct":  0.10,

	"cost.rpp_all":     0.20,
	"cost.rpp_goods":   0.10,
	"cost.real_income": 0.20,
	"cost.tax_burden":  0.15,

	"demographics.population":            0.10,
	"demographics.population_growth_pct": 0.15,
	"demographics.diversity_index":       0.25,
	"demographics.median_age":            0.15,
	"demographics.bachelors_pct":         0.25,
	"demographics.foreign_born_pct":      0.10,

	"quality_of_life.walk_score":          0.12,
	"quality_of_life.transit_score":       0.08,
	"quality_of_life.violent_crime_rate":  0.15,
	"quality_of_life.property_crime_rate": 0.08,
	"quality_of_life.air_quality_index":   0.10,
	"quality_of_life.broadband_pct":       0.07,
	"quality_of_life.physicians_per_100k": 0.10,
	"quality_of_life.life_expectancy":     0.10,
	"quality_of_life.school_rating":       0.10,
	"quality_of_life.parks_per_10k":       0.05,
	"quality_of_life.commute_minutes":     0.05,

	"culture.arts_venues_per_10k": 0.40,

	"entertainment.pro_teams":           0.30,
	"entertainment.restaurants_per_10k": 0.25,
	"entertainment.nightlife_per_10k":   0.25,
	"entertainment.attractions_per_10k": 0.20,
}

// housingOverrides adjust the cost category per housing situation.
var housingOverrides = map[model.HousingMode]func(plan){
	model.HousingRenter: func(p plan) {
		p.set("cost.rpp_rents", 0.25)
		p.set("cost.rent_burden", 0.15)
		p.set("cost.home_price_change_pct", 0)
		p.set("cost.affordability", 0)
	},
	model.HousingHomeowner: func(p plan) {
		p.set("cost.rpp_rents", 0)
		p.set("cost.rent_burden", 0)
		p.set("cost.home_price_change_pct", 0.20)
		p.set("cost.property_tax_pct", 0.10)
		p.set("cost.affordability", 0.05)
	},
	model.HousingBuyer: func(p plan) {
		p.set("cost.rpp_rents", 0.05)
		p.set("cost.rent_burden", 0)
		p.set("cost.home_price_change_pct", 0)
		p.set("cost.affordability", 0.40)
		p.spreadScales["cost.affordability"] = 0.5
	},
}

// workOverrides adjust income and tax weighting per work situation.
var workOverrides = map[model.WorkMode]func(plan){
	model.WorkLocalEarner: func(p plan) {
		p.set("cost.regional_wage_index", 0.30)
		p.set("cost.real_income", 0.05)
		p.set("demographics.bachelors_pct", 0.30)
		p.set("demographics.population_growth_pct", 0.25)
	},
	model.WorkStandard: func(p plan) {
		p.set("cost.regional_wage_index", 0)
	},
	model.WorkRetiree: func(p plan) {
		p.set("cost.regional_wage_index", 0)
		p.set("cost.real_income", 0)
		p.set("cost.tax_burden", 0.35)
		p.set("demographics.population_growth_pct", 0.05)
		p.ideals["demographics.median_age"] = 50
	},
}

// Value preferences turn these target-distance metrics on.
const (
	politicalLeanWeight      = 0.35
	religiousAdherenceWeight = 0.25
)

// Resolve validates prefs and expands them into per-category metric weights,
// normalized category weights, the minority bonus, and the constraint list.
// It only errors on contract violations.
func Resolve(prefs model.Preferences) (Resolved, error) {
	prefs = prefs.WithDefaults()
	if err := ValidatePreferences(prefs); err != nil {
		return Resolved{}, err
	}

	r := Resolved{
		CategoryWeights: make(map[model.Category]float64, len(model.Categories)),
		Metrics:         make(map[model.Category][]WeightedMetric, len(model.Categories)),
		Constraints:     prefs.Constraints,
	}

	var sum float64
	for _, c := range model.Categories {
		sum += prefs.Weights.Get(c)
	}
	for _, c := range model.Categories {
		if sum == 0 {
			r.CategoryWeights[c] = 1 / float64(len(model.Categories))
			continue
		}
		r.CategoryWeights[c] = prefs.Weights.Get(c) / sum
	}
	r.EqualWeightFallback = sum == 0

	p := plan{
		weights:      make(map[string]float64, len(baseWeights)),
		ideals:       map[string]float64{},
		spreadScales: map[string]float64{},
	}
	for id, w := range baseWeights {
		p.weights[id] = w
	}
	housingOverrides[prefs.Housing](p)
	workOverrides[prefs.Work](p)

	if v := prefs.Values.PoliticalLean; v != nil {
		p.set("culture.democrat_vote_pct", politicalLeanWeight)
		p.ideals["culture.democrat_vote_pct"] = clamp(*v, 0, 100)
	}
	if v := prefs.Values.ReligiousAdherence; v != nil {
		p.set("culture.religious_adherence_pct", religiousAdherenceWeight)
		p.ideals["culture.religious_adherence_pct"] = clamp(*v, 0, 100)
	}

	for _, spec := range Catalogue {
		w := p.weights[spec.ID]
		if w <= 0 {
			continue
		}
		if ideal, ok := p.ideals[spec.ID]; ok {
			spec.Ideal = ideal
		}
		if sc, ok := p.spreadScales[spec.ID]; ok {
			spec.SpreadScale = sc
		}
		r.Metrics[spec.Category] = append(r.Metrics[spec.Category], WeightedMetric{Spec: spec, Weight: w})
	}

	if m := prefs.Minority; m != nil && m.Importance > 0 {
		spec, _ := LookupMetric(model.SubgroupFields[m.Subgroup])
		r.Minority = &MinorityBonus{
			Subgroup:   m.Subgroup,
			Spec:       spec,
			Importance: clamp(m.Importance, 0, 1),
		}
	}

	return r, nil
}

// ValidatePreferences reports every contract violation in prefs at once.
func ValidatePreferences(prefs model.Preferences) error {
	var errs []string

	for _, c := range model.Categories {
		w := prefs.Weights.Get(c)
		if math.IsNaN(w) || math.IsInf(w, 0) {
			errs = append(errs, fmt.Sprintf("%s weight must be finite", c))
		} else if w < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", c))
		}
	}

	if _, ok := housingOverrides[prefs.Housing]; !ok {
		errs = append(errs, fmt.Sprintf("unknown housing mode %q", prefs.Housing))
	}
	if _, ok := workOverrides[prefs.Work]; !ok {
		errs = append(errs, fmt.Sprintf("unknown work mode %q", prefs.Work))
	}

	if m := prefs.Minority; m != nil {
		if _, ok := model.SubgroupFields[m.Subgroup]; !ok {
			errs = append(errs, fmt.Sprintf("unknown minority subgroup %q", m.Subgroup))
		}
		if math.IsNaN(m.Importance) || m.Importance < 0 {
			errs = append(errs, "minority importance must be >= 0")
		}
	}

	for i, c := range prefs.Constraints {
		if err := validateConstraint(c); err != "" {
			errs = append(errs, fmt.Sprintf("constraint %d: %s", i, err))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: invalid preferences: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateConstraint(c model.Constraint) string {
	switch c.Kind {
	case model.ConstraintHasTeam:
		if strings.TrimSpace(c.League) == "" {
			return "has_team requires a league"
		}
	case model.ConstraintHasAirport:
	case model.ConstraintMaxMetric, model.ConstraintMinMetric:
		if _, ok := LookupMetric(c.Metric); !ok {
			return fmt.Sprintf("unknown metric %q", c.Metric)
		}
		if math.IsNaN(c.Value) {
			return "value must be a number"
		}
	case model.ConstraintInState:
		if len(c.States) == 0 {
			return "in_state requires at least one state"
		}
	case model.ConstraintCustom, "":
		if c.Func == nil {
			return "custom constraint requires a predicate"
		}
	default:
		return fmt.Sprintf("unknown kind %q", c.Kind)
	}
	return ""
}

package scoring

import (
	"math"
	"strings"

	"github.com/sells-group/metroscore/internal/model"
)

// Exclusion is the constraint filter's verdict for one city. Reason is set
// iff Excluded.
type Exclusion struct {
	Excluded bool
	Reason   string
}

// Filter evaluates constraints in declaration order and reports the first
// failure. A constraint that cannot be evaluated (missing data) fails closed.
// Low or missing metrics never exclude a city on their own.
func Filter(city model.City, metrics model.CityMetrics, constraints []model.Constraint) Exclusion {
	for _, c := range constraints {
		if !satisfied(c, city, &metrics) {
			return Exclusion{Excluded: true, Reason: c.Reason()}
		}
	}
	return Exclusion{}
}

func satisfied(c model.Constraint, city model.City, m *model.CityMetrics) bool {
	switch c.Kind {
	case model.ConstraintHasTeam:
		return city.HasTeamIn(c.League)
	case model.ConstraintHasAirport:
		return city.HasMajorAirport
	case model.ConstraintMaxMetric, model.ConstraintMinMetric:
		v, ok := metricValue(c.Metric, city, m)
		if !ok {
			return false
		}
		if c.Kind == model.ConstraintMaxMetric {
			return v <= c.Value
		}
		return v >= c.Value
	case model.ConstraintInState:
		for _, s := range c.States {
			if strings.EqualFold(strings.TrimSpace(s), city.State) {
				return true
			}
		}
		return false
	case model.ConstraintCustom, "":
		if c.Func == nil {
			return false
		}
		ok, evaluated := c.Func(city, *m)
		return evaluated && ok
	}
	return false
}

// metricValue reads the raw (unscaled) value of a catalogue metric.
func metricValue(id string, city model.City, m *model.CityMetrics) (float64, bool) {
	spec, ok := LookupMetric(id)
	if !ok {
		return 0, false
	}
	v := spec.Extract(city, m)
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

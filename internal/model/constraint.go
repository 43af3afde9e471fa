package model

import (
	"fmt"
	"strings"
)

// ConstraintKind is the closed set of hard-constraint predicates.
type ConstraintKind string

const (
	ConstraintHasTeam    ConstraintKind = "has_team"
	ConstraintHasAirport ConstraintKind = "has_airport"
	ConstraintMaxMetric  ConstraintKind = "max_metric"
	ConstraintMinMetric  ConstraintKind = "min_metric"
	ConstraintInState    ConstraintKind = "in_state"
	ConstraintCustom     ConstraintKind = "custom"
)

// PredicateFunc is an in-process constraint. ok=false means the predicate
// could not be evaluated for the city.
type PredicateFunc func(city City, metrics CityMetrics) (satisfied, ok bool)

// Constraint is a user-declared hard requirement. Failing it excludes a city
// regardless of its score.
type Constraint struct {
	Kind   ConstraintKind `json:"kind" yaml:"kind"`
	Label  string         `json:"label,omitempty" yaml:"label,omitempty"`
	League string         `json:"league,omitempty" yaml:"league,omitempty"`
	Metric string         `json:"metric,omitempty" yaml:"metric,omitempty"`
	Value  float64        `json:"value,omitempty" yaml:"value,omitempty"`
	States []string       `json:"states,omitempty" yaml:"states,omitempty"`

	Func PredicateFunc `json:"-" yaml:"-"`
}

// MustHaveTeam builds a has_team constraint for league.
func MustHaveTeam(league string) Constraint {
	return Constraint{Kind: ConstraintHasTeam, League: league}
}

// MetricAtMost builds a max_metric constraint.
func MetricAtMost(metric string, v float64) Constraint {
	return Constraint{Kind: ConstraintMaxMetric, Metric: metric, Value: v}
}

// MetricAtLeast builds a min_metric constraint.
func MetricAtLeast(metric string, v float64) Constraint {
	return Constraint{Kind: ConstraintMinMetric, Metric: metric, Value: v}
}

// Reason returns the label shown when the constraint excludes a city.
func (c Constraint) Reason() string {
	if c.Label != "" {
		return c.Label
	}
	switch c.Kind {
	case ConstraintHasTeam:
		return fmt.Sprintf("Must have an %s team", strings.ToUpper(c.League))
	case ConstraintHasAirport:
		return "Must have a major airport"
	case ConstraintMaxMetric:
		return fmt.Sprintf("%s must be at most %g", c.Metric, c.Value)
	case ConstraintMinMetric:
		return fmt.Sprintf("%s must be at least %g", c.Metric, c.Value)
	case ConstraintInState:
		return fmt.Sprintf("Must be in %s", strings.Join(c.States, ", "))
	}
	return "Custom requirement not met"
}

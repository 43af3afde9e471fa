package scoring

import (
	"math"
)

// DefaultFallbackSpread is used when fewer than two cities carry a metric or
// every carried value is identical.
const DefaultFallbackSpread = 1.0

// Normalize converts one raw metric value into a 0-100 sub-score against the
// national reference. A nil raw value yields nil. lowConfidence is set when
// the reference could not supply a usable spread.
func Normalize(raw *float64, spec MetricSpec, ref NationalReference) (score *float64, lowConfidence bool) {
	v := prepare(raw, spec)
	if v == nil {
		return nil, false
	}
	x := *v
	mr := ref.Metrics[spec.ID]

	var s float64
	switch spec.Transform {
	case TransformLinear:
		spread, low := ref.spread(spec)
		s = 50 + 50*(x-mr.Mean)/spread
		lowConfidence = low
	case TransformInverseLinear:
		spread, low := ref.spread(spec)
		s = 50 - 50*(x-mr.Mean)/spread
		lowConfidence = low
	case TransformPercentageAnchored:
		spread, low := ref.spread(spec)
		if spec.Direction == LowerIsBetter {
			s = 50 - 50*(x-mr.Mean)/spread
		} else {
			s = 50 + 50*(x-mr.Mean)/spread
		}
		lowConfidence = low
	case TransformTargetDistance:
		tol := spec.Tolerance
		if tol <= 0 {
			spread, low := ref.spread(spec)
			tol = 2 * spread
			lowConfidence = low
		}
		s = 100 - 100*math.Abs(x-spec.Ideal)/tol
	default:
		panic("scoring: unknown transform " + string(spec.Transform))
	}

	s = clamp(s, 0, 100)
	return &s, lowConfidence
}

// prepare applies the input policy shared by the normalizer and
// the reference builder: non-finite values are unknown, percentages are
// clamped to [0,100], and the metric's scale is applied.
func prepare(raw *float64, spec MetricSpec) *float64 {
	if raw == nil || math.IsNaN(*raw) || math.IsInf(*raw, 0) {
		return nil
	}
	v := *raw
	if spec.Percent {
		v = clamp(v, 0, 100)
	}
	if spec.Scale == ScaleLog10 {
		if v <= 0 {
			return nil
		}
		v = math.Log10(v)
	}
	return &v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}

package scoring

import (
	"math"
	"sort"

	"github.com/sells-group/metroscore/internal/model"
)

// MetricReference summarizes one metric across the cities of a scoring pass.
// Values are on the metric's scale. For log10 metrics such as population the
// 50-point anchor is therefore the geometric mean of the raw values, and a
// city at the arithmetic mean scores above 50.
type MetricReference struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Ideal  float64 `json:"ideal,omitempty"`
}

// NationalReference is the per-call baseline every city is normalized
// against. It is built from the full input set and discarded after the call.
type NationalReference struct {
	Metrics        map[string]MetricReference `json:"metrics"`
	FallbackSpread float64                    `json:"fallback_spread"`
}

// BuildReference computes the reference for every spec over records.
func BuildReference(records []model.CityRecord, specs []MetricSpec, fallbackSpread float64) NationalReference {
	if fallbackSpread <= 0 {
		fallbackSpread = DefaultFallbackSpread
	}
	ref := NationalReference{
		Metrics:        make(map[string]MetricReference, len(specs)),
		FallbackSpread: fallbackSpread,
	}

	values := make([]float64, 0, len(records))
	for _, spec := range specs {
		values = values[:0]
		for i := range records {
			v := prepare(spec.Extract(records[i].City, &records[i].Metrics), spec)
			if v != nil {
				values = append(values, *v)
			}
		}
		ref.Metrics[spec.ID] = summarize(values, spec.Ideal)
	}
	return ref
}

func summarize(values []float64, ideal float64) MetricReference {
	mr := MetricReference{Count: len(values), Ideal: ideal}
	if len(values) == 0 {
		return mr
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mr.Mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mr.Mean
		sq += d * d
	}
	mr.StdDev = math.Sqrt(sq / float64(len(values)))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		mr.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		mr.Median = sorted[mid]
	}
	return mr
}

// spread returns the divisor for a linear-family transform and whether it
// came from the fallback.
func (r NationalReference) spread(spec MetricSpec) (float64, bool) {
	scale := spec.SpreadScale
	if scale <= 0 {
		scale = 1
	}
	if spec.Spread > 0 {
		return spec.Spread * scale, false
	}

	fallback := r.FallbackSpread
	if fallback <= 0 {
		fallback = DefaultFallbackSpread
	}
	mr, ok := r.Metrics[spec.ID]
	if !ok || mr.Count < 2 || mr.StdDev == 0 {
		return fallback * scale, true
	}
	return mr.StdDev * scale, false
}

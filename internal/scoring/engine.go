package scoring

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/metroscore/internal/config"
	"github.com/sells-group/metroscore/internal/model"
)

// DefaultConfig returns a config.ScoringConfig with sensible defaults.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		FallbackSpread:    DefaultFallbackSpread,
		Parallelism:       4,
		ParallelThreshold: 500,
	}
}

// Engine ranks cities. It holds only tuning knobs; every call is an
// independent recomputation.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine creates an Engine with the given config.
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Score ranks records under prefs with the default engine.
func Score(records []model.CityRecord, prefs model.Preferences) ([]model.CityScore, error) {
	return NewEngine(DefaultConfig()).Score(records, prefs)
}

// Score resolves prefs, builds the national reference from records, scores
// and filters every city, and returns one CityScore per record sorted
// included-first, total descending, name ascending. The error is non-nil only
// for contract violations (invalid preferences, duplicate city ids).
func (e *Engine) Score(records []model.CityRecord, prefs model.Preferences) ([]model.CityScore, error) {
	resolved, err := Resolve(prefs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.City.ID]; dup {
			return nil, eris.Errorf("scoring: duplicate city id %q", r.City.ID)
		}
		seen[r.City.ID] = struct{}{}
	}

	ref := BuildReference(records, Catalogue, e.cfg.FallbackSpread)

	out := make([]model.CityScore, len(records))
	if e.parallel(len(records)) {
		var g errgroup.Group
		g.SetLimit(e.cfg.Parallelism)
		for i := range records {
			g.Go(func() error {
				out[i] = scoreCity(records[i], resolved, ref)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, eris.Wrap(err, "scoring: score cities")
		}
	} else {
		for i := range records {
			out[i] = scoreCity(records[i], resolved, ref)
		}
	}

	Rank(out)

	excluded := 0
	for i := range out {
		if out[i].Excluded {
			excluded++
		}
	}
	zap.L().Debug("scoring: ranked cities",
		zap.Int("cities", len(out)),
		zap.Int("excluded", excluded),
		zap.Bool("equal_weight_fallback", resolved.EqualWeightFallback),
		zap.Strings("low_confidence_metrics", lowConfidenceMetrics(ref)),
	)

	return out, nil
}

func (e *Engine) parallel(n int) bool {
	return e.cfg.Parallelism > 1 && e.cfg.ParallelThreshold > 0 && n >= e.cfg.ParallelThreshold
}

// scoreCity runs normalization, aggregation, the total, and the constraint
// filter for one city. It reads only its arguments.
func scoreCity(rec model.CityRecord, r Resolved, ref NationalReference) model.CityScore {
	cs := model.CityScore{
		CityID:    rec.City.ID,
		Name:      rec.City.Name,
		State:     rec.City.State,
		Breakdown: make([]model.CategoryBreakdown, 0, len(model.Categories)),
	}

	raw := make(map[model.Category]*float64, len(model.Categories))
	for _, cat := range model.Categories {
		bd, score := scoreCategory(rec, cat, r, ref)
		raw[cat] = score
		cs.Categories.Set(cat, round2Ptr(score))
		cs.Breakdown = append(cs.Breakdown, bd)
	}

	total, effective := totalScore(raw, r.CategoryWeights)
	cs.TotalScore = round2(total)
	for i := range cs.Breakdown {
		cs.Breakdown[i].Weight = round4(effective[cs.Breakdown[i].Category])
	}

	ex := Filter(rec.City, rec.Metrics, r.Constraints)
	cs.Excluded = ex.Excluded
	cs.ExclusionReason = ex.Reason
	return cs
}

func scoreCategory(rec model.CityRecord, cat model.Category, r Resolved, ref NationalReference) (model.CategoryBreakdown, *float64) {
	metrics := r.Metrics[cat]
	bd := model.CategoryBreakdown{
		Category: cat,
		Metrics:  make([]model.MetricContribution, len(metrics)),
	}

	subs := make([]SubScore, len(metrics))
	items := make([]Weighted, len(metrics))
	for i, wm := range metrics {
		rawValue := wm.Spec.Extract(rec.City, &rec.Metrics)
		s, low := Normalize(rawValue, wm.Spec, ref)
		subs[i] = SubScore{Name: wm.Spec.ID, Score: s, Weight: wm.Weight}
		items[i] = Weighted{Value: s, Weight: wm.Weight}
		bd.Metrics[i] = model.MetricContribution{
			Metric:        wm.Spec.ID,
			Label:         wm.Spec.Label,
			Raw:           rawValue,
			Score:         round2Ptr(s),
			Weight:        wm.Weight,
			LowConfidence: low,
		}
	}

	score := AggregateCategory(subs)
	_, effective := WeightedAverage(items)
	for i := range bd.Metrics {
		bd.Metrics[i].EffectiveWeight = round4(effective[i])
	}

	if cat == model.CategoryDemographics && r.Minority != nil && score != nil {
		m := r.Minority
		share, _ := Normalize(m.Spec.Extract(rec.City, &rec.Metrics), m.Spec, ref)
		if share != nil {
			bonus := m.Importance * *share
			v := clamp(*score+bonus, 0, 100)
			score = &v
			bd.Bonus = round2Ptr(&bonus)
		}
	}

	bd.Score = round2Ptr(score)
	return bd, score
}

// totalScore combines category scores with the resolved weights, renormalized
// over present categories. A zero-weight category never contributes, so a
// city whose only present categories are unweighted totals 0.
func totalScore(scores map[model.Category]*float64, weights map[model.Category]float64) (float64, map[model.Category]float64) {
	items := make([]Weighted, len(model.Categories))
	for i, cat := range model.Categories {
		items[i] = Weighted{Value: scores[cat], Weight: weights[cat]}
	}
	avg, eff := WeightedAverage(items)

	effective := make(map[model.Category]float64, len(model.Categories))
	for i, cat := range model.Categories {
		effective[cat] = eff[i]
	}
	if avg == nil {
		return 0, effective
	}
	return clamp(*avg, 0, 100), effective
}

// Rank sorts scores in place: included before excluded, then total
// descending, then case-folded name ascending, then city id.
func Rank(scores []model.CityScore) {
	fold := cases.Fold()
	keys := make(map[string]string, len(scores))
	for _, s := range scores {
		keys[s.CityID] = fold.String(norm.NFKC.String(s.Name))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Excluded != b.Excluded {
			return !a.Excluded
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if ka, kb := keys[a.CityID], keys[b.CityID]; ka != kb {
			return ka < kb
		}
		return a.CityID < b.CityID
	})
}

func lowConfidenceMetrics(ref NationalReference) []string {
	var ids []string
	for _, spec := range Catalogue {
		if _, low := ref.spread(spec); low && spec.Transform != TransformTargetDistance {
			ids = append(ids, spec.ID)
		}
	}
	return ids
}

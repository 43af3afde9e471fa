package scoring

// Weighted is one entry of a weighted average. A nil Value is absent and its
// weight is redistributed over the present entries.
type Weighted struct {
	Value  *float64
	Weight float64
}

// WeightedAverage averages the present entries with positive weight,
// renormalizing weights over them. It returns nil when nothing is present,
// along with each entry's effective weight (zero for absent entries).
// Category aggregation and the total score both use it.
func WeightedAverage(items []Weighted) (*float64, []float64) {
	effective := make([]float64, len(items))

	var sumW float64
	for _, it := range items {
		if it.Value != nil && it.Weight > 0 {
			sumW += it.Weight
		}
	}
	if sumW == 0 {
		return nil, effective
	}

	var avg float64
	for i, it := range items {
		if it.Value == nil || it.Weight <= 0 {
			continue
		}
		effective[i] = it.Weight / sumW
		avg += effective[i] * *it.Value
	}
	return &avg, effective
}

// SubScore is a named, weighted sub-metric score within a category.
type SubScore struct {
	Name   string
	Score  *float64
	Weight float64
}

// AggregateCategory combines a category's sub-scores into one score in
// [0,100], or nil when every sub-score is unknown.
func AggregateCategory(subScores []SubScore) *float64 {
	items := make([]Weighted, len(subScores))
	for i, s := range subScores {
		items[i] = Weighted{Value: s.Score, Weight: s.Weight}
	}
	avg, _ := WeightedAverage(items)
	if avg == nil {
		return nil
	}
	v := clamp(*avg, 0, 100)
	return &v
}

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name    string
		items   []Weighted
		want    *float64
		wantEff []float64
	}{
		{
			name:    "all present",
			items:   []Weighted{{ptr(80), 0.6}, {ptr(30), 0.4}},
			want:    ptr(60),
			wantEff: []float64{0.6, 0.4},
		},
		{
			name:    "missing metric is neutral",
			items:   []Weighted{{ptr(80), 0.6}, {nil, 0.4}},
			want:    ptr(80),
			wantEff: []float64{1, 0},
		},
		{
			name:    "weights need not sum to one",
			items:   []Weighted{{ptr(100), 3}, {ptr(0), 1}},
			want:    ptr(75),
			wantEff: []float64{0.75, 0.25},
		},
		{
			name:    "zero weight ignored",
			items:   []Weighted{{ptr(10), 0}, {ptr(90), 1}},
			want:    ptr(90),
			wantEff: []float64{0, 1},
		},
		{
			name:    "nothing present",
			items:   []Weighted{{nil, 0.5}, {nil, 0.5}},
			want:    nil,
			wantEff: []float64{0, 0},
		},
		{
			name:    "empty",
			items:   nil,
			want:    nil,
			wantEff: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, eff := WeightedAverage(tt.items)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.InDelta(t, *tt.want, *got, 0.0001)
			}
			require.Len(t, eff, len(tt.wantEff))
			for i := range eff {
				assert.InDelta(t, tt.wantEff[i], eff[i], 0.0001)
			}
		})
	}
}

func TestAggregateCategory(t *testing.T) {
	got := AggregateCategory([]SubScore{
		{Name: "a", Score: ptr(80), Weight: 0.6},
		{Name: "b", Score: nil, Weight: 0.4},
	})
	require.NotNil(t, got)
	assert.InDelta(t, 80, *got, 0.0001)

	assert.Nil(t, AggregateCategory([]SubScore{{Name: "a", Weight: 1}}))
	assert.Nil(t, AggregateCategory(nil))
}

func TestAggregateCategory_Bounds(t *testing.T) {
	got := AggregateCategory([]SubScore{
		{Name: "a", Score: ptr(100), Weight: 0.1},
		{Name: "b", Score: ptr(100), Weight: 0.9},
	})
	require.NotNil(t, got)
	assert.LessOrEqual(t, *got, 100.0)

	got = AggregateCategory([]SubScore{
		{Name: "a", Score: ptr(0), Weight: 5},
		{Name: "b", Score: ptr(0), Weight: 5},
	})
	require.NotNil(t, got)
	assert.GreaterOrEqual(t, *got, 0.0)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreferences_WithDefaults(t *testing.T) {
	p := Preferences{}.WithDefaults()
	assert.Equal(t, HousingRenter, p.Housing)
	assert.Equal(t, WorkStandard, p.Work)

	p = Preferences{Housing: HousingHomeowner, Work: WorkRetiree}.WithDefaults()
	assert.Equal(t, HousingHomeowner, p.Housing)
	assert.Equal(t, WorkRetiree, p.Work)
}

func TestCategoryWeights_Get(t *testing.T) {
	w := CategoryWeights{Climate: 1, Cost: 2, Demographics: 3, QualityOfLife: 4, Culture: 5, Entertainment: 6}
	for i, c := range Categories {
		assert.InDelta(t, float64(i+1), w.Get(c), 0.0001, string(c))
	}
	assert.Zero(t, w.Get("sports"))
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	assert.Equal(t, EqualWeights(), p.Weights)
	assert.Nil(t, p.Minority)
	assert.Empty(t, p.Constraints)
}

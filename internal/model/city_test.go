package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCity_HasTeamIn(t *testing.T) {
	c := City{Teams: []Team{{League: "NFL", Name: "Broncos"}, {League: "nba", Name: "Nuggets"}}}

	tests := []struct {
		league string
		want   bool
	}{
		{"NFL", true},
		{"nfl", true},
		{"NBA", true},
		{"MLB", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.league, func(t *testing.T) {
			assert.Equal(t, tt.want, c.HasTeamIn(tt.league))
		})
	}
	assert.False(t, City{}.HasTeamIn("NFL"))
}

func TestCityMetrics_NullIsPreserved(t *testing.T) {
	var m CityMetrics
	v := 245.0
	m.Climate.SunnyDays = &v

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sunny_days":245`)
	assert.Contains(t, string(data), `"rainy_days":null`)

	var back CityMetrics
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Climate.SunnyDays)
	assert.Nil(t, back.Climate.RainyDays)
}

func TestCity_TeamCount(t *testing.T) {
	assert.Nil(t, City{}.TeamCount(), "never recorded")

	none := City{TeamsKnown: true}.TeamCount()
	require.NotNil(t, none)
	assert.Zero(t, *none)

	two := City{Teams: []Team{{League: "NFL"}, {League: "NBA"}}}.TeamCount()
	require.NotNil(t, two)
	assert.InDelta(t, 2, *two, 0.0001)

	data, err := json.Marshal(City{ID: "boise-id", TeamsKnown: true})
	require.NoError(t, err)
	var back City
	require.NoError(t, json.Unmarshal(data, &back))
	assert.NotNil(t, back.TeamCount())
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pefman/w40k-roster/internal/models"
)

func battlewagonCapacity() *models.TransportCapacity {
	return &models.TransportCapacity{
		BaseCapacity: 22,
		Multipliers: []models.CapacityMultiplier{
			{Name: "Mega Armour", Slots: 2, Match: models.MatchKeyword},
			{Name: "Jump Pack", Slots: 2, Match: models.MatchKeyword},
			{Name: "Ghazghkull Thraka", Slots: 4, Match: models.MatchModel},
		},
	}
}

func TestModelSlots(t *testing.T) {
	tc := battlewagonCapacity()

	tests := []struct {
		name string
		unit models.EnrichedUnit
		want int
	}{
		{
			name: "one slot per model",
			unit: squad("boyz", "Boyz", "Boyz", "boy", 10, "Infantry"),
			want: 10,
		},
		{
			name: "keyword multiplier",
			unit: squad("meganobz", "Meganobz", "Meganobz", "meganob", 3, "Infantry", "Mega Armour"),
			want: 6,
		},
		{
			name: "largest keyword multiplier wins",
			unit: models.EnrichedUnit{
				ModelCount: 2,
				ModelStats: []models.ModelStats{stat("Nob")},
				Keywords:   []string{"mega armour", "Jump Pack"},
			},
			want: 4,
		},
		{
			// Makari shares the Ghazghkull Thraka keyword but not the model
			// multiplier; it still pays the unit's Mega Armour cost.
			name: "model multiplier only for the named stat line",
			unit: models.EnrichedUnit{
				ModelCount: 2,
				ModelStats: []models.ModelStats{stat("Ghazghkull Thraka"), stat("Makari")},
				ModelCountByProfile: map[string]int{
					"ghazghkull thraka": 1,
					"makari":            1,
				},
				Keywords: []string{"Character", "Mega Armour", "Ghazghkull Thraka"},
			},
			want: 6,
		},
		{
			name: "model multiplier without keywords",
			unit: models.EnrichedUnit{
				ModelCount:          2,
				ModelStats:          []models.ModelStats{stat("Ghazghkull Thraka"), stat("Makari")},
				ModelCountByProfile: map[string]int{"ghazghkull thraka": 1, "makari": 1},
			},
			want: 5,
		},
		{
			name: "no stat lines falls back to model count",
			unit: models.EnrichedUnit{ModelCount: 7, Keywords: []string{"Mega Armour"}},
			want: 7,
		},
		{
			name: "missing profile count on a multi-line unit counts one",
			unit: models.EnrichedUnit{
				ModelCount: 10,
				ModelStats: []models.ModelStats{stat("Boss Nob"), stat("Boy")},
				ModelCountByProfile: map[string]int{
					"boy": 9,
				},
			},
			want: 10,
		},
		{
			name: "single stat line without profile counts uses model count",
			unit: models.EnrichedUnit{
				ModelCount: 5,
				ModelStats: []models.ModelStats{stat("Stormboy")},
				Keywords:   []string{"Jump Pack"},
			},
			want: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.unit
			assert.Equal(t, tt.want, ModelSlots(&u, tc))
		})
	}
}

func TestModelSlots_NilCapacity(t *testing.T) {
	u := squad("boyz", "Boyz", "Boyz", "boy", 10, "Mega Armour")
	assert.Equal(t, 10, ModelSlots(&u, nil))
}

func TestExcludedBy(t *testing.T) {
	exclusions := []string{"Jump Pack", "Ghazghkull Thraka"}

	stormboyz := squad("s", "Stormboyz", "Stormboyz", "Stormboy", 5, "Infantry", "Jump Pack")
	exc, ok := excludedBy(&stormboyz, exclusions)
	assert.True(t, ok)
	assert.Equal(t, "Jump Pack", exc)

	ghaz := models.EnrichedUnit{Name: "Ghazghkull Thraka"}
	_, ok = excludedBy(&ghaz, exclusions)
	assert.True(t, ok, "matched by unit name")

	byModel := models.EnrichedUnit{Name: "Warlord Group", ModelStats: []models.ModelStats{stat("Ghazghkull Thraka")}}
	_, ok = excludedBy(&byModel, exclusions)
	assert.True(t, ok, "matched by stat line name")

	boyz := squad("b", "Boyz", "Boyz", "Boy", 10, "Infantry", "Mob")
	_, ok = excludedBy(&boyz, exclusions)
	assert.False(t, ok)

	_, ok = excludedBy(&boyz, []string{"  "})
	assert.False(t, ok, "blank exclusions never match")
}

package engine

import (
	"strings"

	"github.com/pefman/w40k-roster/internal/models"
)

// ModelSlots is the transport space a unit takes in tc.
//
// Each stat line costs its model count times a per-model cost: a model
// multiplier naming that exact stat line, else the largest keyword
// multiplier the unit qualifies for, else 1. Units without stat lines take
// one slot per model.
func ModelSlots(u *models.EnrichedUnit, tc *models.TransportCapacity) int {
	if len(u.ModelStats) == 0 {
		return u.ModelCount
	}

	byModel := map[string]int{}
	byKeyword := map[string]int{}
	if tc != nil {
		for _, m := range tc.Multipliers {
			key := strings.ToLower(m.Name)
			switch m.Match {
			case models.MatchModel:
				byModel[key] = m.Slots
			case models.MatchKeyword:
				byKeyword[key] = m.Slots
			}
		}
	}

	// Keyword multipliers apply to the whole unit.
	keywordCost := 0
	for _, kw := range u.Keywords {
		keywordCost = max(keywordCost, byKeyword[strings.ToLower(kw)])
	}

	total := 0
	for _, st := range u.ModelStats {
		cost := byModel[strings.ToLower(st.Name)]
		if cost == 0 {
			cost = keywordCost
		}
		if cost == 0 {
			cost = 1
		}
		total += profileCount(u, st.Name) * cost
	}
	return total
}

func profileCount(u *models.EnrichedUnit, profile string) int {
	if n := u.ModelCountByProfile[strings.ToLower(profile)]; n > 0 {
		return n
	}
	if len(u.ModelStats) == 1 {
		return u.ModelCount
	}
	return 1
}

// excludedBy returns the first exclusion matching the unit's keywords, name
// or stat line names, compared as lowercase substrings.
func excludedBy(u *models.EnrichedUnit, exclusions []string) (string, bool) {
	for _, exc := range exclusions {
		needle := strings.ToLower(strings.TrimSpace(exc))
		if needle == "" {
			continue
		}
		if strings.Contains(strings.ToLower(u.Name), needle) {
			return exc, true
		}
		for _, kw := range u.Keywords {
			if strings.Contains(strings.ToLower(kw), needle) {
				return exc, true
			}
		}
		for _, st := range u.ModelStats {
			if strings.Contains(strings.ToLower(st.Name), needle) {
				return exc, true
			}
		}
	}
	return "", false
}

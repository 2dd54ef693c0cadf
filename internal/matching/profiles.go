package matching

import (
	"strings"

	"github.com/pefman/w40k-roster/internal/models"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

// ProfileModelCounts estimates how many of a unit's models use each reference
// stat line, keyed by the lowercased stat line name.
//
// A single stat line takes every model. Otherwise stat lines named like a
// parsed model take that model's count, and the models left over are split
// evenly across the remaining stat lines with at least one each. The split is
// a best-effort guess; the roster text does not say which model uses which
// line when the names differ.
func ProfileModelCounts(stats []models.ModelStats, parsed []models.ParsedModel, modelCount int) map[string]int {
	out := make(map[string]int, len(stats))
	if len(stats) == 0 {
		return out
	}
	if len(stats) == 1 {
		out[strings.ToLower(stats[0].Name)] = modelCount
		return out
	}

	matched := 0
	var unmatched []string
	for _, st := range stats {
		key := strings.ToLower(st.Name)
		if pm, ok := findParsedModel(parsed, st.Name); ok {
			out[key] = pm.Count
			matched += pm.Count
			continue
		}
		unmatched = append(unmatched, key)
	}

	if len(unmatched) > 0 {
		remaining := max(modelCount-matched, len(unmatched))
		each := max(remaining/len(unmatched), 1)
		for _, key := range unmatched {
			out[key] = each
		}
	}
	return out
}

func findParsedModel(parsed []models.ParsedModel, name string) (models.ParsedModel, bool) {
	for _, pm := range parsed {
		if wahapedia.SameName(pm.Name, name) {
			return pm, true
		}
	}
	return models.ParsedModel{}, false
}

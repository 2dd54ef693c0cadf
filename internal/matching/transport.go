package matching

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pefman/w40k-roster/internal/models"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

var (
	capacityRe = regexp.MustCompile(`(?i)\btransport\s+capacity\s+of\s+(\d+)`)
	// "Each Mega Armour or Jump Pack model takes up the space of 2 models"
	eachModelRe = regexp.MustCompile(`(?i)\beach\s+([^.!]+?)\s+models?\s+takes?\s+up\s+the\s+space\s+of\s+(\d+)\s+models?`)
	// "The Ghazghkull Thraka model takes up the space of 4 models", only at a sentence start
	namedModelRe = regexp.MustCompile(`(?i)(?:^|[.!]\s+)the\s+([^.!]+?)\s+model\s+takes?\s+up\s+the\s+space\s+of\s+(\d+)\s+models?`)
	// "It cannot transport Jump Pack or Ghazghkull Thraka models"
	exclusionRe = regexp.MustCompile(`(?i)\bcannot\s+transport\s+([^.!]+?)\s+models`)

	alternativesRe = regexp.MustCompile(`(?i)\s*,\s*(?:or\s+)?|\s+or\s+`)
)

// ParseTransportCapacity reads a datasheet's transport prose. It returns nil
// when the text has no "transport capacity of N" clause.
func ParseTransportCapacity(text string) *models.TransportCapacity {
	text = wahapedia.ScrubHTML(text)
	if text == "" {
		return nil
	}
	m := capacityRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	base, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}

	tc := &models.TransportCapacity{
		BaseCapacity: base,
		RawText:      text,
		Multipliers:  []models.CapacityMultiplier{},
		Exclusions:   []string{},
	}

	for _, m := range eachModelRe.FindAllStringSubmatch(text, -1) {
		slots, _ := strconv.Atoi(m[2])
		for _, name := range alternatives(m[1]) {
			tc.Multipliers = append(tc.Multipliers, models.CapacityMultiplier{
				Name:  name,
				Slots: slots,
				Match: models.MatchKeyword,
			})
		}
	}

	for _, m := range namedModelRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if hasMultiplier(tc.Multipliers, name) {
			continue
		}
		slots, _ := strconv.Atoi(m[2])
		tc.Multipliers = append(tc.Multipliers, models.CapacityMultiplier{
			Name:  name,
			Slots: slots,
			Match: models.MatchModel,
		})
	}

	for _, m := range exclusionRe.FindAllStringSubmatch(text, -1) {
		tc.Exclusions = append(tc.Exclusions, alternatives(m[1])...)
	}
	return tc
}

// alternatives splits "A, B or C" into its names.
func alternatives(s string) []string {
	var out []string
	for _, part := range alternativesRe.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hasMultiplier(ms []models.CapacityMultiplier, name string) bool {
	for _, m := range ms {
		if strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

package matching

import (
	"strings"

	"github.com/pefman/w40k-roster/internal/wahapedia"
)

// Phrases that let a leader join a unit which already has one attached.
var secondaryLeaderPhrases = []string{
	"already been attached",
	"already has a character",
	"already has a character unit",
	"even if one character",
	"even if a character",
	"can be attached as if",
	"can still be attached",
}

func hasSecondaryPhrase(text string) bool {
	text = strings.ToLower(wahapedia.ScrubHTML(text))
	for _, p := range secondaryLeaderPhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// IsSecondaryLeader reports whether any ability of the datasheet allows it to
// co-lead a unit. Inline descriptions, referenced shared abilities and the
// ability names are scanned.
func IsSecondaryLeader(ref Reference, datasheetID string) bool {
	for _, ab := range ref.Abilities(datasheetID) {
		if hasSecondaryPhrase(ab.Description) {
			return true
		}
		if ab.AbilityID != "" {
			if shared, ok := ref.AbilityRef(ab.AbilityID); ok && hasSecondaryPhrase(shared.Description) {
				return true
			}
		}
		if hasSecondaryPhrase(ab.Name) {
			return true
		}
	}
	return false
}

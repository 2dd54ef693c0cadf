// Package matching resolves a parsed roster against the Wahapedia reference
// data and derives the computed attributes of each unit.
package matching

import (
	"strings"

	"github.com/pefman/w40k-roster/internal/wahapedia"
)

// Reference is the read side of the Wahapedia index that enrichment needs.
// Name lookups compare wahapedia.NormalizeName keys and report a miss with
// ok == false.
type Reference interface {
	FactionByName(name string) (wahapedia.Faction, bool)
	Faction(id string) (wahapedia.Faction, bool)
	DatasheetByName(factionID, name string) (wahapedia.Datasheet, bool)
	Datasheet(id string) (wahapedia.Datasheet, bool)
	Models(datasheetID string) []wahapedia.Model
	Wargear(datasheetID string) []wahapedia.Wargear
	Abilities(datasheetID string) []wahapedia.DatasheetAbility
	Keywords(datasheetID string) []wahapedia.Keyword
	LeaderTargets(datasheetID string) []string
	AbilityRef(id string) (wahapedia.AbilityRef, bool)
	FactionAbilities(factionID string) []wahapedia.AbilityRef
	DetachmentByName(factionID, name string) (wahapedia.Detachment, bool)
	DetachmentAbilities(detachmentID string) []wahapedia.DetachmentAbility
	Stratagems(detachmentID string) []wahapedia.Stratagem
	Enhancements(detachmentID string) []wahapedia.Enhancement
	EnhancementByName(factionID, name string) (wahapedia.Enhancement, bool)
}

var _ Reference = (*wahapedia.Index)(nil)

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func MatchFaction(ref Reference, name string) (wahapedia.Faction, bool) {
	if blank(name) {
		return wahapedia.Faction{}, false
	}
	return ref.FactionByName(name)
}

func MatchDatasheet(ref Reference, factionID, name string) (wahapedia.Datasheet, bool) {
	if factionID == "" || blank(name) {
		return wahapedia.Datasheet{}, false
	}
	return ref.DatasheetByName(factionID, name)
}

func MatchDetachment(ref Reference, factionID, name string) (wahapedia.Detachment, bool) {
	if factionID == "" || blank(name) {
		return wahapedia.Detachment{}, false
	}
	return ref.DetachmentByName(factionID, name)
}

func MatchEnhancement(ref Reference, factionID, name string) (wahapedia.Enhancement, bool) {
	if factionID == "" || blank(name) {
		return wahapedia.Enhancement{}, false
	}
	return ref.EnhancementByName(factionID, name)
}

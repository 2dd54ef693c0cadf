package matching

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pefman/w40k-roster/internal/models"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

var ErrReferenceNotLoaded = errors.New("reference index not loaded")

// Enricher merges parsed rosters with a Reference. It holds no per-run state
// and may be shared between goroutines when the Reference is read-only.
type Enricher struct {
	ref Reference
	log *zap.Logger
}

func NewEnricher(ref Reference, log *zap.Logger) *Enricher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enricher{ref: ref, log: log}
}

// Enrich resolves every unit of the parsed list. Matching problems never fail
// the call; they are reported as list warnings and per-unit match warnings.
func (e *Enricher) Enrich(parsed models.ParsedArmyList) (*models.EnrichedArmyList, error) {
	if e == nil || e.ref == nil {
		return nil, ErrReferenceNotLoaded
	}

	out := &models.EnrichedArmyList{
		ArmyName:    parsed.ArmyName,
		FactionName: parsed.Faction,
		GameSize:    parsed.GameSize,
		TotalPoints: parsed.TotalPoints,
		Units:       make([]models.EnrichedUnit, 0, len(parsed.Units)),
		Warnings:    []string{},
	}

	faction, ok := MatchFaction(e.ref, parsed.Faction)
	if ok {
		out.FactionID = faction.ID
		out.FactionName = faction.Name
		out.Detachment = e.detachment(faction.ID, parsed.Detachment, &out.Warnings)
		out.FactionAbility = e.factionAbility(faction.ID)
	} else {
		out.Warnings = append(out.Warnings, fmt.Sprintf(`Could not match faction "%s"`, parsed.Faction))
	}

	names := displayNames(parsed.Units)
	for i, u := range parsed.Units {
		out.Units = append(out.Units, e.unit(u, out.FactionID, names[i]))
	}

	unitWarnings := 0
	for _, u := range out.Units {
		unitWarnings += len(u.MatchWarnings)
	}
	e.log.Debug("roster enriched",
		zap.String("army", out.ArmyName),
		zap.String("faction_id", out.FactionID),
		zap.Int("units", len(out.Units)),
		zap.Int("warnings", len(out.Warnings)),
		zap.Int("unit_warnings", unitWarnings))
	return out, nil
}

// displayNames keeps the first occurrence of a name and numbers the rest
// "Name #2", "Name #3" in listing order.
func displayNames(units []models.ParsedUnit) []string {
	seen := make(map[string]int, len(units))
	out := make([]string, len(units))
	for i, u := range units {
		seen[u.Name]++
		if n := seen[u.Name]; n > 1 {
			out[i] = fmt.Sprintf("%s #%d", u.Name, n)
		} else {
			out[i] = u.Name
		}
	}
	return out
}

func (e *Enricher) detachment(factionID, name string, warnings *[]string) *models.DetachmentInfo {
	det, ok := MatchDetachment(e.ref, factionID, name)
	if !ok {
		if !blank(name) {
			*warnings = append(*warnings, fmt.Sprintf(`Could not match detachment "%s"`, name))
		}
		return nil
	}

	info := &models.DetachmentInfo{
		DetachmentID: det.ID,
		Name:         det.Name,
		Stratagems:   []models.Stratagem{},
		Enhancements: []models.Enhancement{},
	}
	if abs := e.ref.DetachmentAbilities(det.ID); len(abs) > 0 {
		info.Ability = &models.FactionAbility{
			Name:        abs[0].Name,
			Description: wahapedia.ScrubHTML(abs[0].Description),
		}
	}
	for _, s := range e.ref.Stratagems(det.ID) {
		info.Stratagems = append(info.Stratagems, models.Stratagem{
			Name:        s.Name,
			Type:        s.Type,
			CPCost:      s.CPCost,
			Description: wahapedia.ScrubHTML(s.Description),
			Phase:       s.Phase,
			Turn:        s.Turn,
		})
	}
	for _, en := range e.ref.Enhancements(det.ID) {
		info.Enhancements = append(info.Enhancements, models.Enhancement{
			Name:        en.Name,
			Description: wahapedia.ScrubHTML(en.Description),
			Cost:        en.Cost,
		})
	}
	return info
}

func (e *Enricher) factionAbility(factionID string) *models.FactionAbility {
	abs := e.ref.FactionAbilities(factionID)
	if len(abs) == 0 {
		return nil
	}
	return &models.FactionAbility{
		Name:        abs[0].Name,
		Description: wahapedia.ScrubHTML(abs[0].Description),
	}
}

func (e *Enricher) unit(u models.ParsedUnit, factionID, displayName string) models.EnrichedUnit {
	eu := models.EnrichedUnit{
		InstanceID:      u.ID,
		DisplayName:     displayName,
		Name:            u.Name,
		Role:            u.Role,
		Points:          u.Points,
		IsWarlord:       u.IsWarlord,
		Equipment:       append([]string{}, u.Equipment...),
		ModelStats:      []models.ModelStats{},
		Abilities:       []models.UnitAbility{},
		Keywords:        []string{},
		FactionKeywords: []string{},
		ModelCount:      u.ModelCount(),
		MatchWarnings:   []string{},
	}

	ds, found := MatchDatasheet(e.ref, factionID, u.Name)
	if !found {
		eu.MatchWarnings = append(eu.MatchWarnings,
			fmt.Sprintf(`Could not match unit "%s" to a Wahapedia datasheet`, u.Name))
	} else {
		eu.DatasheetID = ds.ID
		eu.ModelStats = e.modelStats(ds.ID)
		eu.Abilities = e.abilities(ds.ID)
		eu.Keywords, eu.FactionKeywords = e.keywords(ds.ID)
	}

	var wargear []wahapedia.Wargear
	if found {
		wargear = e.ref.Wargear(ds.ID)
	}
	weapons := MatchWeapons(u.AllWeapons(), wargear)
	if found {
		// Each stub line moves once; its count is per model, not per item.
		eu.Weapons = make([]models.EnrichedWeapon, 0, len(weapons))
		for _, w := range weapons {
			if w.IsStub() {
				eu.Equipment = append(eu.Equipment, w.Name)
				continue
			}
			eu.Weapons = append(eu.Weapons, w)
		}
	} else {
		eu.Weapons = weapons
	}

	if u.Enhancement != "" {
		if en, ok := MatchEnhancement(e.ref, factionID, u.Enhancement); ok {
			eu.Enhancement = &models.Enhancement{
				Name:        en.Name,
				Description: wahapedia.ScrubHTML(en.Description),
				Cost:        en.Cost,
			}
			eu.Abilities = append(eu.Abilities, models.UnitAbility{
				Name:        en.Name,
				Description: eu.Enhancement.Description,
				Kind:        models.AbilityEnhancement,
			})
		} else {
			eu.Enhancement = &models.Enhancement{Name: u.Enhancement}
			eu.MatchWarnings = append(eu.MatchWarnings,
				fmt.Sprintf(`Could not match enhancement "%s"`, u.Enhancement))
		}
	}

	eu.IsCharacter = u.Role == models.RoleCharacters || eu.HasKeyword("Character")

	if found && eu.IsCharacter {
		if canLead := e.leaderTargetNames(ds.ID); len(canLead) > 0 {
			eu.LeaderMapping = &models.LeaderMapping{
				CanLead:           canLead,
				IsSecondaryLeader: IsSecondaryLeader(e.ref, ds.ID),
			}
		}
	}
	if found && ds.Transport != "" {
		eu.TransportCapacity = ParseTransportCapacity(ds.Transport)
	}

	eu.ModelCountByProfile = ProfileModelCounts(eu.ModelStats, u.Models, eu.ModelCount)
	return eu
}

func (e *Enricher) modelStats(datasheetID string) []models.ModelStats {
	rows := e.ref.Models(datasheetID)
	out := make([]models.ModelStats, 0, len(rows))
	for _, m := range rows {
		out = append(out, models.ModelStats{
			Name:  m.Name,
			M:     m.M,
			T:     m.T,
			Sv:    m.Sv,
			InvSv: invulnerable(m.InvSv),
			W:     m.W,
			Ld:    plusSuffix(m.Ld),
			OC:    m.OC,
		})
	}
	return out
}

func invulnerable(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == models.Unknown {
		return models.Unknown
	}
	return plusSuffix(s)
}

func plusSuffix(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "+") {
		return s
	}
	return s + "+"
}

func (e *Enricher) abilities(datasheetID string) []models.UnitAbility {
	var out []models.UnitAbility
	for _, ab := range e.ref.Abilities(datasheetID) {
		name, desc := ab.Name, ab.Description
		if ab.AbilityID != "" && (blank(name) || blank(desc)) {
			if shared, ok := e.ref.AbilityRef(ab.AbilityID); ok {
				if blank(name) {
					name = shared.Name
				}
				if blank(desc) {
					desc = shared.Description
				}
			}
		}
		if blank(name) {
			continue
		}
		out = append(out, models.UnitAbility{
			Name:        strings.TrimSpace(name),
			Description: wahapedia.ScrubHTML(desc),
			Kind:        models.ParseAbilityKind(ab.Type),
		})
	}
	if out == nil {
		out = []models.UnitAbility{}
	}
	return out
}

// keywords splits the datasheet keywords into unit and faction keywords,
// dropping repeats.
func (e *Enricher) keywords(datasheetID string) (kws, factionKws []string) {
	kws, factionKws = []string{}, []string{}
	seen := make(map[string]bool)
	for _, k := range e.ref.Keywords(datasheetID) {
		name := strings.TrimSpace(k.Keyword)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		if k.IsFaction {
			factionKws = append(factionKws, name)
		} else {
			kws = append(kws, name)
		}
	}
	return kws, factionKws
}

func (e *Enricher) leaderTargetNames(datasheetID string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range e.ref.LeaderTargets(datasheetID) {
		ds, ok := e.ref.Datasheet(id)
		if !ok || ds.Name == "" || seen[ds.Name] {
			continue
		}
		seen[ds.Name] = true
		out = append(out, ds.Name)
	}
	return out
}

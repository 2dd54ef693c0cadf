package wahapedia

import (
	"sort"
	"strings"
)

// Index is the read-only lookup layer over one export. Build it once with
// NewIndex or Load; afterwards it is safe for concurrent readers.
//
// Grouped rows keep the export order, except stat lines and wargear which are
// ordered by their line column.
type Index struct {
	lastUpdate string

	factions     []Faction
	factionsByID map[string]Faction

	detachments     []Detachment
	detachmentsByID map[string]Detachment

	datasheetsByID map[string]Datasheet
	// faction id -> normalized name -> datasheet id
	datasheetsByName map[string]map[string]string

	models    map[string][]Model
	wargear   map[string][]Wargear
	abilities map[string][]DatasheetAbility
	keywords  map[string][]Keyword
	leaders   map[string][]string

	enhancements        []Enhancement
	enhancementsByDet   map[string][]Enhancement
	detachmentAbilities map[string][]DetachmentAbility
	stratagems          map[string][]Stratagem

	abilityRefs    []AbilityRef
	abilityRefByID map[string]AbilityRef
}

// Summary counts the indexed records.
type Summary struct {
	LastUpdate   string `json:"last_update"`
	Factions     int    `json:"factions"`
	Datasheets   int    `json:"datasheets"`
	Detachments  int    `json:"detachments"`
	Enhancements int    `json:"enhancements"`
	Stratagems   int    `json:"stratagems"`
	Abilities    int    `json:"abilities"`
}

func NewIndex(t Tables) *Index {
	idx := &Index{
		lastUpdate:          t.LastUpdate,
		factionsByID:        map[string]Faction{},
		detachmentsByID:     map[string]Detachment{},
		datasheetsByID:      map[string]Datasheet{},
		datasheetsByName:    map[string]map[string]string{},
		models:              map[string][]Model{},
		wargear:             map[string][]Wargear{},
		abilities:           map[string][]DatasheetAbility{},
		keywords:            map[string][]Keyword{},
		leaders:             map[string][]string{},
		enhancementsByDet:   map[string][]Enhancement{},
		detachmentAbilities: map[string][]DetachmentAbility{},
		stratagems:          map[string][]Stratagem{},
		abilityRefByID:      map[string]AbilityRef{},
	}
	if idx.lastUpdate == "" {
		idx.lastUpdate = LastUpdateUnknown
	}

	for _, f := range t.Factions {
		if _, dup := idx.factionsByID[f.ID]; !dup {
			idx.factions = append(idx.factions, f)
		}
		idx.factionsByID[f.ID] = f
	}
	for _, d := range t.Detachments {
		idx.detachments = append(idx.detachments, d)
		idx.detachmentsByID[d.ID] = d
	}
	for _, ds := range t.Datasheets {
		idx.datasheetsByID[ds.ID] = ds
		byName := idx.datasheetsByName[ds.FactionID]
		if byName == nil {
			byName = map[string]string{}
			idx.datasheetsByName[ds.FactionID] = byName
		}
		// later rows win, as in the export's own name index
		byName[NormalizeName(ds.Name)] = ds.ID
	}
	for _, m := range t.Models {
		idx.models[m.DatasheetID] = append(idx.models[m.DatasheetID], m)
	}
	for _, w := range t.Wargear {
		idx.wargear[w.DatasheetID] = append(idx.wargear[w.DatasheetID], w)
	}
	for _, a := range t.Abilities {
		idx.abilities[a.DatasheetID] = append(idx.abilities[a.DatasheetID], a)
	}
	for _, k := range t.Keywords {
		idx.keywords[k.DatasheetID] = append(idx.keywords[k.DatasheetID], k)
	}
	for _, l := range t.Leaders {
		idx.leaders[l.LeaderID] = append(idx.leaders[l.LeaderID], l.AttachedID)
	}
	for _, e := range t.Enhancements {
		idx.enhancements = append(idx.enhancements, e)
		idx.enhancementsByDet[e.DetachmentID] = append(idx.enhancementsByDet[e.DetachmentID], e)
	}
	for _, a := range t.DetachmentAbilities {
		idx.detachmentAbilities[a.DetachmentID] = append(idx.detachmentAbilities[a.DetachmentID], a)
	}
	for _, s := range t.Stratagems {
		idx.stratagems[s.DetachmentID] = append(idx.stratagems[s.DetachmentID], s)
	}
	for _, a := range t.AbilityRefs {
		if _, dup := idx.abilityRefByID[a.ID]; !dup {
			idx.abilityRefs = append(idx.abilityRefs, a)
		}
		idx.abilityRefByID[a.ID] = a
	}

	// stable ordering by CSV line column
	for id := range idx.models {
		ms := idx.models[id]
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].Line < ms[j].Line })
	}
	for id := range idx.wargear {
		ws := idx.wargear[id]
		sort.SliceStable(ws, func(i, j int) bool {
			if ws[i].Line == ws[j].Line {
				return ws[i].LineInWargear < ws[j].LineInWargear
			}
			return ws[i].Line < ws[j].Line
		})
	}
	for id := range idx.abilities {
		as := idx.abilities[id]
		sort.SliceStable(as, func(i, j int) bool { return as[i].Line < as[j].Line })
	}
	return idx
}

func (idx *Index) LastUpdate() string { return idx.lastUpdate }

func (idx *Index) Summary() Summary {
	return Summary{
		LastUpdate:   idx.lastUpdate,
		Factions:     len(idx.factions),
		Datasheets:   len(idx.datasheetsByID),
		Detachments:  len(idx.detachments),
		Enhancements: len(idx.enhancements),
		Stratagems:   countGrouped(idx.stratagems),
		Abilities:    len(idx.abilityRefs),
	}
}

func countGrouped[T any](m map[string][]T) int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}

// Factions lists every faction sorted by name.
func (idx *Index) Factions() []Faction {
	out := append([]Faction(nil), idx.factions...)
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

// FactionByName resolves a roster faction line. The faction id is accepted
// too, ignoring case.
func (idx *Index) FactionByName(name string) (Faction, bool) {
	key := NormalizeName(name)
	if key == "" {
		return Faction{}, false
	}
	for _, f := range idx.factions {
		if NormalizeName(f.Name) == key {
			return f, true
		}
	}
	for _, f := range idx.factions {
		if strings.EqualFold(f.ID, strings.TrimSpace(name)) {
			return f, true
		}
	}
	return Faction{}, false
}

func (idx *Index) Faction(id string) (Faction, bool) {
	f, ok := idx.factionsByID[id]
	return f, ok
}

func (idx *Index) DatasheetByName(factionID, name string) (Datasheet, bool) {
	id, ok := idx.datasheetsByName[factionID][NormalizeName(name)]
	if !ok {
		return Datasheet{}, false
	}
	return idx.Datasheet(id)
}

func (idx *Index) Datasheet(id string) (Datasheet, bool) {
	ds, ok := idx.datasheetsByID[id]
	return ds, ok
}

// DatasheetsByFaction lists a faction's datasheets sorted by name.
func (idx *Index) DatasheetsByFaction(factionID string) []Datasheet {
	var out []Datasheet
	for _, id := range idx.datasheetsByName[factionID] {
		out = append(out, idx.datasheetsByID[id])
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

func (idx *Index) Models(datasheetID string) []Model { return idx.models[datasheetID] }

func (idx *Index) Wargear(datasheetID string) []Wargear { return idx.wargear[datasheetID] }

func (idx *Index) Abilities(datasheetID string) []DatasheetAbility {
	return idx.abilities[datasheetID]
}

func (idx *Index) Keywords(datasheetID string) []Keyword { return idx.keywords[datasheetID] }

// LeaderTargets returns the datasheet ids a leader may attach to.
func (idx *Index) LeaderTargets(datasheetID string) []string { return idx.leaders[datasheetID] }

func (idx *Index) AbilityRef(id string) (AbilityRef, bool) {
	a, ok := idx.abilityRefByID[id]
	return a, ok
}

// FactionAbilities returns the shared abilities scoped to a faction, in export order.
func (idx *Index) FactionAbilities(factionID string) []AbilityRef {
	var out []AbilityRef
	for _, a := range idx.abilityRefs {
		if a.FactionID == factionID {
			out = append(out, a)
		}
	}
	return out
}

func (idx *Index) DetachmentByName(factionID, name string) (Detachment, bool) {
	key := NormalizeName(name)
	for _, d := range idx.detachments {
		if d.FactionID == factionID && NormalizeName(d.Name) == key {
			return d, true
		}
	}
	return Detachment{}, false
}

func (idx *Index) DetachmentAbilities(detachmentID string) []DetachmentAbility {
	return idx.detachmentAbilities[detachmentID]
}

func (idx *Index) Stratagems(detachmentID string) []Stratagem {
	return idx.stratagems[detachmentID]
}

func (idx *Index) Enhancements(detachmentID string) []Enhancement {
	return idx.enhancementsByDet[detachmentID]
}

func (idx *Index) EnhancementByName(factionID, name string) (Enhancement, bool) {
	key := NormalizeName(name)
	for _, e := range idx.enhancements {
		if e.FactionID == factionID && NormalizeName(e.Name) == key {
			return e, true
		}
	}
	return Enhancement{}, false
}

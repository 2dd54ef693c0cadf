package models

import "strings"

// ========================= Parsed roster =========================
// Shapes produced by the text parser. Nothing here knows about Wahapedia.

// UnitRole is the roster section a unit was listed under.
type UnitRole string

const (
	RoleCharacters          UnitRole = "characters"
	RoleBattleline          UnitRole = "battleline"
	RoleDedicatedTransports UnitRole = "dedicated_transports"
	RoleOther               UnitRole = "other"
	RoleAllied              UnitRole = "allied"
	RoleFortification       UnitRole = "fortification"
)

// RoleOrder is the display order of roster sections.
var RoleOrder = []UnitRole{
	RoleCharacters,
	RoleBattleline,
	RoleDedicatedTransports,
	RoleOther,
	RoleAllied,
	RoleFortification,
}

// Title returns the section heading used when printing a roster.
func (r UnitRole) Title() string {
	switch r {
	case RoleCharacters:
		return "Characters"
	case RoleBattleline:
		return "Battleline"
	case RoleDedicatedTransports:
		return "Dedicated Transports"
	case RoleAllied:
		return "Allied Units"
	case RoleFortification:
		return "Fortifications"
	default:
		return "Other Datasheets"
	}
}

type ParsedWeapon struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

type ParsedModel struct {
	Name    string         `json:"name" yaml:"name"`
	Count   int            `json:"count" yaml:"count"`
	Weapons []ParsedWeapon `json:"weapons" yaml:"weapons"`
}

type ParsedUnit struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Role      UnitRole `json:"role" yaml:"role"`
	Points    int      `json:"points" yaml:"points"`
	IsWarlord bool     `json:"is_warlord,omitempty" yaml:"is_warlord,omitempty"`
	// Free text after the enhancement marker; empty when the unit has none.
	Enhancement string        `json:"enhancement,omitempty" yaml:"enhancement,omitempty"`
	Models      []ParsedModel `json:"models" yaml:"models"`
	Equipment   []string      `json:"equipment" yaml:"equipment"`
}

// ModelCount is the sum of parsed model counts.
func (u ParsedUnit) ModelCount() int {
	n := 0
	for _, m := range u.Models {
		n += m.Count
	}
	return n
}

// AllWeapons flattens the weapons of every model, in listing order.
func (u ParsedUnit) AllWeapons() []ParsedWeapon {
	var out []ParsedWeapon
	for _, m := range u.Models {
		out = append(out, m.Weapons...)
	}
	return out
}

type ParsedArmyList struct {
	ArmyName    string       `json:"army_name" yaml:"army_name"`
	Faction     string       `json:"faction" yaml:"faction"`
	Detachment  string       `json:"detachment" yaml:"detachment"`
	GameSize    string       `json:"game_size" yaml:"game_size"`
	TotalPoints int          `json:"total_points" yaml:"total_points"`
	Units       []ParsedUnit `json:"units" yaml:"units"`
}

// ========================= Enriched roster =========================

// Unknown is the value of every combat statistic on a stub weapon.
const Unknown = "-"

type ModelStats struct {
	Name  string `json:"name" yaml:"name"`
	M     string `json:"M" yaml:"M"`
	T     string `json:"T" yaml:"T"`
	Sv    string `json:"Sv" yaml:"Sv"`
	InvSv string `json:"inv_sv" yaml:"inv_sv"`
	W     string `json:"W" yaml:"W"`
	Ld    string `json:"Ld" yaml:"Ld"`
	OC    string `json:"OC" yaml:"OC"`
}

type EnrichedWeapon struct {
	Name string `json:"name" yaml:"name"`
	// Label of one attack mode ("Strike", "Sweep"); empty for single-profile weapons.
	ProfileName string `json:"profile_name,omitempty" yaml:"profile_name,omitempty"`
	Count       int    `json:"count" yaml:"count"`
	Range       string `json:"range" yaml:"range"`
	Type        string `json:"type" yaml:"type"`
	A           string `json:"A" yaml:"A"`
	BSWS        string `json:"bs_ws" yaml:"bs_ws"`
	S           string `json:"S" yaml:"S"`
	AP          string `json:"AP" yaml:"AP"`
	D           string `json:"D" yaml:"D"`
	Keywords    string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// IsStub reports whether no reference profile backed this weapon.
func (w EnrichedWeapon) IsStub() bool {
	return w.A == Unknown && w.S == Unknown
}

// StubWeapon builds the placeholder emitted for an unmatched weapon name.
func StubWeapon(name string, count int) EnrichedWeapon {
	return EnrichedWeapon{
		Name:  name,
		Count: count,
		Range: Unknown,
		Type:  Unknown,
		A:     Unknown,
		BSWS:  Unknown,
		S:     Unknown,
		AP:    Unknown,
		D:     Unknown,
	}
}

// AbilityKind is a closed set. Build values with ParseAbilityKind.
type AbilityKind string

const (
	AbilityCore         AbilityKind = "core"
	AbilityFaction      AbilityKind = "faction"
	AbilityDatasheet    AbilityKind = "datasheet"
	AbilityEnhancement  AbilityKind = "enhancement"
	AbilityInvulnerable AbilityKind = "invulnerable"
	AbilityOther        AbilityKind = "other"
)

// ParseAbilityKind maps a Wahapedia ability type column onto AbilityKind.
// Rows without a type are datasheet abilities; unrecognized types become AbilityOther.
func ParseAbilityKind(s string) AbilityKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "core":
		return AbilityCore
	case "faction":
		return AbilityFaction
	case "", "datasheet":
		return AbilityDatasheet
	case "enhancement":
		return AbilityEnhancement
	case "invulnerable", "invul":
		return AbilityInvulnerable
	default:
		return AbilityOther
	}
}

type UnitAbility struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Kind        AbilityKind `json:"type" yaml:"type"`
}

// MultiplierMatch decides what a capacity multiplier is compared against.
type MultiplierMatch string

const (
	// MatchKeyword multipliers apply through the unit keyword set.
	MatchKeyword MultiplierMatch = "keyword"
	// MatchModel multipliers apply only to the stat line with exactly that name.
	MatchModel MultiplierMatch = "model"
)

type CapacityMultiplier struct {
	Name  string          `json:"keyword" yaml:"keyword"`
	Slots int             `json:"slots" yaml:"slots"`
	Match MultiplierMatch `json:"match_type" yaml:"match_type"`
}

type TransportCapacity struct {
	BaseCapacity int                  `json:"base_capacity" yaml:"base_capacity"`
	RawText      string               `json:"raw_text" yaml:"raw_text"`
	Multipliers  []CapacityMultiplier `json:"multipliers" yaml:"multipliers"`
	Exclusions   []string             `json:"exclusions" yaml:"exclusions"`
}

type LeaderMapping struct {
	CanLead           []string `json:"can_lead" yaml:"can_lead"`
	IsSecondaryLeader bool     `json:"is_secondary_leader" yaml:"is_secondary_leader"`
}

// CanLeadName reports whether name is among the eligible targets, ignoring case.
func (l *LeaderMapping) CanLeadName(name string) bool {
	if l == nil {
		return false
	}
	for _, n := range l.CanLead {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

type Enhancement struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Cost        string `json:"cost,omitempty" yaml:"cost,omitempty"`
}

type EnrichedUnit struct {
	InstanceID  string   `json:"instance_id" yaml:"instance_id"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Name        string   `json:"name" yaml:"name"`
	DatasheetID string   `json:"datasheet_id,omitempty" yaml:"datasheet_id,omitempty"` // empty when unmatched
	Role        UnitRole `json:"role" yaml:"role"`
	Points      int      `json:"points" yaml:"points"`
	IsWarlord   bool     `json:"is_warlord,omitempty" yaml:"is_warlord,omitempty"`

	Enhancement *Enhancement `json:"enhancement,omitempty" yaml:"enhancement,omitempty"`
	Equipment   []string     `json:"equipment" yaml:"equipment"`

	ModelStats      []ModelStats     `json:"model_stats" yaml:"model_stats"`
	Weapons         []EnrichedWeapon `json:"weapons" yaml:"weapons"`
	Abilities       []UnitAbility    `json:"abilities" yaml:"abilities"`
	Keywords        []string         `json:"keywords" yaml:"keywords"`
	FactionKeywords []string         `json:"faction_keywords" yaml:"faction_keywords"`

	IsCharacter       bool               `json:"is_character" yaml:"is_character"`
	LeaderMapping     *LeaderMapping     `json:"leader_mapping,omitempty" yaml:"leader_mapping,omitempty"`
	TransportCapacity *TransportCapacity `json:"transport_capacity,omitempty" yaml:"transport_capacity,omitempty"`

	ModelCount int `json:"model_count" yaml:"model_count"`
	// Lowercased reference stat-line name -> parsed models of that profile.
	ModelCountByProfile map[string]int `json:"model_count_by_profile" yaml:"model_count_by_profile"`
	MatchWarnings       []string       `json:"match_warnings" yaml:"match_warnings"`
}

// HasKeyword reports whether the unit carries kw, ignoring case.
func (u *EnrichedUnit) HasKeyword(kw string) bool {
	for _, k := range u.Keywords {
		if strings.EqualFold(k, kw) {
			return true
		}
	}
	return false
}

type FactionAbility struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type Stratagem struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	CPCost      string `json:"cp_cost" yaml:"cp_cost"`
	Description string `json:"description" yaml:"description"`
	Phase       string `json:"phase" yaml:"phase"`
	Turn        string `json:"turn" yaml:"turn"`
}

type DetachmentInfo struct {
	DetachmentID string          `json:"detachment_id" yaml:"detachment_id"`
	Name         string          `json:"name" yaml:"name"`
	Ability      *FactionAbility `json:"ability,omitempty" yaml:"ability,omitempty"`
	Stratagems   []Stratagem     `json:"stratagems" yaml:"stratagems"`
	Enhancements []Enhancement   `json:"enhancements" yaml:"enhancements"`
}

type EnrichedArmyList struct {
	ArmyName       string          `json:"army_name" yaml:"army_name"`
	FactionID      string          `json:"faction_id" yaml:"faction_id"`
	FactionName    string          `json:"faction_name" yaml:"faction_name"`
	Detachment     *DetachmentInfo `json:"detachment,omitempty" yaml:"detachment,omitempty"`
	FactionAbility *FactionAbility `json:"faction_ability,omitempty" yaml:"faction_ability,omitempty"`
	GameSize       string          `json:"game_size" yaml:"game_size"`
	TotalPoints    int             `json:"total_points" yaml:"total_points"`
	Units          []EnrichedUnit  `json:"units" yaml:"units"`
	// List-level match problems (faction, detachment).
	Warnings []string `json:"warnings" yaml:"warnings"`
}

// Unit finds a unit by instance id.
func (l *EnrichedArmyList) Unit(id string) *EnrichedUnit {
	if l == nil {
		return nil
	}
	for i := range l.Units {
		if l.Units[i].InstanceID == id {
			return &l.Units[i]
		}
	}
	return nil
}

package wahapedia

// One record type per Wahapedia export. Field names follow the CSV headers;
// description-like fields are already HTML-scrubbed when loaded through Load.

type Faction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link,omitempty"`
}

type Detachment struct {
	ID        string `json:"id"`
	FactionID string `json:"faction_id"`
	Name      string `json:"name"`
	Legend    string `json:"legend,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Datasheets.csv: id|name|faction_id|source_id|legend|role|loadout|transport|virtual|leader_head|leader_footer|damaged_w|damaged_description|link
type Datasheet struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	FactionID          string `json:"faction_id"`
	SourceID           string `json:"source_id,omitempty"`
	Legend             string `json:"legend,omitempty"`
	Role               string `json:"role,omitempty"`
	Loadout            string `json:"loadout,omitempty"`
	Transport          string `json:"transport,omitempty"`
	Virtual            bool   `json:"virtual,omitempty"`
	LeaderHead         string `json:"leader_head,omitempty"`
	LeaderFooter       string `json:"leader_footer,omitempty"`
	DamagedW           string `json:"damaged_w,omitempty"`
	DamagedDescription string `json:"damaged_description,omitempty"`
	Link               string `json:"link,omitempty"`
}

// Model is one stat line from Datasheets_models.csv.
type Model struct {
	DatasheetID string `json:"datasheet_id"`
	Line        int    `json:"line"`
	Name        string `json:"name"`
	M           string `json:"M"`
	T           string `json:"T"`
	Sv          string `json:"Sv"`
	InvSv       string `json:"inv_sv"`
	InvSvDescr  string `json:"inv_sv_descr,omitempty"`
	W           string `json:"W"`
	Ld          string `json:"Ld"`
	OC          string `json:"OC"`
	BaseSize    string `json:"base_size,omitempty"`
	BaseDescr   string `json:"base_size_descr,omitempty"`
}

// Wargear is one weapon profile row. Multi-profile weapons use several rows
// named "<weapon> - <profile>".
type Wargear struct {
	DatasheetID   string `json:"datasheet_id"`
	Line          int    `json:"line"`
	LineInWargear int    `json:"line_in_wargear"`
	Dice          string `json:"dice,omitempty"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Range         string `json:"range"`
	Type          string `json:"type"`
	A             string `json:"A"`
	BSWS          string `json:"BS_WS"`
	S             string `json:"S"`
	AP            string `json:"AP"`
	D             string `json:"D"`
}

// DatasheetAbility rows either carry their own text or point at a shared
// Abilities.csv entry through AbilityID.
type DatasheetAbility struct {
	DatasheetID string `json:"datasheet_id"`
	Line        int    `json:"line"`
	AbilityID   string `json:"ability_id,omitempty"`
	Model       string `json:"model,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Parameter   string `json:"parameter,omitempty"`
}

type Keyword struct {
	DatasheetID string `json:"datasheet_id"`
	Keyword     string `json:"keyword"`
	Model       string `json:"model,omitempty"`
	IsFaction   bool   `json:"is_faction_keyword"`
}

// Leader links a leader datasheet to a datasheet it may attach to.
type Leader struct {
	LeaderID   string `json:"leader_id"`
	AttachedID string `json:"attached_id"`
}

type Enhancement struct {
	FactionID    string `json:"faction_id"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Cost         string `json:"cost"`
	Detachment   string `json:"detachment"`
	DetachmentID string `json:"detachment_id"`
	Legend       string `json:"legend,omitempty"`
	Description  string `json:"description"`
}

type DetachmentAbility struct {
	ID           string `json:"id"`
	FactionID    string `json:"faction_id"`
	Name         string `json:"name"`
	Legend       string `json:"legend,omitempty"`
	Description  string `json:"description"`
	Detachment   string `json:"detachment"`
	DetachmentID string `json:"detachment_id"`
}

type Stratagem struct {
	FactionID    string `json:"faction_id"`
	Name         string `json:"name"`
	ID           string `json:"id"`
	Type         string `json:"type"`
	CPCost       string `json:"cp_cost"`
	Legend       string `json:"legend,omitempty"`
	Turn         string `json:"turn"`
	Phase        string `json:"phase"`
	Detachment   string `json:"detachment"`
	DetachmentID string `json:"detachment_id"`
	Description  string `json:"description"`
}

// AbilityRef is a shared ability from Abilities.csv. An empty FactionID marks
// a core rule.
type AbilityRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Legend      string `json:"legend,omitempty"`
	FactionID   string `json:"faction_id,omitempty"`
	Description string `json:"description"`
}

// Tables is the full typed content of one Wahapedia export.
type Tables struct {
	Factions            []Faction
	Detachments         []Detachment
	Datasheets          []Datasheet
	Models              []Model
	Wargear             []Wargear
	Abilities           []DatasheetAbility
	Keywords            []Keyword
	Leaders             []Leader
	Enhancements        []Enhancement
	DetachmentAbilities []DetachmentAbility
	Stratagems          []Stratagem
	AbilityRefs         []AbilityRef
	LastUpdate          string
}

package wahapedia

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Export file names, without the .csv extension.
const (
	FileFactions            = "Factions"
	FileDetachments         = "Detachments"
	FileDatasheets          = "Datasheets"
	FileModels              = "Datasheets_models"
	FileWargear             = "Datasheets_wargear"
	FileAbilities           = "Datasheets_abilities"
	FileKeywords            = "Datasheets_keywords"
	FileLeaders             = "Datasheets_leader"
	FileEnhancements        = "Enhancements"
	FileDetachmentAbilities = "Detachment_abilities"
	FileStratagems          = "Stratagems"
	FileAbilityRefs         = "Abilities"
	FileLastUpdate          = "Last_update"
)

// LastUpdateUnknown is reported when the export carries no Last_update file.
const LastUpdateUnknown = "unknown"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// row is one CSV record keyed by its header column.
type row map[string]string

func (r row) str(k string) string { return strings.TrimSpace(r[k]) }

// text is for description-like columns that may carry markup.
func (r row) text(k string) string { return ScrubHTML(r[k]) }

func (r row) num(k string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r[k]))
	if err != nil {
		return 0
	}
	return n
}

func (r row) flag(k string) bool { return strings.EqualFold(strings.TrimSpace(r[k]), "true") }

func readPipeCSV(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	csvr := csv.NewReader(br)
	csvr.Comma = '|'
	// CSV files contain unescaped quotes (e.g., 6" movement), allow them.
	csvr.LazyQuotes = true
	csvr.FieldsPerRecord = -1
	records, err := csvr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	// every line ends with a pipe, which yields an empty last column
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([]row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		r := make(row, len(header))
		for j, h := range header {
			if j < len(rec) {
				r[h] = rec[j]
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func loadTable[T any](dir, name string, conv func(row) T) ([]T, error) {
	rows, err := readPipeCSV(filepath.Join(dir, name+".csv"))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out, nil
}

// LoadTables reads every export file from dir into typed records.
// Last_update is optional; all other files are required.
func LoadTables(dir string) (Tables, error) {
	var (
		t   Tables
		err error
	)
	if t.Factions, err = loadTable(dir, FileFactions, toFaction); err != nil {
		return Tables{}, err
	}
	if t.Detachments, err = loadTable(dir, FileDetachments, toDetachment); err != nil {
		return Tables{}, err
	}
	if t.Datasheets, err = loadTable(dir, FileDatasheets, toDatasheet); err != nil {
		return Tables{}, err
	}
	if t.Models, err = loadTable(dir, FileModels, toModel); err != nil {
		return Tables{}, err
	}
	if t.Wargear, err = loadTable(dir, FileWargear, toWargear); err != nil {
		return Tables{}, err
	}
	if t.Abilities, err = loadTable(dir, FileAbilities, toDatasheetAbility); err != nil {
		return Tables{}, err
	}
	if t.Keywords, err = loadTable(dir, FileKeywords, toKeyword); err != nil {
		return Tables{}, err
	}
	if t.Leaders, err = loadTable(dir, FileLeaders, toLeader); err != nil {
		return Tables{}, err
	}
	if t.Enhancements, err = loadTable(dir, FileEnhancements, toEnhancement); err != nil {
		return Tables{}, err
	}
	if t.DetachmentAbilities, err = loadTable(dir, FileDetachmentAbilities, toDetachmentAbility); err != nil {
		return Tables{}, err
	}
	if t.Stratagems, err = loadTable(dir, FileStratagems, toStratagem); err != nil {
		return Tables{}, err
	}
	if t.AbilityRefs, err = loadTable(dir, FileAbilityRefs, toAbilityRef); err != nil {
		return Tables{}, err
	}

	t.LastUpdate = LastUpdateUnknown
	updates, err := loadTable(dir, FileLastUpdate, func(r row) string { return r.str("last_update") })
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Tables{}, err
	case len(updates) > 0 && updates[0] != "":
		t.LastUpdate = updates[0]
	}
	return t, nil
}

// Load reads an export directory and indexes it.
func Load(dir string) (*Index, error) {
	t, err := LoadTables(dir)
	if err != nil {
		return nil, err
	}
	return NewIndex(t), nil
}

func toFaction(r row) Faction {
	return Faction{ID: r.str("id"), Name: r.str("name"), Link: r.str("link")}
}

func toDetachment(r row) Detachment {
	return Detachment{
		ID:        r.str("id"),
		FactionID: r.str("faction_id"),
		Name:      r.str("name"),
		Legend:    r.text("legend"),
		Type:      r.str("type"),
	}
}

func toDatasheet(r row) Datasheet {
	return Datasheet{
		ID:                 r.str("id"),
		Name:               r.str("name"),
		FactionID:          r.str("faction_id"),
		SourceID:           r.str("source_id"),
		Legend:             r.text("legend"),
		Role:               r.str("role"),
		Loadout:            r.text("loadout"),
		Transport:          r.text("transport"),
		Virtual:            r.flag("virtual"),
		LeaderHead:         r.text("leader_head"),
		LeaderFooter:       r.text("leader_footer"),
		DamagedW:           r.str("damaged_w"),
		DamagedDescription: r.text("damaged_description"),
		Link:               r.str("link"),
	}
}

func toModel(r row) Model {
	return Model{
		DatasheetID: r.str("datasheet_id"),
		Line:        r.num("line"),
		Name:        r.str("name"),
		M:           r.str("M"),
		T:           r.str("T"),
		Sv:          r.str("Sv"),
		InvSv:       r.str("inv_sv"),
		InvSvDescr:  r.text("inv_sv_descr"),
		W:           r.str("W"),
		Ld:          r.str("Ld"),
		OC:          r.str("OC"),
		BaseSize:    r.str("base_size"),
		BaseDescr:   r.text("base_size_descr"),
	}
}

func toWargear(r row) Wargear {
	return Wargear{
		DatasheetID:   r.str("datasheet_id"),
		Line:          r.num("line"),
		LineInWargear: r.num("line_in_wargear"),
		Dice:          r.str("dice"),
		Name:          r.str("name"),
		Description:   r.text("description"),
		Range:         r.str("range"),
		Type:          r.str("type"),
		A:             r.str("A"),
		BSWS:          r.str("BS_WS"),
		S:             r.str("S"),
		AP:            r.str("AP"),
		D:             r.str("D"),
	}
}

func toDatasheetAbility(r row) DatasheetAbility {
	return DatasheetAbility{
		DatasheetID: r.str("datasheet_id"),
		Line:        r.num("line"),
		AbilityID:   r.str("ability_id"),
		Model:       r.str("model"),
		Name:        r.str("name"),
		Description: r.text("description"),
		Type:        r.str("type"),
		Parameter:   r.str("parameter"),
	}
}

func toKeyword(r row) Keyword {
	return Keyword{
		DatasheetID: r.str("datasheet_id"),
		Keyword:     r.str("keyword"),
		Model:       r.str("model"),
		IsFaction:   r.flag("is_faction_keyword"),
	}
}

func toLeader(r row) Leader {
	return Leader{LeaderID: r.str("leader_id"), AttachedID: r.str("attached_id")}
}

func toEnhancement(r row) Enhancement {
	return Enhancement{
		FactionID:    r.str("faction_id"),
		ID:           r.str("id"),
		Name:         r.str("name"),
		Cost:         r.str("cost"),
		Detachment:   r.str("detachment"),
		DetachmentID: r.str("detachment_id"),
		Legend:       r.text("legend"),
		Description:  r.text("description"),
	}
}

func toDetachmentAbility(r row) DetachmentAbility {
	return DetachmentAbility{
		ID:           r.str("id"),
		FactionID:    r.str("faction_id"),
		Name:         r.str("name"),
		Legend:       r.text("legend"),
		Description:  r.text("description"),
		Detachment:   r.str("detachment"),
		DetachmentID: r.str("detachment_id"),
	}
}

func toStratagem(r row) Stratagem {
	return Stratagem{
		FactionID:    r.str("faction_id"),
		Name:         r.str("name"),
		ID:           r.str("id"),
		Type:         r.str("type"),
		CPCost:       r.str("cp_cost"),
		Legend:       r.text("legend"),
		Turn:         r.str("turn"),
		Phase:        r.str("phase"),
		Detachment:   r.str("detachment"),
		DetachmentID: r.str("detachment_id"),
		Description:  r.text("description"),
	}
}

func toAbilityRef(r row) AbilityRef {
	return AbilityRef{
		ID:          r.str("id"),
		Name:        r.str("name"),
		Legend:      r.text("legend"),
		FactionID:   r.str("faction_id"),
		Description: r.text("description"),
	}
}

// Package parser turns roster text exported by the official army builder
// app into a models.ParsedArmyList. Parsing never fails: lines it does not
// recognize are skipped and missing header lines leave empty fields.
package parser

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/pefman/w40k-roster/internal/models"
)

const (
	bullet    = "•" // first level: models, flat wargear, markers
	subBullet = "◦" // second level: weapons of the open model
)

var (
	armyHeaderRe  = regexp.MustCompile(`^(.+?)\s*\((\d[\d,]*)\s*[Pp]oints?\)$`)
	sectionRe     = regexp.MustCompile(`^[A-Z][A-Z\s]+$`)
	unitRe        = regexp.MustCompile(`^(.+?)\s*\((\d+)\s*[Pp]oints?\)$`)
	modelRe       = regexp.MustCompile(`^•\s+(?:(\d+)x\s+)?(.+)$`)
	weaponRe      = regexp.MustCompile(`^◦\s+(?:(\d+)x\s+)?(.+)$`)
	enhancementRe = regexp.MustCompile(`^•\s+Enhancements?:\s*(.+)$`)
	warlordRe     = regexp.MustCompile(`(?i)^•\s+Warlord$`)
	footerRe      = regexp.MustCompile(`(?i)^Exported with App Version`)
)

var sectionRoles = map[string]models.UnitRole{
	"characters":           models.RoleCharacters,
	"character":            models.RoleCharacters,
	"battleline":           models.RoleBattleline,
	"dedicated transports": models.RoleDedicatedTransports,
	"dedicated transport":  models.RoleDedicatedTransports,
	"other datasheets":     models.RoleOther,
	"other":                models.RoleOther,
	"allied units":         models.RoleAllied,
	"fortifications":       models.RoleFortification,
	"fortification":        models.RoleFortification,
}

// headerLines is the number of non-blank lines before the first section.
const headerLines = 4

// sectionRole maps an all-caps section line to its role.
func sectionRole(line string) (models.UnitRole, bool) {
	if !sectionRe.MatchString(line) {
		return "", false
	}
	key := strings.Join(strings.Fields(strings.ToLower(line)), " ")
	role, ok := sectionRoles[key]
	return role, ok
}

type state struct {
	out     models.ParsedArmyList
	role    models.UnitRole
	unit    *models.ParsedUnit
	model   *models.ParsedModel
	nextID  int
	headers int
}

// Parse reads a whole export. Unit ids are unit_1, unit_2, ... in listing
// order, so the same text always yields the same result.
func Parse(text string) models.ParsedArmyList {
	st := &state{role: models.RoleOther}
	st.out.Units = []models.ParsedUnit{}

	// bufio.Reader has no line length limit, unlike bufio.Scanner.
	rd := bufio.NewReader(strings.NewReader(text))
	for {
		raw, err := rd.ReadString('\n')
		st.line(strings.TrimSpace(raw))
		if err != nil {
			break
		}
	}
	st.finishUnit()

	for i := range st.out.Units {
		reclassify(&st.out.Units[i])
	}
	return st.out
}

func (st *state) line(line string) {
	if line == "" || footerRe.MatchString(line) {
		return
	}
	if st.headers < headerLines {
		if _, ok := sectionRole(line); !ok {
			st.header(line)
			return
		}
		// a section before the header is complete ends the header early
		st.headers = headerLines
	}
	st.body(line)
}

func (st *state) header(line string) {
	st.headers++
	switch st.headers {
	case 1:
		if m := armyHeaderRe.FindStringSubmatch(line); m != nil {
			st.out.ArmyName = strings.TrimSpace(m[1])
			st.out.TotalPoints, _ = strconv.Atoi(strings.ReplaceAll(m[2], ",", ""))
		} else {
			st.out.ArmyName = line
		}
	case 2:
		st.out.Faction = line
	case 3:
		st.out.Detachment = line
	case 4:
		st.out.GameSize = line
	}
}

func (st *state) body(line string) {
	if role, ok := sectionRole(line); ok {
		st.finishUnit()
		st.role = role
		return
	}

	if m := unitRe.FindStringSubmatch(line); m != nil && !isBulleted(line) {
		st.finishUnit()
		st.nextID++
		pts, _ := strconv.Atoi(m[2])
		st.unit = &models.ParsedUnit{
			ID:        "unit_" + strconv.Itoa(st.nextID),
			Name:      strings.TrimSpace(m[1]),
			Role:      st.role,
			Points:    pts,
			Models:    []models.ParsedModel{},
			Equipment: []string{},
		}
		return
	}

	if st.unit == nil {
		return
	}

	if m := enhancementRe.FindStringSubmatch(line); m != nil {
		st.unit.Enhancement = strings.TrimSpace(m[1])
		return
	}
	if warlordRe.MatchString(line) {
		st.unit.IsWarlord = true
		return
	}
	if m := weaponRe.FindStringSubmatch(line); m != nil {
		if st.model != nil {
			st.model.Weapons = append(st.model.Weapons, models.ParsedWeapon{
				Name:  strings.TrimSpace(m[2]),
				Count: count(m[1]),
			})
		}
		return
	}
	if m := modelRe.FindStringSubmatch(line); m != nil {
		st.finishModel()
		st.model = &models.ParsedModel{
			Name:    strings.TrimSpace(m[2]),
			Count:   count(m[1]),
			Weapons: []models.ParsedWeapon{},
		}
	}
}

func (st *state) finishModel() {
	if st.model != nil && st.unit != nil {
		st.unit.Models = append(st.unit.Models, *st.model)
	}
	st.model = nil
}

func (st *state) finishUnit() {
	if st.unit == nil {
		return
	}
	st.finishModel()
	st.out.Units = append(st.out.Units, *st.unit)
	st.unit = nil
}

func isBulleted(line string) bool {
	return strings.HasPrefix(line, bullet) || strings.HasPrefix(line, subBullet)
}

// count parses the optional "Nx" prefix; absent or zero means one.
func count(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// reclassify resolves the two bullet styles the app emits.
//
// Flat style: no bullet carries sub-weapons, so the bullets are the wargear
// of a single model named after the unit. A bullet naming the unit itself is
// that model and only contributes its count.
//
// Mixed style: bullets with sub-weapons are models. A bare bullet stays a
// model when its name repeats a modeled name; otherwise it is equipment,
// listed once per count.
func reclassify(u *models.ParsedUnit) {
	var armed, bare []models.ParsedModel
	for _, m := range u.Models {
		if len(m.Weapons) > 0 {
			armed = append(armed, m)
		} else {
			bare = append(bare, m)
		}
	}

	switch {
	case len(armed) == 0 && len(bare) > 0:
		implicit := models.ParsedModel{Name: u.Name, Count: 1, Weapons: []models.ParsedWeapon{}}
		for _, m := range bare {
			if strings.EqualFold(m.Name, u.Name) {
				implicit.Count = m.Count
				continue
			}
			implicit.Weapons = append(implicit.Weapons, models.ParsedWeapon{Name: m.Name, Count: m.Count})
		}
		u.Models = []models.ParsedModel{implicit}

	case len(armed) > 0 && len(bare) > 0:
		modeled := make(map[string]bool, len(armed))
		for _, m := range armed {
			modeled[m.Name] = true
		}
		kept := armed
		for _, m := range bare {
			if modeled[m.Name] {
				kept = append(kept, m)
				continue
			}
			for i := 0; i < m.Count; i++ {
				u.Equipment = append(u.Equipment, m.Name)
			}
		}
		u.Models = kept
	}
}

package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pefman/w40k-roster/internal/models"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

// Profile rows are named "<weapon> - <profile>", with a hyphen or an en dash.
var profileSeparators = []string{" - ", " – "}

// MatchWeapons resolves parsed weapons against a datasheet's wargear rows.
// An exact name match wins; otherwise every "<name> - <profile>" row is
// taken, one entry per profile. Unmatched names become stub entries so
// nothing the roster listed is dropped.
func MatchWeapons(parsed []models.ParsedWeapon, wargear []wahapedia.Wargear) []models.EnrichedWeapon {
	out := make([]models.EnrichedWeapon, 0, len(parsed))
	for _, pw := range parsed {
		key := wahapedia.NormalizeName(pw.Name)

		var matched []models.EnrichedWeapon
		for _, wg := range wargear {
			if wahapedia.NormalizeName(wg.Name) == key {
				matched = append(matched, formatWeapon(pw, wg, ""))
			}
		}
		if len(matched) == 0 {
			for _, wg := range wargear {
				if suffix, ok := profileSuffix(wahapedia.NormalizeName(wg.Name), key); ok {
					matched = append(matched, formatWeapon(pw, wg, suffix))
				}
			}
		}
		if len(matched) == 0 {
			matched = append(matched, models.StubWeapon(pw.Name, pw.Count))
		}
		out = append(out, matched...)
	}
	return out
}

func profileSuffix(full, base string) (string, bool) {
	for _, sep := range profileSeparators {
		if rest, ok := strings.CutPrefix(full, base+sep); ok {
			return capitalize(strings.TrimSpace(rest)), true
		}
	}
	return "", false
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func formatWeapon(pw models.ParsedWeapon, wg wahapedia.Wargear, profile string) models.EnrichedWeapon {
	return models.EnrichedWeapon{
		Name:        pw.Name,
		ProfileName: profile,
		Count:       pw.Count,
		Range:       formatRange(wg.Range),
		Type:        wg.Type,
		A:           wg.A,
		BSWS:        withPlus(wg.BSWS),
		S:           wg.S,
		AP:          formatAP(wg.AP),
		D:           wg.D,
		Keywords:    wg.Description,
	}
}

func endsWithDigit(s string) bool {
	return s != "" && s[len(s)-1] >= '0' && s[len(s)-1] <= '9'
}

func formatRange(r string) string {
	r = strings.TrimSpace(r)
	switch {
	case r == "":
		return "Melee"
	case endsWithDigit(r):
		return r + `"`
	default:
		return r
	}
}

// withPlus renders a dice target ("3" -> "3+"). Empty means no value.
func withPlus(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return models.Unknown
	case endsWithDigit(s):
		return s + "+"
	default:
		return s
	}
}

func formatAP(ap string) string {
	ap = strings.TrimSpace(ap)
	if ap == "0" || strings.HasPrefix(ap, "-") {
		return ap
	}
	return "-" + ap
}

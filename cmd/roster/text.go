package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pefman/w40k-roster/internal/models"
)

// writeText prints a roster grouped by section, one line per unit.
func writeText(w io.Writer, v any) error {
	switch list := v.(type) {
	case models.ParsedArmyList:
		return writeParsedText(w, list)
	case *models.EnrichedArmyList:
		return writeEnrichedText(w, list)
	default:
		return fmt.Errorf("cannot print %T as text", v)
	}
}

func writeParsedText(w io.Writer, list models.ParsedArmyList) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%d points)\n%s / %s\n", list.ArmyName, list.TotalPoints, list.Faction, list.Detachment)
	for _, role := range models.RoleOrder {
		first := true
		for _, u := range list.Units {
			if u.Role != role {
				continue
			}
			if first {
				fmt.Fprintf(tw, "\n%s\n", role.Title())
				first = false
			}
			fmt.Fprintf(tw, "  %s\t%d models\t%d pts\n", u.Name, u.ModelCount(), u.Points)
		}
	}
	return tw.Flush()
}

func writeEnrichedText(w io.Writer, list *models.EnrichedArmyList) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	det := ""
	if list.Detachment != nil {
		det = list.Detachment.Name
	}
	fmt.Fprintf(tw, "%s (%d points)\n%s / %s\n", list.ArmyName, list.TotalPoints, list.FactionName, det)
	for _, msg := range list.Warnings {
		fmt.Fprintf(tw, "! %s\n", msg)
	}
	for _, role := range models.RoleOrder {
		first := true
		for _, u := range list.Units {
			if u.Role != role {
				continue
			}
			if first {
				fmt.Fprintf(tw, "\n%s\n", role.Title())
				first = false
			}
			fmt.Fprintf(tw, "  %s\t%d models\t%d pts\t%s\n", u.DisplayName, u.ModelCount, u.Points, unitNotes(u))
			for _, msg := range u.MatchWarnings {
				fmt.Fprintf(tw, "    ! %s\n", msg)
			}
		}
	}
	return tw.Flush()
}

func unitNotes(u models.EnrichedUnit) string {
	var notes []string
	if u.IsWarlord {
		notes = append(notes, "warlord")
	}
	if u.LeaderMapping != nil && len(u.LeaderMapping.CanLead) > 0 {
		notes = append(notes, "leads "+strings.Join(u.LeaderMapping.CanLead, ", "))
	}
	if u.TransportCapacity != nil {
		notes = append(notes, fmt.Sprintf("transport %d", u.TransportCapacity.BaseCapacity))
	}
	return strings.Join(notes, "; ")
}

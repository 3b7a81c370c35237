package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/dlipower/internal/powerswitch"
)

const nameColumnWidth = 16

// StatusRow is one outlet line of the status table
type StatusRow struct {
	Index int
	Name  string
	State powerswitch.State
}

// RowsFromSnapshot lists a snapshot's outlets in index order
func RowsFromSnapshot(snap *powerswitch.Snapshot) []StatusRow {
	if snap == nil {
		return nil
	}
	rows := make([]StatusRow, 0, len(snap.Outlets))
	for _, o := range snap.Outlets {
		rows = append(rows, StatusRow{Index: o.Index, Name: o.Name, State: o.State})
	}
	return rows
}

// RowsFromReport lists a report's outlets in index order
func RowsFromReport(r powerswitch.Report) []StatusRow {
	rows := make([]StatusRow, 0, len(r.Outlets))
	for key, o := range r.Outlets {
		index, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		rows = append(rows, StatusRow{Index: index, Name: o.Name, State: o.State})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })
	return rows
}

// RenderStatusTable renders outlet rows as a bordered table. selected
// highlights one outlet index; pass 0 for none.
func RenderStatusTable(rows []StatusRow, selected int) string {
	var lines []string
	lines = append(lines, TableHeaderStyle.Render(fmt.Sprintf("%-3s %-*s %s", "#", nameColumnWidth, "Name", "State")))

	for _, row := range rows {
		cursor := " "
		if row.Index == selected {
			cursor = "›"
		}
		name := truncate(row.Name, nameColumnWidth)
		line := fmt.Sprintf("%s%-2d %-*s ", cursor, row.Index, nameColumnWidth, name) +
			StateStyle(row.State).Render(string(row.State))
		if row.Index == selected {
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		lines = append(lines, line)
	}
	if len(rows) == 0 {
		lines = append(lines, NoteStyle.Render("no outlets"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// RenderReport renders a status report: a title line, the outlet table and any
// reasons the switch is not operational.
func RenderReport(r powerswitch.Report) string {
	title := HeaderTitleStyle.Render(r.Name)
	if r.Address != "" {
		title += HeaderCommandStyle.Render(r.Address)
	}

	var notes []string
	switch {
	case !r.Reachable:
		notes = append(notes, StateUnknownStyle.Render(WarningMarker+" not detected"))
	case !r.Admin:
		notes = append(notes, NoteStyle.Render("(user view)"))
	}
	for _, why := range r.WhyNotOperational {
		notes = append(notes, ErrorMessageStyle.Render("  "+why))
	}

	parts := []string{title, RenderStatusTable(RowsFromReport(r), 0)}
	parts = append(parts, notes...)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

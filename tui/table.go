package tui

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	tableBorderColor = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#AAAAAA"}
	tableBorderStyle = lipgloss.NewStyle().Foreground(tableBorderColor)
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// RenderTable renders rows under headers with a thin border.
func RenderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func Table(headers []string, rows [][]string) {
	fmt.Fprintln(Output, RenderTable(headers, rows))
}

// CountRows turns a count map into table rows, largest count first and
// ties in name order.
func CountRows(counts map[string]int) [][]string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	rows := make([][]string, len(names))
	for i, name := range names {
		label := name
		if label == "" {
			label = "(none)"
		}
		rows[i] = []string{label, strconv.Itoa(counts[name])}
	}
	return rows
}

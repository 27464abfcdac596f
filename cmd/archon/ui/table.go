package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows of cells in padded columns. It is used both by the
// list screens and by the non-interactive commands.
type Table struct {
	Title    string
	Headers  []string
	Rows     [][]string
	Selected int // highlighted row, -1 for none
	Empty    string
}

// NewTable creates a new Table with the given title and headers.
func NewTable(title string, headers ...string) *Table {
	return &Table{
		Title:    title,
		Headers:  headers,
		Rows:     make([][]string, 0),
		Selected: -1,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table using the provided styles.
func (t *Table) View(styles Styles) string {
	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	if len(t.Rows) == 0 {
		if t.Empty != "" {
			sb.WriteString(styles.Muted.Render(t.Empty))
			sb.WriteString("\n")
		}
		return sb.String()
	}

	colWidths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				if w := lipgloss.Width(cell); w > colWidths[i] {
					colWidths[i] = w
				}
			}
		}
	}
	// Width includes the padding
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)
	selStyle := styles.Selected.Padding(0, 1)
	sepStyle := styles.Muted

	for i, h := range t.Headers {
		sb.WriteString(headerStyle.Width(colWidths[i]).Render(h))
		if i < len(t.Headers)-1 {
			sb.WriteString(sepStyle.Render("|"))
		}
	}
	sb.WriteString("\n")

	totalWidth := len(t.Headers) - 1
	for _, w := range colWidths {
		totalWidth += w
	}
	sb.WriteString(sepStyle.Render(strings.Repeat("-", totalWidth)) + "\n")

	for r, row := range t.Rows {
		style := rowStyle
		if r == t.Selected {
			style = selStyle
		}
		for i, cell := range row {
			if i >= len(colWidths) {
				break
			}
			sb.WriteString(style.Width(colWidths[i]).Render(cell))
			if i < len(row)-1 && i < len(colWidths)-1 {
				sb.WriteString(sepStyle.Render("|"))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

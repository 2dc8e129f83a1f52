// Package formatter renders report output for the terminal.
package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorAccent = lipgloss.Color("#2f6f5e")
	ColorDim    = lipgloss.Color("#928374")
	ColorHeader = lipgloss.Color("#fe8019")
	ColorRed    = lipgloss.Color("#fb4934")
)

var (
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleAccent = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleTitle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Printer renders tables either styled or as plain text for pipes.
type Printer struct {
	Styled bool
}

func (p Printer) render(s lipgloss.Style, text string) string {
	if !p.Styled {
		return text
	}
	return s.Render(text)
}

// Title renders a section heading.
func (p Printer) Title(text string) string {
	return p.render(StyleTitle, text) + "\n"
}

// Dim renders secondary text.
func (p Printer) Dim(text string) string {
	return p.render(StyleDim, text)
}

// Error renders an error line.
func (p Printer) Error(text string) string {
	return p.render(StyleRed, text)
}

// Table renders an aligned table with a header separator line. Columns are
// padded to the widest visible cell.
func (p Printer) Table(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	cols := len(headers)

	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	const colGap = 2
	var b strings.Builder

	for i, h := range headers {
		b.WriteString(p.render(StyleHeader, h))
		if i < cols-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(h)+colGap))
		}
	}
	b.WriteString("\n")

	for i, w := range widths {
		b.WriteString(p.render(StyleDim, strings.Repeat("─", w)))
		if i < cols-1 {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")

	for _, row := range rows {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(cell)
			if i < cols-1 {
				b.WriteString(strings.Repeat(" ", max(widths[i]-lipgloss.Width(cell), 0)+colGap))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Bar renders value as a block bar of at most width cells relative to max.
func (p Printer) Bar(value, max float64, width int) string {
	if max <= 0 || value <= 0 || width <= 0 {
		return ""
	}
	n := int(value / max * float64(width))
	if n < 1 {
		n = 1
	}
	return p.render(StyleAccent, strings.Repeat("█", n))
}

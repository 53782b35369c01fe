package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tgienger/sprintdash/internal/ui/styles"
)

var (
	theme            = styles.NewStyles()
	tableBorder      = lipgloss.RoundedBorder()
	tableBorderStyle = lipgloss.NewStyle().Foreground(styles.Current.Border)
)

func tableStyle(row, col int) lipgloss.Style {
	if row == table.HeaderRow {
		return theme.TableHeader
	}
	return theme.TableCell
}

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/sprintdash/internal/analytics"
	"github.com/tgienger/sprintdash/internal/models"
)

// Theme represents a color scheme for the dashboard
type Theme struct {
	Name string

	// Base colors
	Background    lipgloss.Color
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	// Accent colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// UI element colors
	Border      lipgloss.Color
	BorderFocus lipgloss.Color
	Selection   lipgloss.Color
	Cursor      lipgloss.Color
}

// TokyoNight is the default color theme
var TokyoNight = Theme{
	Name: "Tokyo Night",

	Background:    lipgloss.Color("#1a1b26"),
	Foreground:    lipgloss.Color("#c0caf5"),
	ForegroundDim: lipgloss.Color("#565f89"),

	Primary:   lipgloss.Color("#7aa2f7"),
	Secondary: lipgloss.Color("#bb9af7"),
	Accent:    lipgloss.Color("#7dcfff"),

	Success: lipgloss.Color("#9ece6a"),
	Warning: lipgloss.Color("#e0af68"),
	Error:   lipgloss.Color("#f7768e"),
	Info:    lipgloss.Color("#7aa2f7"),

	Border:      lipgloss.Color("#3b4261"),
	BorderFocus: lipgloss.Color("#7aa2f7"),
	Selection:   lipgloss.Color("#33467c"),
	Cursor:      lipgloss.Color("#c0caf5"),
}

// Current holds the active theme
var Current = TokyoNight

// MaxWidth is the widest the dashboard grows; four board columns need room
const MaxWidth = 128

// ContentWidth returns the width to lay out in (min of terminal width and MaxWidth)
func ContentWidth(terminalWidth int) int {
	if terminalWidth > MaxWidth {
		return MaxWidth
	}
	return terminalWidth
}

// CenterView centers content horizontally if the terminal is wider than MaxWidth
func CenterView(content string, terminalWidth, terminalHeight int) string {
	if terminalWidth <= MaxWidth {
		return content
	}
	return lipgloss.Place(terminalWidth, terminalHeight,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// StatusColor is the accent for a board column
func StatusColor(s models.Status) lipgloss.Color {
	t := Current
	switch s {
	case models.StatusInProgress:
		return t.Primary
	case models.StatusBlocked:
		return t.Error
	case models.StatusDone:
		return t.Success
	}
	return t.Secondary
}

// PriorityColor colors a priority badge
func PriorityColor(p models.Priority) lipgloss.Color {
	t := Current
	switch p {
	case models.PriorityHigh:
		return t.Error
	case models.PriorityMedium:
		return t.Warning
	}
	return t.Success
}

// RatingColor colors a progress figure: green from 80%, yellow from 60%
func RatingColor(r analytics.Rating) lipgloss.Color {
	t := Current
	switch r {
	case analytics.RatingGood:
		return t.Success
	case analytics.RatingFair:
		return t.Warning
	}
	return t.Error
}

// Styles holds the pre-computed styles for the UI
type Styles struct {
	// Header
	Header    lipgloss.Style
	Tab       lipgloss.Style
	TabActive lipgloss.Style
	Timer     lipgloss.Style

	Title      lipgloss.Style
	TitleMuted lipgloss.Style

	// Board
	Column        lipgloss.Style
	ColumnFocused lipgloss.Style
	Card          lipgloss.Style
	CardSelected  lipgloss.Style
	Marked        lipgloss.Style
	Overdue       lipgloss.Style
	Badge         lipgloss.Style

	// Lists
	ListItem     lipgloss.Style
	ListSelected lipgloss.Style

	// Filter bar and popups
	FilterBar lipgloss.Style
	Modal     lipgloss.Style

	// Buttons
	Button        lipgloss.Style
	ButtonPrimary lipgloss.Style

	// Input fields
	Label        lipgloss.Style
	Input        lipgloss.Style
	InputFocused lipgloss.Style

	// Meters
	BarFilled lipgloss.Style
	BarEmpty  lipgloss.Style

	// Help text
	Help    lipgloss.Style
	HelpKey lipgloss.Style

	// Status bar
	StatusBar   lipgloss.Style
	StatusError lipgloss.Style

	// CLI tables
	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
}

// NewStyles creates styles based on the current theme
func NewStyles() *Styles {
	t := Current

	return &Styles{
		Header: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Padding(0, 1).
			Bold(true),

		Tab: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(0, 1),

		TabActive: lipgloss.NewStyle().
			Foreground(t.Background).
			Background(t.Primary).
			Padding(0, 1).
			Bold(true),

		Timer: lipgloss.NewStyle().
			Foreground(t.Accent).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		TitleMuted: lipgloss.NewStyle().
			Foreground(t.ForegroundDim),

		Column: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),

		ColumnFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus).
			Padding(0, 1),

		Card: lipgloss.NewStyle().
			Foreground(t.Foreground),

		CardSelected: lipgloss.NewStyle().
			Foreground(t.Primary).
			Background(t.Selection).
			Bold(true),

		Marked: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true),

		Overdue: lipgloss.NewStyle().
			Foreground(t.Error).
			Bold(true),

		Badge: lipgloss.NewStyle().
			Bold(true),

		ListItem: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Padding(0, 2),

		ListSelected: lipgloss.NewStyle().
			Foreground(t.Primary).
			Background(t.Selection).
			Padding(0, 2).
			Bold(true),

		FilterBar: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border),

		Modal: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus),

		Button: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 2),

		ButtonPrimary: lipgloss.NewStyle().
			Foreground(t.Background).
			Background(t.Primary).
			Padding(0, 2).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Bold(true),

		Input: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),

		InputFocused: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus).
			Padding(0, 1),

		BarFilled: lipgloss.NewStyle().
			Foreground(t.Primary),

		BarEmpty: lipgloss.NewStyle().
			Foreground(t.Border),

		Help: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(0, 1),

		HelpKey: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		StatusBar: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(0, 1),

		StatusError: lipgloss.NewStyle().
			Foreground(t.Error).
			Padding(0, 1),

		TableHeader: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true).
			PaddingRight(2),

		TableCell: lipgloss.NewStyle().
			PaddingRight(2),
	}
}

// Bar renders a horizontal meter of width cells filled to percent
func (s *Styles) Bar(percent float64, width int, color lipgloss.Color) string {
	if width < 1 {
		return ""
	}
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))
	return s.BarFilled.Foreground(color).Render(strings.Repeat("█", filled)) +
		s.BarEmpty.Render(strings.Repeat("░", width-filled))
}

package views

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/sessions"
)

// TasksLoadedMsg carries a live board snapshot
type TasksLoadedMsg struct {
	Tasks []models.Task
}

// ArchiveLoadedMsg carries the owner's archive, oldest first
type ArchiveLoadedMsg struct {
	Archived []models.ArchivedTask
}

// ExcusesLoadedMsg carries the excuse log, newest first
type ExcusesLoadedMsg struct {
	Excuses []models.Excuse
}

// SessionsLoadedMsg carries the slot board for Date
type SessionsLoadedMsg struct {
	Date  string
	Slots []sessions.SlotView
}

// SessionDateMsg asks the app to follow a different day's sessions
type SessionDateMsg struct {
	Date string
}

// SprintGoalMsg reports a sprint goal changed on the insights page
type SprintGoalMsg struct {
	Hours float64
}

// StatusMsg reports the outcome of an action in the status bar
type StatusMsg struct {
	Text string
	Err  error
}

// TickMsg advances clocks once a second
type TickMsg time.Time

func failed(text string, err error) tea.Msg {
	return StatusMsg{Text: text, Err: err}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

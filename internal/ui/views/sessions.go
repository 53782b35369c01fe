package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/sprintdash/internal/sessions"
	"github.com/tgienger/sprintdash/internal/ui/keys"
	"github.com/tgienger/sprintdash/internal/ui/styles"
)

// SessionsView is the support-session slot board for one day
type SessionsView struct {
	ctx       context.Context
	scheduler *sessions.Scheduler
	styles    *styles.Styles
	keys      keys.KeyMap
	width     int
	height    int

	date     time.Time
	slots    []sessions.SlotView
	loaded   bool
	cursor   int
	mineOnly bool
}

// NewSessionsView shows the slots of day
func NewSessionsView(ctx context.Context, scheduler *sessions.Scheduler, day time.Time) *SessionsView {
	return &SessionsView{
		ctx:       ctx,
		scheduler: scheduler,
		styles:    styles.NewStyles(),
		keys:      keys.DefaultKeyMap(),
		date:      day,
	}
}

// Date is the day on display as YYYY-MM-DD
func (v *SessionsView) Date() string {
	return sessions.DateString(v.date)
}

// Capturing is always false; slots are toggled with single keys
func (v *SessionsView) Capturing() bool {
	return false
}

func (v *SessionsView) Init() tea.Cmd {
	return nil
}

func (v *SessionsView) visible() []sessions.SlotView {
	if v.mineOnly {
		return sessions.MineOnly(v.slots)
	}
	return v.slots
}

func (v *SessionsView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height

	case SessionsLoadedMsg:
		if msg.Date != v.Date() {
			return v, nil
		}
		v.slots = msg.Slots
		v.loaded = true
		v.cursor = clamp(v.cursor, 0, max(0, len(v.visible())-1))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, v.keys.Down):
			if v.cursor < len(v.visible())-1 {
				v.cursor++
			}
		case key.Matches(msg, v.keys.Mine):
			v.mineOnly = !v.mineOnly
			v.cursor = 0
		case key.Matches(msg, v.keys.PrevDay), key.Matches(msg, v.keys.NextDay):
			dir := 1
			if key.Matches(msg, v.keys.PrevDay) {
				dir = -1
			}
			v.date = v.date.AddDate(0, 0, dir)
			v.loaded = false
			v.cursor = 0
			date := v.Date()
			return v, func() tea.Msg { return SessionDateMsg{Date: date} }
		case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Select):
			return v, v.toggle()
		}
	}
	return v, nil
}

func (v *SessionsView) toggle() tea.Cmd {
	list := v.visible()
	if len(list) == 0 {
		return nil
	}
	slot := list[v.cursor]
	ctx, sched := v.ctx, v.scheduler
	return func() tea.Msg {
		if err := sched.Toggle(ctx, slot); err != nil {
			return failed("Session not changed", err)
		}
		if slot.State == sessions.Mine {
			return StatusMsg{Text: "Released " + slot.Label()}
		}
		return StatusMsg{Text: "Claimed " + slot.Label()}
	}
}

func (v *SessionsView) View() string {
	s := v.styles
	width := styles.ContentWidth(v.width)

	heading := s.Title.Render("Support Sessions: " + v.date.Format("Monday, Jan 2"))
	if v.mineOnly {
		heading += s.Marked.Render("  (mine)")
	}
	rows := []string{heading, ""}

	if !v.loaded {
		rows = append(rows, s.TitleMuted.Render("Loading..."))
	}
	list := v.visible()
	if v.loaded && len(list) == 0 {
		rows = append(rows, s.TitleMuted.Render("No sessions claimed"))
	}

	var mine int
	for _, sv := range v.slots {
		if sv.State == sessions.Mine {
			mine++
		}
	}

	for i, sv := range list {
		line := fmt.Sprintf("%-9s %s", sv.Label(), v.describe(sv))
		if i == v.cursor {
			rows = append(rows, s.ListSelected.Width(min(width, 60)).Render(line))
		} else {
			rows = append(rows, s.ListItem.Render(line))
		}
	}

	rows = append(rows,
		"",
		s.StatusBar.Render(fmt.Sprintf("%d of %d slots are yours", mine, len(v.slots))),
		s.Help.Render(strings.Join([]string{
			s.HelpKey.Render("↵") + " claim/release",
			s.HelpKey.Render("m") + " mine only",
			s.HelpKey.Render("[ ]") + " change day",
		}, " • ")),
	)
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *SessionsView) describe(sv sessions.SlotView) string {
	s := v.styles
	switch sv.State {
	case sessions.Mine:
		return s.Badge.Foreground(styles.Current.Success).Render("yours")
	case sessions.Claimed:
		who := "someone"
		if sv.Session != nil && sv.Session.ClaimedByRole != "" {
			who = sv.Session.ClaimedByRole
		}
		return s.Badge.Foreground(styles.Current.Warning).Render("claimed by " + who)
	}
	return s.TitleMuted.Render("available")
}

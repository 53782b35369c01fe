package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/sprintdash/internal/analytics"
	"github.com/tgienger/sprintdash/internal/archive"
	"github.com/tgienger/sprintdash/internal/config"
	"github.com/tgienger/sprintdash/internal/excuses"
	"github.com/tgienger/sprintdash/internal/export"
	"github.com/tgienger/sprintdash/internal/logging"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/sessions"
	"github.com/tgienger/sprintdash/internal/tasks"
	"github.com/tgienger/sprintdash/internal/timers"
	"github.com/tgienger/sprintdash/internal/ui/keys"
	"github.com/tgienger/sprintdash/internal/ui/styles"
	"github.com/tgienger/sprintdash/internal/ui/views"
)

const (
	lastPageSetting = "last_view"
	statusTTL       = 6 * time.Second
)

// Page is a dashboard tab
type Page int

const (
	PageBoard Page = iota
	PageInsights
	PageExcuses
	PageSessions
)

var pageNames = []string{"board", "insights", "excuses", "sessions"}

func (p Page) String() string {
	if p < 0 || int(p) >= len(pageNames) {
		return "board"
	}
	return pageNames[p]
}

// ParsePage maps a page name back to its Page
func ParsePage(name string) (Page, bool) {
	for i, n := range pageNames {
		if strings.EqualFold(n, name) {
			return Page(i), true
		}
	}
	return PageBoard, false
}

// Settings persists small UI preferences
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Deps are the services the dashboard drives
type Deps struct {
	Settings Settings
	Store    archive.Subscriber
	Tasks    *tasks.Manager
	Archive  *archive.Engine
	Excuses  *excuses.Log
	Sessions *sessions.Scheduler
	Goals    analytics.Goals
	Period   analytics.Period
	Pomodoro *timers.Pomodoro
	Standup  *timers.Standup
	Logger   *logging.Logger
	Now      func() time.Time
}

type page interface {
	tea.Model
	Capturing() bool
}

// App is the root model: a tab bar with timers, the active page and a
// status line. Store subscriptions feed it through a channel.
type App struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
	styles *styles.Styles
	keys   keys.KeyMap

	current  Page
	board    *views.BoardView
	insights *views.InsightsView
	excuses  *views.ExcusesView
	sessions *views.SessionsView

	feed         chan tea.Msg
	unsubs       []func()
	sessionUnsub func()
	archived     []models.ArchivedTask

	lastTick     time.Time
	confirmReset bool
	status       string
	statusErr    bool
	statusAt     time.Time
	width        int
	height       int
}

// NewApp creates the dashboard
func NewApp(deps Deps) *App {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logging.NopLogger()
	}
	if deps.Pomodoro == nil {
		deps.Pomodoro = timers.NewPomodoro(timers.DefaultWork, timers.DefaultBreak)
	}
	if deps.Standup == nil {
		deps.Standup = timers.NewStandup(timers.DefaultStandup)
	}
	deps.Logger = deps.Logger.With("component", "ui")

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		board:    views.NewBoardView(ctx, deps.Tasks, deps.Now),
		insights: views.NewInsightsView(deps.Goals, deps.Period, deps.Now),
		excuses:  views.NewExcusesView(ctx, deps.Excuses, deps.Now),
		sessions: views.NewSessionsView(ctx, deps.Sessions, deps.Now()),
		feed:     make(chan tea.Msg, 64),
	}
}

func (a *App) Init() tea.Cmd {
	if name, err := a.deps.Settings.GetSetting(lastPageSetting); err == nil && name != "" {
		if p, ok := ParsePage(name); ok {
			a.current = p
		}
	}

	if err := a.subscribe(); err != nil {
		a.deps.Logger.Error("subscribe failed", "error", err)
		a.setStatus("Live updates unavailable", err)
	}

	a.lastTick = a.deps.Now()
	return tea.Batch(a.listen(), a.tick(), tea.SetWindowTitle("sprintdash"))
}

// Close cancels every subscription. Call it after the program exits.
func (a *App) Close() {
	a.cancel()
	for _, unsub := range a.unsubs {
		unsub()
	}
	if a.sessionUnsub != nil {
		a.sessionUnsub()
	}
}

// push hands a snapshot to the program without blocking past shutdown
func (a *App) push(msg tea.Msg) {
	a.pushCtx(a.ctx, msg)
}

func (a *App) pushCtx(ctx context.Context, msg tea.Msg) {
	select {
	case a.feed <- msg:
	case <-ctx.Done():
	}
}

func (a *App) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-a.feed:
			return msg
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return views.TickMsg(t)
	})
}

func (a *App) subscribe() error {
	unsub, err := a.deps.Tasks.LoadLiveTasks(a.ctx, func(live []models.Task) {
		a.push(views.TasksLoadedMsg{Tasks: live})
	})
	if err != nil {
		return fmt.Errorf("tasks: %w", err)
	}
	a.unsubs = append(a.unsubs, unsub)

	unsub, err = archive.Watch(a.ctx, a.deps.Store, a.deps.Tasks.Owner(), a.deps.Logger, func(archived []models.ArchivedTask) {
		a.push(views.ArchiveLoadedMsg{Archived: archived})
	})
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	a.unsubs = append(a.unsubs, unsub)

	unsub, err = a.deps.Excuses.Subscribe(a.ctx, func(list []models.Excuse) {
		a.push(views.ExcusesLoadedMsg{Excuses: list})
	})
	if err != nil {
		return fmt.Errorf("excuses: %w", err)
	}
	a.unsubs = append(a.unsubs, unsub)

	return a.followSessions(a.sessions.Date())
}

// followSessions moves the session subscription to date
func (a *App) followSessions(date string) error {
	if a.sessionUnsub != nil {
		a.sessionUnsub()
		a.sessionUnsub = nil
	}
	// Own context so a delivery blocked on a full feed gives up on switch
	ctx, cancel := context.WithCancel(a.ctx)
	unsub, err := a.deps.Sessions.Subscribe(ctx, date, func(slots []sessions.SlotView) {
		a.pushCtx(ctx, views.SessionsLoadedMsg{Date: date, Slots: slots})
	})
	if err != nil {
		cancel()
		return fmt.Errorf("sessions: %w", err)
	}
	a.sessionUnsub = func() {
		cancel()
		unsub()
	}
	return nil
}

func (a *App) active() page {
	switch a.current {
	case PageInsights:
		return a.insights
	case PageExcuses:
		return a.excuses
	case PageSessions:
		return a.sessions
	}
	return a.board
}

func (a *App) setStatus(text string, err error) {
	a.status = text
	a.statusErr = err != nil
	if err != nil {
		a.status = text + ": " + err.Error()
	}
	a.statusAt = a.deps.Now()
}

func (a *App) pageSize() tea.WindowSizeMsg {
	// tab bar, blank line and status line
	return tea.WindowSizeMsg{Width: a.width, Height: max(a.height-3, 5)}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		size := a.pageSize()
		a.board.Update(size)
		a.insights.Update(size)
		a.excuses.Update(size)
		a.sessions.Update(size)
		return a, nil

	case views.TasksLoadedMsg:
		a.board.Update(msg)
		a.insights.Update(msg)
		return a, a.listen()

	case views.ArchiveLoadedMsg:
		a.archived = msg.Archived
		a.insights.Update(msg)
		return a, a.listen()

	case views.ExcusesLoadedMsg:
		_, cmd := a.excuses.Update(msg)
		return a, tea.Batch(cmd, a.listen())

	case views.SessionsLoadedMsg:
		a.sessions.Update(msg)
		return a, a.listen()

	case views.SessionDateMsg:
		if err := a.followSessions(msg.Date); err != nil {
			a.setStatus("Could not load sessions", err)
		}
		return a, nil

	case views.SprintGoalMsg:
		if err := config.SaveSprintGoal(a.deps.Settings, msg.Hours); err != nil {
			a.setStatus("Could not save sprint goal", err)
			return a, nil
		}
		a.setStatus(fmt.Sprintf("Sprint goal %gh", msg.Hours), nil)
		return a, nil

	case views.StatusMsg:
		if msg.Err != nil {
			a.deps.Logger.Warn("action failed", "action", msg.Text, "error", msg.Err)
		}
		a.setStatus(msg.Text, msg.Err)
		return a, nil

	case views.TickMsg:
		return a, a.onTick(time.Time(msg))

	case tea.KeyMsg:
		if cmd, handled := a.handleKey(msg); handled {
			return a, cmd
		}
	}

	_, cmd := a.active().Update(msg)
	return a, cmd
}

func (a *App) onTick(now time.Time) tea.Cmd {
	elapsed := now.Sub(a.lastTick)
	a.lastTick = now

	if a.deps.Pomodoro.Tick(elapsed) {
		if a.deps.Pomodoro.Phase() == timers.Break {
			a.setStatus("Pomodoro done, take a break", nil)
		} else {
			a.setStatus("Break over, back to work", nil)
		}
	}
	speaker := a.deps.Standup.Speaker()
	if a.deps.Standup.Tick(elapsed) {
		a.setStatus("Standup: Time's Up!", nil)
	} else if next := a.deps.Standup.Speaker(); a.deps.Standup.Running() && next != speaker {
		a.setStatus(next+"'s turn", nil)
	}
	if a.status != "" && now.Sub(a.statusAt) > statusTTL {
		a.status = ""
		a.statusErr = false
	}
	return a.tick()
}

// handleKey runs the dashboard-wide bindings unless the page is taking input
func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if a.confirmReset {
		a.confirmReset = false
		if msg.String() == "y" || msg.String() == "Y" {
			a.setStatus("Archiving...", nil)
			return a.dailyReset(), true
		}
		a.setStatus("Daily reset cancelled", nil)
		return nil, true
	}

	if msg.String() == "ctrl+c" {
		return tea.Quit, true
	}
	if a.active().Capturing() {
		return nil, false
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, a.keys.Board):
		a.show(PageBoard)
	case key.Matches(msg, a.keys.Insights):
		a.show(PageInsights)
	case key.Matches(msg, a.keys.Excuses):
		a.show(PageExcuses)
	case key.Matches(msg, a.keys.Sessions):
		a.show(PageSessions)
	case key.Matches(msg, a.keys.Pomodoro):
		a.deps.Pomodoro.Toggle()
	case key.Matches(msg, a.keys.PomodoroReset):
		a.deps.Pomodoro.Reset()
	case key.Matches(msg, a.keys.Standup):
		if a.deps.Standup.Running() || a.deps.Standup.Finished() {
			a.deps.Standup.Reset()
		} else {
			a.deps.Standup.Start()
			if name := a.deps.Standup.Speaker(); name != "" {
				a.setStatus(name+"'s turn", nil)
			} else {
				a.setStatus(strings.Join(timers.StandupQuestions, " "), nil)
			}
		}
	case key.Matches(msg, a.keys.NextSpeaker):
		if !a.deps.Standup.Running() {
			return nil, false
		}
		a.deps.Standup.Next()
		if a.deps.Standup.Finished() {
			a.setStatus("Standup: Time's Up!", nil)
		} else {
			a.setStatus(a.deps.Standup.Speaker()+"'s turn", nil)
		}
	case key.Matches(msg, a.keys.Reset):
		a.confirmReset = true
	case key.Matches(msg, a.keys.Export):
		return a.exportSummary(), true
	default:
		return nil, false
	}
	return nil, true
}

func (a *App) show(p Page) {
	a.current = p
	if err := a.deps.Settings.SetSetting(lastPageSetting, p.String()); err != nil {
		a.deps.Logger.Warn("could not save last view", "error", err)
	}
}

func (a *App) dailyReset() tea.Cmd {
	ctx, engine := a.ctx, a.deps.Archive
	owner := a.deps.Tasks.Owner()
	live := a.deps.Tasks.Snapshot()
	return func() tea.Msg {
		res, err := engine.PerformDailyReset(ctx, owner, live)
		if err != nil {
			return views.StatusMsg{Text: "Daily reset failed, nothing was archived", Err: err}
		}
		if res.ArchivedCount == 0 {
			return views.StatusMsg{Text: "Nothing to archive"}
		}
		return views.StatusMsg{Text: fmt.Sprintf("Archived %d tasks (%.1fh)", res.ArchivedCount, res.ArchivedHours)}
	}
}

func (a *App) exportSummary() tea.Cmd {
	all := analytics.Combine(a.deps.Tasks.Snapshot(), a.archived)
	now := a.deps.Now()
	return func() tea.Msg {
		text, err := export.DailySummary(all, now)
		if err != nil {
			return views.StatusMsg{Text: "Export failed", Err: err}
		}
		if err := export.CopyToClipboard(text); err != nil {
			return views.StatusMsg{Text: "Export failed", Err: err}
		}
		n := len(export.CompletedOn(all, now))
		return views.StatusMsg{Text: fmt.Sprintf("Copied %d completed tasks to the clipboard", n)}
	}
}

func (a *App) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		"",
		a.active().View(),
	)
	body := lipgloss.NewStyle().Height(max(a.height-1, 1)).MaxHeight(max(a.height-1, 1)).Render(content)
	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, body, a.renderStatus()), a.width, a.height)
}

func (a *App) renderHeader() string {
	s := a.styles
	var tabs []string
	for i, name := range pageNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Page(i) == a.current {
			tabs = append(tabs, s.TabActive.Render(label))
		} else {
			tabs = append(tabs, s.Tab.Render(label))
		}
	}

	pomo := a.deps.Pomodoro.String()
	if !a.deps.Pomodoro.Running() {
		pomo += " ⏸"
	}
	clock := []string{s.Timer.Render(pomo)}
	if a.deps.Standup.Running() || a.deps.Standup.Finished() {
		clock = append(clock, s.Timer.Render(a.deps.Standup.String()))
	}

	left := lipgloss.JoinHorizontal(lipgloss.Center, tabs...)
	right := lipgloss.JoinHorizontal(lipgloss.Center, clock...)
	gap := max(styles.ContentWidth(a.width)-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (a *App) renderStatus() string {
	s := a.styles
	if a.confirmReset {
		return s.StatusError.Render("Archive all done tasks and clear them from the board? y/n")
	}
	if a.status == "" {
		return s.StatusBar.Render(fmt.Sprintf("%s · R daily reset · x export · t pomodoro · s standup · q quit", a.deps.Tasks.Owner()))
	}
	if a.statusErr {
		return s.StatusError.Render(a.status)
	}
	return s.StatusBar.Render(a.status)
}

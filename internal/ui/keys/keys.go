package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding the dashboard understands
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Enter    key.Binding
	Back     key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
	Quit     key.Binding
	Help     key.Binding

	// Views
	Board    key.Binding
	Insights key.Binding
	Excuses  key.Binding
	Sessions key.Binding

	// Board
	New       key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Search    key.Binding
	Filter    key.Binding
	MoveLeft  key.Binding
	MoveRight key.Binding
	Block     key.Binding
	Select    key.Binding
	Reset     key.Binding
	Export    key.Binding

	// Excuses
	Valid   key.Binding
	Invalid key.Binding
	Pending key.Binding

	// Insights and sessions
	Period       key.Binding
	GoalUp       key.Binding
	GoalDown     key.Binding
	GoalUpMore   key.Binding
	GoalDownMore key.Binding
	Mine         key.Binding
	PrevDay      key.Binding
	NextDay      key.Binding

	// Timers
	Pomodoro      key.Binding
	PomodoroReset key.Binding
	Standup       key.Binding
	NextSpeaker   key.Binding
}

// DefaultKeyMap returns the standard bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev column"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next column"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev field"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),

		Board: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "board"),
		),
		Insights: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "insights"),
		),
		Excuses: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "excuses"),
		),
		Sessions: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "sessions"),
		),

		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter"),
		),
		MoveLeft: key.NewBinding(
			key.WithKeys("H", "shift+left"),
			key.WithHelp("H", "move left"),
		),
		MoveRight: key.NewBinding(
			key.WithKeys("L", "shift+right"),
			key.WithHelp("L", "move right"),
		),
		Block: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "block"),
		),
		Select: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "daily reset"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export"),
		),

		Valid: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "valid"),
		),
		Invalid: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "invalid"),
		),
		Pending: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "undecided"),
		),

		Period: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "period"),
		),
		GoalUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "goal +1h"),
		),
		GoalDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "goal -1h"),
		),
		GoalUpMore: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "goal +5h"),
		),
		GoalDownMore: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "goal -5h"),
		),
		Mine: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mine only"),
		),
		PrevDay: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev day"),
		),
		NextDay: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next day"),
		),

		Pomodoro: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "pomodoro"),
		),
		PomodoroReset: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "reset pomodoro"),
		),
		Standup: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "standup"),
		),
		NextSpeaker: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "next speaker"),
		),
	}
}

// ShortHelp is the one-line footer
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.New, k.MoveRight, k.Search, k.Help, k.Quit}
}

// FullHelp is the help popup, one column per group
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Enter, k.Back},
		{k.New, k.Edit, k.Delete, k.MoveLeft, k.MoveRight, k.Block, k.Select},
		{k.Search, k.Filter, k.Reset, k.Export, k.Period, k.GoalUp, k.GoalDown, k.Mine},
		{k.Board, k.Insights, k.Excuses, k.Sessions, k.Pomodoro, k.Standup, k.NextSpeaker, k.Quit},
	}
}

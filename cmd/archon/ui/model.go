package ui

import (
	"errors"
	"strings"
	"time"

	"archon/internal/console"
	"archon/internal/logging"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// completionMsg carries an action that arrived on the inbound channel.
type completionMsg struct{ action console.Action }

// tickMsg drives the periodic health check. Ticks from an older generation
// are dropped after the interval changes.
type tickMsg struct{ gen int }

// maxHealthInterval caps health_check_interval_seconds.
const maxHealthInterval = 24 * time.Hour

// healthInterval converts the configured seconds to a tick period, zero
// meaning off.
func healthInterval(secs uint64) time.Duration {
	if secs == 0 {
		return 0
	}
	if secs > uint64(maxHealthInterval/time.Second) {
		return maxHealthInterval
	}
	return time.Duration(secs) * time.Second
}

// Model is the bubbletea model for the console. All state lives in the
// engine; Model only holds widgets and layout.
type Model struct {
	engine  *console.Engine
	inbound <-chan console.Action

	keys    KeyMap
	styles  Styles
	spinner spinner.Model
	help    help.Model
	logs    viewport.Model

	form   *Form
	record textinput.Model // DNS record line in the DNS editor
	typing bool

	screen    console.Screen // screen the widgets were built for
	tickEvery time.Duration
	tickGen   int
	helpText  string
	width     int
	height    int
}

// New builds the console model. inbound is the channel background
// operations and the file watcher deliver into.
func New(engine *console.Engine, inbound <-chan console.Action) Model {
	state := engine.State()
	styles := NewStyles(ThemeFor(state.Settings.Theme))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	rec := textinput.New()
	rec.Placeholder = "A www 203.0.113.7 300"
	rec.Prompt = "│ "
	rec.CharLimit = 512
	rec.Width = 60
	rec.PromptStyle = styles.Prompt

	m := Model{
		engine:    engine,
		inbound:   inbound,
		keys:      DefaultKeyMap(),
		styles:    styles,
		spinner:   sp,
		help:      help.New(),
		logs:      viewport.New(80, 10),
		record:    rec,
		screen:    state.Screen,
		width:     80,
		height:    24,
		tickEvery: healthInterval(state.Settings.HealthCheckIntervalSeconds),
	}
	m.helpText = RenderMarkdown(HelpMarkdown(m.keys), m.width-4, styles.Theme.IsDark)
	return m
}

// Init starts listening for completions, the spinner and the health tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), m.spinner.Tick, m.tick())
}

// listen returns a tea.Cmd that waits for the next inbound action.
func (m Model) listen() tea.Cmd {
	if m.inbound == nil {
		return nil
	}
	ch := m.inbound
	return func() tea.Msg {
		a, ok := <-ch
		if !ok {
			return nil // Channel closed
		}
		return completionMsg{action: a}
	}
}

// tick schedules the next periodic health check. An interval of zero turns
// it off.
func (m Model) tick() tea.Cmd {
	if m.tickEvery == 0 {
		return nil
	}
	gen := m.tickGen
	return tea.Tick(m.tickEvery, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.logs.Width = max(msg.Width-6, 20)
		m.logs.Height = max(msg.Height-22, 5)
		m.helpText = RenderMarkdown(HelpMarkdown(m.keys), msg.Width-4, m.styles.Theme.IsDark)
		return m, nil

	case completionMsg:
		cmds = append(cmds, m.apply(msg.action), m.listen())
		return m, tea.Batch(cmds...)

	case tickMsg:
		if msg.gen != m.tickGen {
			return m, nil
		}
		cmds = append(cmds, m.apply(console.Tick{}))
		if msg.gen == m.tickGen {
			cmds = append(cmds, m.tick())
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	state := m.engine.State()

	if msg.Type == tea.KeyCtrlC {
		return m.apply(console.Quit{})
	}

	if m.typing {
		switch msg.Type {
		case tea.KeyEsc:
			m.stopTyping()
			return nil
		case tea.KeyEnter:
			line := m.record.Value()
			m.stopTyping()
			rec, err := ParseRecord(line)
			if err != nil {
				return m.warn(err)
			}
			return m.apply(console.AddDNSRecord{DomainID: state.Screen.ID, Record: rec})
		}
		var cmd tea.Cmd
		m.record, cmd = m.record.Update(msg)
		return cmd
	}

	if m.form != nil {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m.apply(console.NavigateBack{})
		case key.Matches(msg, m.keys.NextField):
			return m.apply(console.NextFormField{})
		case key.Matches(msg, m.keys.PrevField):
			return m.apply(console.PreviousFormField{})
		case key.Matches(msg, m.keys.Submit):
			a, err := m.form.Submit(state)
			if err != nil {
				return m.warn(err)
			}
			cmd := m.apply(a)
			if !m.engine.State().ShouldQuit {
				cmd = tea.Batch(cmd, m.apply(console.NavigateBack{}))
			}
			return cmd
		}
		return m.form.Update(msg)
	}

	if state.Screen.Kind == console.ScreenDNSEditor && key.Matches(msg, m.keys.AddRecord) {
		m.typing = true
		m.record.SetValue("")
		return m.record.Focus()
	}

	if a := m.keys.MapKey(state, msg); a != nil {
		return m.apply(a)
	}

	if state.Screen.Kind == console.ScreenSiteDetail {
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return cmd
	}
	return nil
}

// apply hands one action to the engine and brings the widgets in line with
// the resulting state.
func (m *Model) apply(a console.Action) tea.Cmd {
	logging.Get(logging.CategoryUI).Debug("dispatch %T", a)
	m.engine.Apply(a)
	return m.sync()
}

func (m *Model) warn(err error) tea.Cmd {
	msg := err.Error()
	if errors.Is(err, errInvalidInput) {
		msg = strings.TrimPrefix(msg, errInvalidInput.Error()+": ")
	}
	return m.apply(console.ShowNotification{Notification: console.Notification{
		Message: msg,
		Level:   console.LevelWarning,
	}})
}

func (m *Model) stopTyping() {
	m.typing = false
	m.record.Blur()
	m.record.SetValue("")
}

// sync rebuilds screen widgets after a screen change and keeps the form focus
// on the console's field cursor.
func (m *Model) sync() tea.Cmd {
	state := m.engine.State()
	if state.ShouldQuit {
		return tea.Quit
	}

	var cmd tea.Cmd
	if state.Screen != m.screen {
		m.screen = state.Screen
		m.form = NewForm(state, state.Screen)
		m.stopTyping()
		m.logs.GotoTop()
	}
	if m.form != nil {
		cmd = m.form.Focus(state.Selection.FormField)
	}
	// A reload may change the interval; restart the tick chain.
	if every := healthInterval(state.Settings.HealthCheckIntervalSeconds); every != m.tickEvery {
		m.tickEvery = every
		m.tickGen++
		cmd = tea.Batch(cmd, m.tick())
	}
	if state.Screen.Kind == console.ScreenSiteDetail {
		if mon, ok := state.Monitor[state.Screen.ID]; ok && mon != nil {
			m.logs.SetContent(strings.Join(mon.Logs, "\n"))
		} else {
			m.logs.SetContent("")
		}
	}
	return cmd
}

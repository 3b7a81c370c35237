package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/dlipower/internal/powerswitch"
	"github.com/muurk/dlipower/internal/ui"
)

// DefaultInterval is the status refresh period
const DefaultInterval = 5 * time.Second

// Switch is the part of a power switch client the dashboard drives
type Switch interface {
	Name() string
	Reachable() bool
	Login(ctx context.Context) error
	Snapshot(ctx context.Context) (*powerswitch.Snapshot, error)
	SetPower(ctx context.Context, ref powerswitch.OutletRef, on bool) (powerswitch.Result, error)
	Cycle(ctx context.Context, ref powerswitch.OutletRef) error
}

type action int

const (
	actionOn action = iota
	actionOff
	actionCycle
)

func (a action) String() string {
	switch a {
	case actionOn:
		return "on"
	case actionOff:
		return "off"
	default:
		return "cycle"
	}
}

type tickMsg time.Time

type snapshotMsg struct {
	snap *powerswitch.Snapshot
	err  error
}

type actionDoneMsg struct {
	index  int
	action action
	result powerswitch.Result
	err    error
}

// Model is the live outlet dashboard
type Model struct {
	sw       Switch
	ctx      context.Context
	interval time.Duration

	snap       *powerswitch.Snapshot
	err        error
	lastUpdate time.Time
	fetching   bool

	// cursor is the 0-based row of the selected outlet
	cursor int
	// busy is the outlet index an action is running on, 0 when idle
	busy    int
	message string

	width  int
	height int

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// New creates a dashboard for sw refreshing every interval
func New(ctx context.Context, sw Switch, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.PrimaryColor)

	return Model{
		sw:       sw,
		ctx:      ctx,
		interval: interval,
		fetching: true,
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the first fetch, the refresh timer and the spinner
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick(), m.spinner.Tick)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// fetch reads a snapshot, logging in again first when the switch was not
// detected
func (m Model) fetch() tea.Cmd {
	sw, ctx := m.sw, m.ctx
	return func() tea.Msg {
		if !sw.Reachable() {
			if err := sw.Login(ctx); err != nil {
				return snapshotMsg{err: err}
			}
		}
		snap, err := sw.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) run(index int, a action) tea.Cmd {
	sw, ctx := m.sw, m.ctx
	return func() tea.Msg {
		ref := powerswitch.Index(index)
		msg := actionDoneMsg{index: index, action: a}
		switch a {
		case actionOn, actionOff:
			msg.result, msg.err = sw.SetPower(ctx, ref, a == actionOn)
		case actionCycle:
			msg.err = sw.Cycle(ctx, ref)
			if msg.err != nil {
				msg.result = powerswitch.Failed
			}
		}
		return msg
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{m.tick()}
		if !m.fetching && m.busy == 0 {
			m.fetching = true
			cmds = append(cmds, m.fetch())
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.fetching = false
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.lastUpdate = time.Now()
			if m.cursor >= len(m.snap.Outlets) {
				m.cursor = max(0, len(m.snap.Outlets)-1)
			}
		}
		return m, nil

	case actionDoneMsg:
		m.busy = 0
		m.message = describe(msg)
		m.fetching = true
		return m, m.fetch()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.snap != nil && m.cursor < len(m.snap.Outlets)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Refresh):
		if !m.fetching {
			m.fetching = true
			return m, m.fetch()
		}

	case key.Matches(msg, m.keys.Toggle):
		o, ok := m.selected()
		if !ok {
			break
		}
		a := actionOn
		if o.State == powerswitch.StateOn {
			a = actionOff
		}
		return m.start(o.Index, a)

	case key.Matches(msg, m.keys.On):
		if o, ok := m.selected(); ok {
			return m.start(o.Index, actionOn)
		}

	case key.Matches(msg, m.keys.Off):
		if o, ok := m.selected(); ok {
			return m.start(o.Index, actionOff)
		}

	case key.Matches(msg, m.keys.Cycle):
		if o, ok := m.selected(); ok {
			return m.start(o.Index, actionCycle)
		}
	}
	return m, nil
}

// start runs an action unless one is already in flight
func (m Model) start(index int, a action) (tea.Model, tea.Cmd) {
	if m.busy != 0 {
		return m, nil
	}
	m.busy = index
	m.message = fmt.Sprintf("outlet %d: %s...", index, a)
	return m, m.run(index, a)
}

func (m Model) selected() (powerswitch.Outlet, bool) {
	if m.snap == nil || m.cursor < 0 || m.cursor >= len(m.snap.Outlets) {
		return powerswitch.Outlet{}, false
	}
	return m.snap.Outlets[m.cursor], true
}

func describe(msg actionDoneMsg) string {
	switch {
	case msg.err != nil:
		return fmt.Sprintf("%s outlet %d %s: %s", ui.FailureMarker, msg.index, msg.action,
			powerswitch.GetShortErrorMessage(msg.err))
	case msg.result == powerswitch.AlreadyInState:
		return fmt.Sprintf("%s outlet %d already %s", ui.SkippedMarker, msg.index, msg.action)
	case msg.result == powerswitch.Failed:
		return fmt.Sprintf("%s outlet %d %s failed", ui.FailureMarker, msg.index, msg.action)
	default:
		return fmt.Sprintf("%s outlet %d %s", ui.SuccessMarker, msg.index, msg.action)
	}
}

// View renders the dashboard
func (m Model) View() string {
	var b strings.Builder

	title := ui.HeaderTitleStyle.Render(strings.ToUpper(m.sw.Name()))
	status := ui.NoteStyle.Render(m.snap.Summary())
	if !m.lastUpdate.IsZero() {
		status += ui.NoteStyle.Render(" · updated " + m.lastUpdate.Format("15:04:05"))
	}
	if m.fetching || m.busy != 0 {
		status += " " + m.spinner.View()
	}
	b.WriteString(title + "  " + status + "\n\n")

	selected := 0
	if o, ok := m.selected(); ok {
		selected = o.Index
	}
	b.WriteString(ui.RenderStatusTable(ui.RowsFromSnapshot(m.snap), selected))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(ui.ErrorMessageStyle.Render("  " + powerswitch.GetShortErrorMessage(m.err)))
		b.WriteString("\n")
	}
	if m.message != "" {
		b.WriteString("  " + m.message + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

// Run shows the dashboard until the user quits or ctx ends
func Run(ctx context.Context, sw Switch, interval time.Duration) error {
	p := tea.NewProgram(New(ctx, sw, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

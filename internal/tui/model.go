// Package tui renders dashboard.State with bubbletea. The model is a second
// dashboard runtime: effects become commands and their completions come back
// as messages, which bubbletea delivers one at a time.
package tui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/osvaldoandrade/taskdeck/internal/dashboard"
	"github.com/osvaldoandrade/taskdeck/internal/logging"
	"github.com/osvaldoandrade/taskdeck/internal/router"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

// eventMsg carries a dashboard event that did not come from an effect.
type eventMsg struct{ ev dashboard.Event }

// effectDoneMsg carries the completion of an effect started by the model.
type effectDoneMsg struct{ ev dashboard.Event }

type statusMsg string

type Options struct {
	API      dashboard.APIFactory
	PageSize int
	// Token, when present, is submitted before the first frame.
	Token   domain.Token
	BaseURL string
	Logger  *slog.Logger
	// Opener shows a result asset outside the terminal; defaults to the
	// platform URL handler.
	Opener func(href string) error
}

type Model struct {
	ctx      context.Context
	api      dashboard.APIFactory
	pageSize int
	baseURL  string
	logger   *slog.Logger
	opener   func(string) error
	history  *router.History

	state   dashboard.State
	pending int
	status  string

	keys    keyMap
	token   textinput.Model
	tasks   list.Model
	compose textarea.Model
	spin    spinner.Model
	help    help.Model

	width, height int
	initial       []tea.Cmd
}

func New(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	opener := opts.Opener
	if opener == nil {
		opener = openURL
	}

	ti := textinput.New()
	ti.Placeholder = "bearer token"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Prompt = "token> "
	ti.Focus()

	ta := textarea.New()
	ta.Placeholder = `{"key": "value"}`
	ta.ShowLineNumbers = false
	ta.SetHeight(8)

	tl := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	tl.Title = "Tasks"
	tl.SetShowHelp(false)
	tl.SetFilteringEnabled(false)
	tl.SetShowStatusBar(false)
	tl.Styles.Title = titleStyle

	m := &Model{
		ctx:      ctx,
		api:      opts.API,
		pageSize: opts.PageSize,
		baseURL:  opts.BaseURL,
		logger:   logger,
		opener:   opener,
		history:  router.NewHistory(nil),
		state:    dashboard.State{Route: router.Root},
		keys:     newKeyMap(),
		token:    ti,
		tasks:    tl,
		compose:  ta,
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(dimStyle)),
		help:     help.New(),
	}
	if opts.Token.Present() {
		m.apply(dashboard.TokenInputChanged{Text: string(opts.Token)})
		m.initial = append(m.initial, m.apply(dashboard.TokenSubmitted{})...)
	}
	return m
}

// State returns the dashboard state as of the last processed message.
func (m *Model) State() dashboard.State { return m.state }

func (m *Model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{textinput.Blink, m.spin.Tick}, m.initial...)
	m.initial = nil
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.tasks.SetSize(msg.Width, max(msg.Height-4, 3))
		m.compose.SetWidth(max(msg.Width-4, 20))
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case effectDoneMsg:
		m.pending--
		if m.pending < 0 {
			m.pending = 0
		}
		return m, tea.Batch(m.apply(msg.ev)...)

	case eventMsg:
		return m, tea.Batch(m.apply(msg.ev)...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQ) {
		return m, tea.Quit
	}
	m.status = ""

	switch m.state.Mode() {
	case dashboard.AwaitingToken:
		if key.Matches(msg, m.keys.Open) {
			return m, tea.Batch(m.apply(dashboard.TokenSubmitted{})...)
		}
		var cmd tea.Cmd
		m.token, cmd = m.token.Update(msg)
		cmds := []tea.Cmd{cmd}
		if pending := m.state.PendingToken; pending == nil || *pending != m.token.Value() {
			cmds = append(cmds, m.apply(dashboard.TokenInputChanged{Text: m.token.Value()})...)
		}
		return m, tea.Batch(cmds...)

	case dashboard.ListView:
		if m.loadingTask() {
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.Back):
				return m, m.back()
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Open):
			if it, ok := m.tasks.SelectedItem().(taskItem); ok {
				return m, tea.Batch(m.apply(dashboard.RouteChanged{Path: router.TaskRoute(it.task.ID).Path()})...)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.tasks, cmd = m.tasks.Update(msg)
		return m, cmd

	case dashboard.DetailView:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Compose):
			m.compose.SetValue(m.state.TaskDetail.RawInput)
			cmds := m.apply(dashboard.StartComposing{})
			return m, tea.Batch(append(cmds, m.compose.Focus())...)
		case key.Matches(msg, m.keys.Back):
			return m, m.back()
		case key.Matches(msg, m.keys.Asset):
			return m, m.openAsset()
		}
		return m, nil

	case dashboard.Composing:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.compose.Blur()
			return m, tea.Batch(m.apply(dashboard.CancelComposing{})...)
		case key.Matches(msg, m.keys.Submit):
			if !m.state.CanSubmit() {
				m.status = "arguments are not valid yet"
				return m, nil
			}
			return m, tea.Batch(m.apply(dashboard.SubmitExecution{})...)
		}
		var cmd tea.Cmd
		m.compose, cmd = m.compose.Update(msg)
		cmds := []tea.Cmd{cmd}
		if text := m.compose.Value(); text != m.state.TaskDetail.RawInput {
			cmds = append(cmds, m.apply(dashboard.InputChanged{Text: text})...)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// apply feeds ev through Update and turns the resulting effects into commands.
func (m *Model) apply(ev dashboard.Event) []tea.Cmd {
	dashboard.Observe(m.logger, m.state, ev)
	if ec, ok := ev.(dashboard.ExecutionCreated); ok && ec.Err != nil && ec.Gen == m.state.Gen {
		m.status = "execution was not created: " + ec.Err.Error()
	}
	if rc, ok := ev.(dashboard.RouteChanged); ok {
		m.history.Push(rc.Path)
	}

	prev := m.state
	next, effects := dashboard.Update(m.state, ev)
	m.state = next
	m.sync(prev)

	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		cmds = append(cmds, m.command(eff))
	}
	return cmds
}

func (m *Model) command(eff dashboard.Effect) tea.Cmd {
	if nav, ok := eff.(dashboard.Navigate); ok {
		return func() tea.Msg { return eventMsg{ev: dashboard.RouteChanged{Path: nav.Path}} }
	}
	m.pending++
	ctx, api, size := m.ctx, m.api, m.pageSize
	return func() tea.Msg {
		return effectDoneMsg{ev: dashboard.Perform(ctx, api, size, eff)}
	}
}

// sync pushes state changes into the widgets that keep their own copy.
func (m *Model) sync(prev dashboard.State) {
	if !sameTasks(prev.TaskList, m.state.TaskList) {
		m.tasks.SetItems(taskItems(m.state.TaskList))
	}
	if prev.Mode() == dashboard.Composing && m.state.Mode() != dashboard.Composing {
		m.compose.Blur()
	}
	if prev.Mode() == dashboard.AwaitingToken && m.state.Mode() != dashboard.AwaitingToken {
		m.token.Reset()
		m.token.Blur()
	}
}

// loadingTask reports a detail route whose task has not arrived yet.
func (m *Model) loadingTask() bool {
	return m.state.Mode() == dashboard.ListView && m.state.Route.IsDetail()
}

func (m *Model) back() tea.Cmd {
	prev, ok := m.history.Back()
	if !ok {
		prev = router.Root
	}
	return tea.Batch(m.apply(dashboard.RouteChanged{Path: prev.Path()})...)
}

func (m *Model) openAsset() tea.Cmd {
	href, ok := firstAsset(m.state.TaskDetail)
	if !ok {
		m.status = "no result assets yet"
		return nil
	}
	open := m.opener
	return func() tea.Msg {
		if err := open(href); err != nil {
			return statusMsg(fmt.Sprintf("could not open %s: %v", href, err))
		}
		return statusMsg("opened " + href)
	}
}

// firstAsset picks the first result of the most recent execution that has one.
func firstAsset(d *dashboard.TaskDetail) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, e := range d.Executions {
		for _, r := range e.Results {
			if r.Href != "" {
				return r.Href, true
			}
		}
	}
	return "", false
}

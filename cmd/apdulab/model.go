package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/apdulab/apdulab/pkg/catalog"
	"github.com/apdulab/apdulab/pkg/engine"
	"github.com/apdulab/apdulab/pkg/logstore"
	"github.com/apdulab/apdulab/pkg/transport"
)

// uiMode selects which surface owns the keyboard.
type uiMode int

const (
	modeLog uiMode = iota
	modeTransportPicker
	modeCmdPicker
	modeSessionPicker
	modeForm
)

// appModel is the root bubbletea model.
type appModel struct {
	ctx          context.Context
	eng          *engine.Engine
	program      *tea.Program
	cancelBridge context.CancelFunc

	mode            uiMode
	logView         logViewModel
	transportPicker transportPickerModel
	cmdPicker       cmdPickerModel
	sessionPicker   sessionPickerModel
	form            *formModel

	spin           spinner.Model
	running        bool
	pendingExecute bool
	status         string
	width          int
	height         int
}

func newAppModel(ctx context.Context, eng *engine.Engine) appModel {
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{Frames: spinnerFrames, FPS: spinner.Dot.FPS}
	sp.Style = spinnerStyle

	return appModel{
		ctx:       ctx,
		eng:       eng,
		logView:   newLogView(eng.InitialFilter()),
		cmdPicker: newCmdPicker(eng.Catalog()),
		spin:      sp,
	}
}

func (m appModel) Init() tea.Cmd {
	return nil
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case programReadyMsg:
		m.program = msg.program
		m.cancelBridge = startBridge(m.ctx, msg.program, m.eng.Store(), m.eng.Bus())
		return m, nil

	case logEntriesMsg:
		m.logView.append(msg.entries)
		return m, nil

	case logResetMsg:
		m.logView.reset()
		return m, nil

	case engineEventMsg:
		return m.handleEngineEvent(msg.event)

	case openDoneMsg:
		// The open outcome is already in the log; the status line just
		// mirrors failures for visibility.
		if msg.err != nil {
			m.status = errorStyle.Render(msg.err.Error())
		}
		return m, nil

	case formDoneMsg:
		return m.handleFormDone(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	if m.mode == modeForm && m.form != nil {
		return m, m.form.Update(msg)
	}
	return m, m.logView.update(msg)
}

func (m appModel) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Header, filter bar and status line each take one row.
	m.logView.setSize(msg.Width, max(msg.Height-3, 3))
	m.transportPicker.width = msg.Width
	m.cmdPicker.width = msg.Width
	m.cmdPicker.height = msg.Height
	m.sessionPicker.width = msg.Width

	initMarkdownRenderer(max(msg.Width-8, 40))

	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modeTransportPicker:
		kind, done := m.transportPicker.handleKey(msg)
		if done {
			m.mode = modeLog
			if kind != "" {
				return m, m.openCmd(kind)
			}
		}
		return m, nil

	case modeCmdPicker:
		cmd, done := m.cmdPicker.handleKey(msg)
		if done {
			m.mode = modeLog
			if cmd.ID != "" {
				return m.selectCommand(cmd)
			}
		}
		return m, nil

	case modeSessionPicker:
		action, id := m.sessionPicker.handleKey(msg)
		switch action {
		case sessionReclaim:
			m.mode = modeLog
			if err := m.eng.Session().Reclaim(id); err != nil {
				m.status = errorStyle.Render(err.Error())
			}
		case sessionClose:
			return m, m.closeBackgroundCmd(id)
		case sessionDismiss:
			m.mode = modeLog
		}
		return m, nil

	case modeForm:
		return m, m.form.Update(msg)
	}

	return m.handleLogKey(msg)
}

// handleLogKey processes keys while the log has focus.
func (m appModel) handleLogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "o":
		if state, _ := m.eng.Session().State(); state != engine.StateNoTransport {
			m.status = "leave (l) or close (x) the current transport first"
			return m, nil
		}
		m.transportPicker.cursor = 0
		m.mode = modeTransportPicker
		return m, nil

	case "c":
		if m.eng.Session().Active() == nil {
			m.status = "open a transport first (o)"
			return m, nil
		}
		m.cmdPicker.reset()
		m.mode = modeCmdPicker
		return m, nil

	case "b":
		m.sessionPicker.setHandles(m.eng.Session().Backgrounded())
		m.mode = modeSessionPicker
		return m, nil

	case "l":
		if err := m.eng.Session().Leave(); err != nil {
			m.status = errorStyle.Render(err.Error())
		}
		return m, nil

	case "x":
		return m, m.closeActiveCmd()

	case "enter":
		return m.executeSelected()

	case "esc":
		if m.running {
			if err := m.eng.Dispatcher().Cancel(); err != nil {
				m.status = errorStyle.Render(err.Error())
			}
		}
		return m, nil

	case "ctrl+l":
		m.eng.Store().Clear()
		return m, nil
	}

	// Number keys toggle log kind visibility.
	if len(msg.String()) == 1 {
		if n := int(msg.String()[0] - '1'); n >= 0 && n < len(logstore.Kinds) {
			m.logView.toggleKind(logstore.Kinds[n])
			return m, nil
		}
	}

	return m, m.logView.update(msg)
}

// selectCommand hands the picked command to the dispatcher and opens its
// parameter form, if it has one. Commands without a form execute as soon as
// their dependencies resolve.
func (m appModel) selectCommand(cmd catalog.Command) (tea.Model, tea.Cmd) {
	if err := m.eng.Dispatcher().Select(m.ctx, cmd); err != nil {
		m.status = errorStyle.Render(err.Error())
		return m, nil
	}

	if len(cmd.Form) > 0 {
		m.form = newFormModel(cmd, cmd.DefaultValues())
		m.mode = modeForm
		return m, m.form.Init()
	}

	m.pendingExecute = true
	return m.executeIfReady()
}

func (m appModel) handleFormDone(msg formDoneMsg) (tea.Model, tea.Cmd) {
	m.mode = modeLog
	if msg.aborted || m.form == nil {
		m.form = nil
		m.pendingExecute = false
		return m, nil
	}

	m.eng.Dispatcher().SetValues(m.form.Values())
	m.form = nil
	m.pendingExecute = true
	return m.executeIfReady()
}

// executeIfReady starts the pending execution once the dependency bag is in
// place. Until then the dispatcher keeps refusing, so it just waits for the
// deps-ready notification.
func (m appModel) executeIfReady() (tea.Model, tea.Cmd) {
	if !m.pendingExecute || m.eng.Dispatcher().Deps() == nil {
		return m, nil
	}

	m.pendingExecute = false
	if err := m.eng.Dispatcher().Execute(m.ctx); err != nil {
		m.status = errorStyle.Render(err.Error())
	}
	return m, nil
}

// executeSelected re-runs the currently selected command on demand.
func (m appModel) executeSelected() (tea.Model, tea.Cmd) {
	if _, ok := m.eng.Dispatcher().Selected(); !ok {
		m.status = "pick a command first (c)"
		return m, nil
	}
	if err := m.eng.Dispatcher().Execute(m.ctx); err != nil {
		m.status = errorStyle.Render(err.Error())
	}
	return m, nil
}

func (m appModel) handleEngineEvent(ev engine.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case engine.EventSessionChanged:
		m.sessionPicker.setHandles(m.eng.Session().Backgrounded())
		return m, nil

	case engine.EventDepResolved:
		if ds, ok := ev.Data.(engine.DepStatus); ok {
			m.status = statusStyle.Render("resolved " + ds.Key)
		}
		return m, nil

	case engine.EventDepsReady:
		m.status = ""
		return m.executeIfReady()

	case engine.EventDepsFailed:
		m.pendingExecute = false
		m.status = errorStyle.Render("dependency resolution failed, re-select the command")
		return m, nil

	case engine.EventExecutionStarted:
		m.running = true
		return m, m.spin.Tick

	case engine.EventExecutionEnded:
		m.running = false
		if res, ok := ev.Data.(engine.ExecutionResult); ok && res.Cancelled {
			m.status = statusStyle.Render("cancelled after " + engine.FormatElapsed(res.Elapsed))
		}
		return m, nil
	}
	return m, nil
}

func (m appModel) openCmd(kind transport.Kind) tea.Cmd {
	ctx, sess := m.ctx, m.eng.Session()
	return func() tea.Msg {
		return openDoneMsg{err: sess.Open(ctx, kind)}
	}
}

func (m appModel) closeActiveCmd() tea.Cmd {
	ctx, sess := m.ctx, m.eng.Session()
	return func() tea.Msg {
		return openDoneMsg{err: sess.CloseActive(ctx)}
	}
}

func (m appModel) closeBackgroundCmd(id string) tea.Cmd {
	ctx, sess := m.ctx, m.eng.Session()
	return func() tea.Msg {
		return openDoneMsg{err: sess.CloseBackground(ctx, id)}
	}
}

func (m appModel) View() string {
	switch m.mode {
	case modeTransportPicker:
		return m.transportPicker.View()
	case modeCmdPicker:
		return m.cmdPicker.View()
	case modeSessionPicker:
		return m.sessionPicker.View()
	case modeForm:
		if m.form != nil {
			return m.form.View()
		}
	}

	return m.headerLine() + "\n" + m.logView.view() + "\n" +
		m.logView.filterBar() + "\n" + m.statusLine()
}

func (m appModel) headerLine() string {
	header := titleStyle.Render("apdulab")

	state, active := m.eng.Session().State()
	switch state {
	case engine.StateActive:
		header += "  " + activeStyle.Render(string(active.Kind()))
	case engine.StateOpening:
		header += "  " + statusStyle.Render("opening…")
	default:
		header += "  " + statusStyle.Render("no transport")
	}

	if n := len(m.eng.Session().Backgrounded()); n > 0 {
		header += statusStyle.Render(fmt.Sprintf("  (%d backgrounded)", n))
	}

	if cmd, ok := m.eng.Dispatcher().Selected(); ok {
		header += "  " + statusStyle.Render(cmd.Label)
	}

	if m.running {
		header += "  " + m.spin.View() + statusStyle.Render(" running, esc cancels")
	}

	return header
}

func (m appModel) statusLine() string {
	if m.status != "" {
		return m.status
	}
	return hintStyle.Render(truncate(
		"o open · c command · enter re-run · esc cancel · l leave · x close · b sessions · 1-7 filter · ctrl+l clear · q quit",
		m.width))
}

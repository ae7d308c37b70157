package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/picker"
	"github.com/desertthunder/homeboard/internal/shared"
	"github.com/desertthunder/homeboard/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SessionView ViewState = iota
	WaitView
	SyncView
	ResultView
)

// PhotoPicker is the part of [picker.Tracker] the TUI drives.
type PhotoPicker interface {
	CreateSession(ctx context.Context) (*models.PickerSession, error)
	PollStatus(ctx context.Context) (*picker.Status, error)
	SyncSelectedMedia(ctx context.Context) (*models.SyncState, error)
	Photos(ctx context.Context) ([]string, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	picker   PhotoPicker
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	deadline time.Time
	width    int
	height   int
	session  *models.PickerSession
	status   *picker.Status
	result   *models.SyncState
	progress <-chan tasks.ProgressUpdate
	latest   *tasks.ProgressUpdate
	photos   list.Model
	spinner  spinner.Model
	err      error
	help     help.Model
	keys     keyMap
}

// Opts contains dependencies for [NewModel]. Zero durations use the picker defaults.
type Opts struct {
	Picker   PhotoPicker
	Interval time.Duration
	Timeout  time.Duration
	Now      func() time.Time
	// Progress is the channel the picker reports sync progress on, if any.
	Progress <-chan tasks.ProgressUpdate
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Opts) *Model {
	if opts.Interval <= 0 {
		opts.Interval = picker.PollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = picker.PollTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	return &Model{
		ctx:      ctx,
		view:     SessionView,
		picker:   opts.Picker,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		now:      opts.Now,
		progress: opts.Progress,
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// State returns the current view.
func (m *Model) State() ViewState { return m.view }

// Err returns the error that ended the flow, if any.
func (m *Model) Err() error { return m.err }

// Result returns the sync counts once the flow has finished.
func (m *Model) Result() *models.SyncState { return m.result }

// Init starts a picker session.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.createSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ResultView {
			m.photos.SetSize(msg.Width-4, msg.Height-12)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view == ResultView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionCreatedMsg:
		if msg.err != nil {
			return m.finish(msg.err)
		}
		m.session = msg.session
		m.deadline = m.now().Add(m.timeout)
		m.view = WaitView
		return m, m.tick()

	case pollTickMsg:
		if m.view != WaitView {
			return m, nil
		}
		if !m.now().Before(m.deadline) {
			return m.finish(fmt.Errorf("%w: no selection after %s", shared.ErrTimeout, m.timeout))
		}
		return m, m.poll()

	case statusMsg:
		if msg.err != nil {
			return m.finish(msg.err)
		}
		m.status = msg.status
		if msg.status.State != picker.StateComplete {
			return m, m.tick()
		}
		m.view = SyncView
		m.latest = nil
		return m, tea.Batch(m.sync(), m.waitProgress())

	case progressMsg:
		if m.view != SyncView {
			return m, nil
		}
		update := tasks.ProgressUpdate(msg)
		m.latest = &update
		return m, m.waitProgress()

	case syncedMsg:
		if msg.err != nil {
			return m.finish(msg.err)
		}
		m.result = msg.state
		m.photos = list.New(photoItems(msg.photos), list.NewDefaultDelegate(), 0, 0)
		m.photos.Title = "Synced Photos"
		m.photos.SetShowHelp(false)
		m.photos.SetSize(max(m.width-4, 20), max(m.height-12, 5))
		m.view = ResultView
		return m, nil
	}

	if m.view == ResultView && m.err == nil {
		var cmd tea.Cmd
		m.photos, cmd = m.photos.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) finish(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.view = ResultView
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.retry) && m.view == ResultView:
		m.view = SessionView
		m.session, m.status, m.result, m.err = nil, nil, nil, nil
		return m, tea.Batch(m.spinner.Tick, m.createSession())
	}

	if m.view == ResultView && m.err == nil {
		var cmd tea.Cmd
		m.photos, cmd = m.photos.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) createSession() tea.Cmd {
	return func() tea.Msg {
		session, err := m.picker.CreateSession(m.ctx)
		return sessionCreatedMsg{session: session, err: err}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return pollTickMsg(t) })
}

func (m *Model) poll() tea.Cmd {
	return func() tea.Msg {
		status, err := m.picker.PollStatus(m.ctx)
		return statusMsg{status: status, err: err}
	}
}

// waitProgress blocks for the next sync update.
func (m *Model) waitProgress() tea.Cmd {
	if m.progress == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update := <-m.progress:
			return progressMsg(update)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) sync() tea.Cmd {
	return func() tea.Msg {
		state, err := m.picker.SyncSelectedMedia(m.ctx)
		if err != nil {
			return syncedMsg{err: err}
		}
		photos, err := m.picker.Photos(m.ctx)
		return syncedMsg{state: state, photos: photos, err: err}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SessionView:
		return fmt.Sprintf("%s Creating picker session...\n\n%s", m.spinner.View(), m.help.ShortHelpView(m.keys.ShortHelp()))
	case WaitView:
		return m.renderWait()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderWait() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Select Photos"))
	b.WriteString("\n")
	b.WriteString("Open this link on your phone and pick the photos for the slideshow:\n\n")
	b.WriteString(styles.link.Render(m.session.PickerURI))
	b.WriteString("\n\n")

	remaining := m.deadline.Sub(m.now()).Round(time.Second)
	fmt.Fprintf(&b, "%s Waiting for selection (%s left)\n\n", m.spinner.View(), max(remaining, 0))
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderSync() string {
	line := fmt.Sprintf("%s Downloading selected photos...\n", m.spinner.View())
	if m.latest == nil {
		return line
	}
	style := styles.help
	if m.latest.Err != nil {
		style = styles.warn
	}
	return line + style.Render(m.latest.Message) + "\n"
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.retry, m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Picker failed: %v", m.err)) + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Photos synced")
	info := fmt.Sprintf("\nDownloaded: %d\nAlready present: %d\nRemoved: %d",
		m.result.Downloaded, m.result.Skipped, m.result.Removed)

	var failed string
	if m.result.Failed > 0 {
		failed = "\n" + styles.warn.Render(fmt.Sprintf("Failed: %d", m.result.Failed))
	}

	return fmt.Sprintf("%s%s%s\n\n%s\n\n%s", title, info, failed, m.photos.View(), styles.help.Render(helpView))
}

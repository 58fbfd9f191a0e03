package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunedl/internal/ledger"
	"github.com/desertthunder/tunedl/internal/services"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tasks"
)

const (
	// DefaultInterval is the delay between polls.
	DefaultInterval = 500 * time.Millisecond

	maxPollFailures = 5
	chromeHeight    = 6 // title, status and help lines around the viewport
)

// Snapshot is one poll of a job: its events so far and its status.
type Snapshot struct {
	Events []ledger.Event
	Status string
}

// Done reports whether the job has reached a terminal status.
func (s Snapshot) Done() bool { return tasks.Status(s.Status).Done() }

// Source fetches the current [Snapshot] of a single job.
//
// A source fails with [shared.ErrJobNotFound] when the job does not exist; followers stop at once
// instead of retrying.
type Source func(ctx context.Context) (Snapshot, error)

// checkKnown turns an unknown status into [shared.ErrJobNotFound].
func checkKnown(id string, snap Snapshot) (Snapshot, error) {
	if snap.Status == string(tasks.StatusUnknown) {
		return snap, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return snap, nil
}

// notFound reports whether err means the watched job does not exist.
func notFound(err error) bool { return errors.Is(err, shared.ErrJobNotFound) }

// LocalSource reads job id straight from an in-process orchestrator.
func LocalSource(orch *tasks.Orchestrator, id string) Source {
	return func(context.Context) (Snapshot, error) {
		snap := Snapshot{Events: orch.Ledger().Query(id), Status: string(tasks.StatusUnknown)}
		if job, ok := orch.Job(id); ok {
			snap.Status = string(job.Status)
		}
		return checkKnown(id, snap)
	}
}

// RemoteSource polls the progress endpoint of a running server.
func RemoteSource(api *services.APIService, id string) Source {
	return func(ctx context.Context) (Snapshot, error) {
		resp, err := api.Progress(ctx, id)
		if err != nil {
			return Snapshot{}, err
		}
		return checkKnown(id, Snapshot{Events: resp.Progress, Status: resp.Status})
	}
}

// Model is the watcher's state: the latest snapshot rendered into a scrollable viewport.
type Model struct {
	ctx      context.Context
	title    string
	source   Source
	interval time.Duration
	snapshot Snapshot
	err      error
	failures int
	done     bool
	follow   bool
	ready    bool
	width    int
	height   int
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap
}

// NewModel creates a watcher titled title that polls source every interval.
func NewModel(ctx context.Context, title string, source Source, interval time.Duration) *Model {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = NewStyle("#7D56F4")

	return &Model{
		ctx:      ctx,
		title:    title,
		source:   source,
		interval: interval,
		follow:   true,
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the spinner and the first poll.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width, m.viewport.Height = msg.Width, h
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgPollDue:
			return m, m.poll()
		case MsgPolled:
			return m.handlePolled(msg.data.(polled))
		}
	}

	return m, nil
}

func (m *Model) handlePolled(p polled) (tea.Model, tea.Cmd) {
	if p.err != nil {
		m.failures++
		if m.failures >= maxPollFailures || notFound(p.err) {
			m.err = p.err
			m.done = true
			return m, tea.Quit
		}
		return m, m.schedule()
	}

	m.failures = 0
	m.snapshot = p.snapshot
	m.refresh()

	if m.snapshot.Done() {
		m.done = true
		return m, tea.Quit
	}
	return m, m.schedule()
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.follow):
		m.follow = !m.follow
		if m.follow {
			m.viewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.top):
		m.follow = false
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.bottom):
		m.follow = true
		m.viewport.GotoBottom()
		return m, nil
	case key.Matches(msg, m.keys.up):
		m.follow = false
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refresh re-renders the events into the viewport, keeping the bottom in view while following.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderEvents(m.snapshot.Events))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) poll() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.source(m.ctx)
		return polledMsg(snap, err)
	}
}

func (m *Model) schedule() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return pollDueMsg() })
}

// View renders the title, a status line, the event log and key help.
func (m *Model) View() string {
	title := styles.title.Render(m.title)

	body := renderEvents(m.snapshot.Events)
	if m.ready {
		body = m.viewport.View()
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, m.status(), body, m.help.View(m.keys))
}

func (m *Model) status() string {
	count := fmt.Sprintf("%d events", len(m.snapshot.Events))
	switch {
	case notFound(m.err):
		return styles.err.Render(fmt.Sprintf("✗ %v", m.err))
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("✗ Lost contact: %v", m.err))
	case m.snapshot.Status == string(tasks.StatusCompleted):
		return styles.ok.Render("✓ Completed") + " · " + count
	case m.snapshot.Status == string(tasks.StatusFailed):
		return styles.err.Render("✗ Failed") + " · " + count
	case m.snapshot.Status == "":
		return m.spinner.View() + " Connecting..."
	default:
		return fmt.Sprintf("%s %s · %s", m.spinner.View(), m.snapshot.Status, count)
	}
}

// Result returns the last snapshot and the poll error that ended the watcher, if any.
func (m *Model) Result() (Snapshot, error) {
	return m.snapshot, m.err
}

// Watch runs the watcher until the job ends or the user quits, and returns the final snapshot.
func Watch(ctx context.Context, title string, source Source, interval time.Duration) (Snapshot, error) {
	model := NewModel(ctx, title, source, interval)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return model.snapshot, err
	}
	return final.(*Model).Result()
}

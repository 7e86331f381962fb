package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/relay/internal/flow"
	"github.com/ShayCichocki/relay/internal/orchestrator"
)

// maxLogLines is how many recent log lines the view keeps.
const maxLogLines = 8

// EventMsg wraps an orchestrator event for the TUI.
type EventMsg struct {
	Event orchestrator.Event
}

// EventsClosedMsg is sent when the event stream has been closed.
type EventsClosedMsg struct{}

// LabelMsg attaches a human readable label to a run.
type LabelMsg struct {
	RunID string
	Label string
}

// UsageMsg reports token usage so far.
type UsageMsg struct {
	InputTokens  int64
	OutputTokens int64
	Cost         float64
}

type unitStatus int

const (
	unitRunning unitStatus = iota
	unitDone
	unitFailed
)

type unitRow struct {
	name     string
	status   unitStatus
	route    string
	state    string
	err      string
	duration time.Duration
}

type runRow struct {
	id     string
	label  string
	units  []*unitRow
	byName map[string]*unitRow
	done   bool
	err    error
}

// Progress is the bubbletea model showing live unit progress for one or
// more runs.
type Progress struct {
	expected int
	runs     []*runRow
	byID     map[string]*runRow
	logs     []string
	usage    UsageMsg
	spinner  spinner.Model
	width    int
	quitting bool
	closed   bool

	titleStyle   lipgloss.Style
	labelStyle   lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	routeStyle   lipgloss.Style
	mutedStyle   lipgloss.Style
	runningStyle lipgloss.Style
}

// NewProgress creates a model expecting the given number of runs. The model
// quits once that many runs have finished.
func NewProgress(expected int) *Progress {
	return &Progress{
		expected: expected,
		byID:     make(map[string]*runRow),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("205"))),
		),

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")),
		labelStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")),
		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green
		failedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red
		routeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange
		mutedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
		runningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
	}
}

// ListenEvents returns a command that waits for the next event on ch.
// Update re-issues it after each event.
func ListenEvents(ch <-chan orchestrator.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return EventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// Watch binds the model to an event stream and returns a program for it.
func Watch(model *Progress, events <-chan orchestrator.Event) *tea.Program {
	return tea.NewProgram(&watcher{Progress: model, events: events})
}

// watcher re-subscribes to the event channel after every event.
type watcher struct {
	*Progress
	events <-chan orchestrator.Event
}

func (w *watcher) Init() tea.Cmd {
	return tea.Batch(w.Progress.Init(), ListenEvents(w.events))
}

func (w *watcher) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := w.Progress.Update(msg)
	if _, ok := msg.(EventMsg); ok && !w.quitting {
		cmd = tea.Batch(cmd, ListenEvents(w.events))
	}
	return w, cmd
}

// Init implements tea.Model.
func (p *Progress) Init() tea.Cmd {
	return p.spinner.Tick
}

// Update implements tea.Model.
func (p *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			p.quitting = true
			return p, tea.Quit
		}

	case tea.WindowSizeMsg:
		p.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case LabelMsg:
		p.run(msg.RunID).label = msg.Label

	case UsageMsg:
		p.usage = msg

	case EventMsg:
		p.apply(msg.Event)
		if p.Finished() {
			p.quitting = true
			return p, tea.Quit
		}

	case EventsClosedMsg:
		p.closed = true
		p.quitting = true
		return p, tea.Quit
	}

	return p, nil
}

// Finished reports whether every expected run has finished.
func (p *Progress) Finished() bool {
	if p.expected <= 0 {
		return false
	}
	done := 0
	for _, r := range p.runs {
		if r.done {
			done++
		}
	}
	return done >= p.expected
}

// Failed returns the IDs of runs that finished with an error.
func (p *Progress) Failed() []string {
	var ids []string
	for _, r := range p.runs {
		if r.done && r.err != nil {
			ids = append(ids, r.id)
		}
	}
	return ids
}

func (p *Progress) run(id string) *runRow {
	if r, ok := p.byID[id]; ok {
		return r
	}
	r := &runRow{id: id, byName: make(map[string]*unitRow)}
	p.byID[id] = r
	p.runs = append(p.runs, r)
	return r
}

func (r *runRow) unit(name string) *unitRow {
	if u, ok := r.byName[name]; ok {
		return u
	}
	u := &unitRow{name: name}
	r.byName[name] = u
	r.units = append(r.units, u)
	return u
}

func (p *Progress) apply(ev orchestrator.Event) {
	r := p.run(ev.RunID)

	switch ev.Type {
	case orchestrator.EventRunStarted:
		p.log(ev, "run started")

	case orchestrator.EventUnitStarted:
		u := r.unit(ev.Unit)
		u.status = unitRunning
		u.err = ""

	case orchestrator.EventUnitCompleted:
		u := r.unit(ev.Unit)
		u.status = unitDone
		u.duration = ev.Duration

	case orchestrator.EventUnitFailed:
		u := r.unit(ev.Unit)
		u.status = unitFailed
		u.duration = ev.Duration
		if ev.Err != nil {
			u.err = ev.Err.Error()
		}

	case orchestrator.EventRouteChanged:
		u := r.unit(ev.Unit)
		u.state = ev.State
		if ev.Route != "" {
			u.route = ev.Route
		}
		if ev.Route != "" && ev.State == flow.RouteDelegating.String() {
			p.log(ev, fmt.Sprintf("%s chose %s", ev.Unit, ev.Route))
		}

	case orchestrator.EventRunDone:
		r.done = true
		r.err = ev.Err
		if ev.Err != nil {
			p.log(ev, "run failed: "+ev.Err.Error())
		} else {
			p.log(ev, "run completed in "+ev.Duration.Round(time.Millisecond).String())
		}
	}
}

func (p *Progress) log(ev orchestrator.Event, msg string) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("%s [%s] %s", ts.Format("15:04:05"), shortID(ev.RunID), msg)
	p.logs = append(p.logs, line)
	if len(p.logs) > maxLogLines {
		p.logs = p.logs[len(p.logs)-maxLogLines:]
	}
}

// View implements tea.Model.
func (p *Progress) View() string {
	var b strings.Builder

	done := 0
	for _, r := range p.runs {
		if r.done {
			done++
		}
	}
	title := fmt.Sprintf("Weekend planner  %d/%d runs", done, max(p.expected, len(p.runs)))
	b.WriteString(p.titleStyle.Render(title))
	b.WriteString("\n")

	for _, r := range p.runs {
		b.WriteString(p.viewRun(r))
	}

	if p.usage.InputTokens+p.usage.OutputTokens > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.mutedStyle.Render(fmt.Sprintf("tokens %d in / %d out  ~$%.4f",
			p.usage.InputTokens, p.usage.OutputTokens, p.usage.Cost)))
	}

	if len(p.logs) > 0 {
		b.WriteString("\n")
		for _, line := range p.logs {
			b.WriteString(p.mutedStyle.Render(line))
			b.WriteString("\n")
		}
	}

	if !p.quitting {
		b.WriteString(p.mutedStyle.Render("\nq to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

func (p *Progress) viewRun(r *runRow) string {
	var b strings.Builder

	label := r.label
	if label == "" {
		label = "run"
	}
	status := p.runningStyle.Render("running")
	switch {
	case r.done && r.err != nil:
		status = p.failedStyle.Render("failed")
	case r.done:
		status = p.doneStyle.Render("completed")
	}
	fmt.Fprintf(&b, "\n%s %s  %s\n", p.labelStyle.Render(label), p.mutedStyle.Render(shortID(r.id)), status)

	for _, u := range r.units {
		var icon string
		switch u.status {
		case unitDone:
			icon = p.doneStyle.Render("✓")
		case unitFailed:
			icon = p.failedStyle.Render("✗")
		default:
			icon = p.spinner.View()
		}

		line := fmt.Sprintf("  %s %s", icon, u.name)
		if u.route != "" {
			line += p.routeStyle.Render(" → " + u.route)
		}
		if u.duration > 0 {
			line += p.mutedStyle.Render("  " + u.duration.Round(time.Millisecond).String())
		}
		if u.err != "" {
			line += "  " + p.failedStyle.Render(truncate(u.err, p.errWidth()))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (p *Progress) errWidth() int {
	if p.width > 40 {
		return p.width - 30
	}
	return 80
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

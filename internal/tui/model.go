// Package tui renders a live dashboard for a running workload: the current
// status snapshot, completion counts, and a tail of recent events. It is a
// read-only consumer of Dispatcher.Status() and the event bus.
package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arbiterhq/arbiter/internal/dispatch"
	"github.com/arbiterhq/arbiter/internal/event"
)

// maxEventLines is how many recent events the dashboard keeps.
const maxEventLines = 8

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// DrainedMsg tells the dashboard that every submitted handle has resolved.
type DrainedMsg struct{}

// tickMsg drives the periodic status poll.
type tickMsg time.Time

// eventLog collects bus events from publisher goroutines for the next tick.
type eventLog struct {
	mu        sync.Mutex
	lines     []string
	completed int
	failed    int
}

func (el *eventLog) record(e event.Event) {
	var line string
	switch ev := e.(type) {
	case event.TaskAdmittedEvent:
		line = fmt.Sprintf("admitted  %s (%s)", ev.Actor, shortID(ev.TaskID))
	case event.TaskCompletedEvent:
		line = fmt.Sprintf("completed %s in %s", ev.Actor, ev.Duration.Round(time.Millisecond))
	case event.TaskFailedEvent:
		line = fmt.Sprintf("failed    %s: %s", ev.Actor, ev.Error)
	case event.TaskCancelledEvent:
		line = fmt.Sprintf("cancelled %s", ev.Actor)
	case event.DriftDetectedEvent:
		line = fmt.Sprintf("drift     %s modified without a lock", ev.Path)
	default:
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	switch e.(type) {
	case event.TaskCompletedEvent:
		el.completed++
	case event.TaskFailedEvent:
		el.failed++
	}
	el.lines = append(el.lines, line)
	if len(el.lines) > maxEventLines {
		el.lines = el.lines[len(el.lines)-maxEventLines:]
	}
}

func (el *eventLog) snapshot() (lines []string, completed, failed int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	return append([]string(nil), el.lines...), el.completed, el.failed
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Model is the bubbletea model for the workload dashboard.
type Model struct {
	dispatcher *dispatch.Dispatcher
	log        *eventLog
	spinner    spinner.Model

	total     int
	completed int
	failed    int
	snapshot  dispatch.StatusSnapshot
	events    []string
	drained   bool
}

// NewModel creates a dashboard over the given dispatcher. It subscribes to
// the bus immediately so no events are missed before the program starts.
func NewModel(d *dispatch.Dispatcher, bus *event.Bus, total int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	el := &eventLog{}
	bus.SubscribeAll(el.record)

	return Model{
		dispatcher: d,
		log:        el,
		spinner:    sp,
		total:      total,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.snapshot = m.dispatcher.Status()
		m.events, m.completed, m.failed = m.log.snapshot()
		if m.drained {
			return m, tea.Quit
		}
		return m, tick()

	case DrainedMsg:
		m.drained = true
		m.snapshot = m.dispatcher.Status()
		m.events, m.completed, m.failed = m.log.snapshot()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("arbiter"))
	if m.drained {
		b.WriteString(dimStyle.Render("  drained"))
	} else {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %s / %s of %d tasks\n\n",
		sectionStyle.Render("progress:"),
		okStyle.Render(fmt.Sprintf("%d ok", m.completed)),
		failCount(m.failed),
		m.total)

	b.WriteString(sectionStyle.Render("running:") + " " + nameList(m.snapshot.RunningActors) + "\n")
	b.WriteString(sectionStyle.Render("locks:") + "   " + nameList(m.snapshot.HeldLocks) + "\n")
	fmt.Fprintf(&b, "%s  %d\n", sectionStyle.Render("queued:"), m.snapshot.QueuedCount)

	if len(m.events) > 0 {
		b.WriteString("\n" + sectionStyle.Render("recent:") + "\n")
		for _, line := range m.events {
			b.WriteString(dimStyle.Render("  "+line) + "\n")
		}
	}

	b.WriteString("\n" + dimStyle.Render("q to quit"))
	return b.String()
}

func failCount(n int) string {
	s := fmt.Sprintf("%d failed", n)
	if n > 0 {
		return failStyle.Render(s)
	}
	return s
}

func nameList(names []string) string {
	if len(names) == 0 {
		return dimStyle.Render("none")
	}
	return strings.Join(names, ", ")
}

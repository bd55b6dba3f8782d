package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// maxLogLines bounds the event log shown by the monitor.
const maxLogLines = 12

// EventKind classifies what the monitor displays.
type EventKind int

const (
	EventJoined EventKind = iota
	EventPeerJoined
	EventPeerLeft
	EventSignal
	EventError
	EventInfo
)

// Event is one line of room activity.
type Event struct {
	Time   time.Time
	Kind   EventKind
	UserID string
	Text   string
}

// Monitor is a live bubbletea view of a room.
type Monitor struct {
	program *tea.Program
	model   *monitorModel
	events  chan Event
	wg      sync.WaitGroup
}

type monitorModel struct {
	roomID   string
	status   string
	peers    map[string]struct{}
	log      []Event
	signals  int
	spinner  spinner.Model
	events   <-chan Event
	quitting bool
}

// NewMonitor creates a monitor for roomID. Call Start to show it.
func NewMonitor(roomID string) *Monitor {
	events := make(chan Event, 64)
	return &Monitor{
		model:  newMonitorModel(roomID, events),
		events: events,
	}
}

func newMonitorModel(roomID string, events <-chan Event) *monitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &monitorModel{
		roomID:  roomID,
		status:  "Joining...",
		peers:   make(map[string]struct{}),
		spinner: s,
		events:  events,
	}
}

// Start runs the program in its own goroutine. quit is called if the user
// exits with q or ctrl+c.
func (m *Monitor) Start(quit func()) {
	m.program = tea.NewProgram(m.model)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
		if m.model.quitting && quit != nil {
			quit()
		}
	}()
}

// Push adds an event. Events are dropped if the UI falls behind.
func (m *Monitor) Push(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	select {
	case m.events <- ev:
	default:
	}
}

// Stop quits the program and waits for it to restore the terminal.
func (m *Monitor) Stop() {
	if m.program != nil {
		m.program.Quit()
	}
	m.wg.Wait()
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *monitorModel) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Event:
		m.apply(msg)
		return m, m.listen()
	}

	return m, nil
}

func (m *monitorModel) apply(ev Event) {
	switch ev.Kind {
	case EventJoined:
		m.status = "In room"
	case EventPeerJoined:
		m.peers[ev.UserID] = struct{}{}
	case EventPeerLeft:
		delete(m.peers, ev.UserID)
	case EventSignal:
		m.signals++
	case EventError:
		m.status = ev.Text
	}

	m.log = append(m.log, ev)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *monitorModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s %s  %s\n", IconRoom, TitleStyle.Render(m.roomID), MutedStyle.Render(fmt.Sprintf("%d signals relayed", m.signals)))
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), m.status)

	peers := make([]string, 0, len(m.peers))
	for p := range m.peers {
		peers = append(peers, p)
	}
	sort.Strings(peers)
	if len(peers) == 0 {
		b.WriteString(MutedStyle.Render("No peers yet") + "\n")
	}
	for _, p := range peers {
		fmt.Fprintf(&b, "  %s %s\n", IconPeer, PeerStyle.Render(p))
	}
	b.WriteString("\n")

	for _, ev := range m.log {
		fmt.Fprintf(&b, "  %s %s\n", MutedStyle.Render(ev.Time.Format("15:04:05")), describe(ev))
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to leave"))
	return b.String()
}

func describe(ev Event) string {
	switch ev.Kind {
	case EventJoined:
		return SuccessStyle.Render("joined room")
	case EventPeerJoined:
		return PeerStyle.Render(ev.UserID) + " joined"
	case EventPeerLeft:
		return PeerStyle.Render(ev.UserID) + " left"
	case EventSignal:
		return IconSignal + " " + ev.Text
	case EventError:
		return ErrorStyle.Render(ev.Text)
	}
	return ev.Text
}

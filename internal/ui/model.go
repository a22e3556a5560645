// Package ui is a live terminal view of the events the gateway emits.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/meszmate/stanzaroute/internal/bus"
	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/ui/theme"
)

// EventMsg carries one bus notification into the program
type EventMsg struct {
	Time    time.Time
	Name    string
	Sender  string
	Summary string
}

// ConnectionMsg reports gateway connection changes
type ConnectionMsg struct {
	Connected bool
	JID       string
	Err       error
}

// Row is one rendered line of the event list
type Row struct {
	EventMsg
	Category Category
}

// Attach forwards every bus event to send, usually (*tea.Program).Send
func Attach(b *bus.EventBus, send func(tea.Msg)) {
	b.SubscribeAll(func(n bus.Notification) {
		if n.Payload == nil {
			return
		}
		send(NewEventMsg(n.Payload, time.Now()))
	})
}

// NewEventMsg summarizes ev for the monitor
func NewEventMsg(ev event.Event, at time.Time) EventMsg {
	return EventMsg{
		Time:    at,
		Name:    ev.Name(),
		Sender:  ev.From().JID().String(),
		Summary: Summarize(ev),
	}
}

// Model is the root Bubble Tea model
type Model struct {
	width  int
	height int
	ready  bool

	rows       []Row
	maxRows    int
	offset     int
	filter     Category
	paused     bool
	counts     map[Category]int
	timeFormat string

	connected bool
	account   string
	lastErr   error

	themes *theme.Manager
	styles *theme.Styles
}

// Options configures the monitor
type Options struct {
	MaxRows    int
	TimeFormat string
	Theme      string
	ThemeDirs  []string
}

// NewModel creates a new root model
func NewModel(opts Options) Model {
	themeManager := theme.NewManager(opts.ThemeDirs...)
	if opts.Theme != "" {
		if err := themeManager.SetTheme(opts.Theme); err != nil {
			_ = themeManager.SetTheme("rainbow")
		}
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 200
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = "15:04:05"
	}

	return Model{
		maxRows:    opts.MaxRows,
		timeFormat: opts.TimeFormat,
		counts:     make(map[Category]int),
		themes:     themeManager,
		styles:     themeManager.Styles(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		if m.paused {
			return m, nil
		}
		m.addRow(msg)

	case ConnectionMsg:
		m.connected = msg.Connected
		if msg.JID != "" {
			m.account = msg.JID
		}
		m.lastErr = msg.Err
	}

	return m, nil
}

func (m *Model) addRow(msg EventMsg) {
	row := Row{EventMsg: msg, Category: CategoryOf(msg.Name)}
	m.rows = append(m.rows, row)
	m.counts[row.Category]++
	if len(m.rows) > m.maxRows {
		m.rows = m.rows[len(m.rows)-m.maxRows:]
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "p", " ":
		m.paused = !m.paused
	case "c":
		m.rows = nil
		m.offset = 0
		m.counts = make(map[Category]int)
	case "f", "tab":
		m.filter = m.filter.next()
		m.offset = 0
	case "k", "up":
		if m.offset < len(m.visible())-1 {
			m.offset++
		}
	case "j", "down":
		if m.offset > 0 {
			m.offset--
		}
	case "G", "end":
		m.offset = 0
	case "t":
		names := m.themes.AvailableThemes()
		for i, name := range names {
			if name == m.themes.CurrentName() {
				_ = m.themes.SetTheme(names[(i+1)%len(names)])
				m.styles = m.themes.Styles()
				break
			}
		}
	}
	return m, nil
}

// visible returns the rows matching the filter, oldest first
func (m Model) visible() []Row {
	if m.filter == CategoryAll {
		return m.rows
	}
	out := make([]Row, 0, len(m.rows))
	for _, r := range m.rows {
		if r.Category == m.filter {
			out = append(out, r)
		}
	}
	return out
}

func (m Model) categoryStyle(c Category, name string) lipgloss.Style {
	if name == event.NameErrorMessage {
		return m.styles.Error
	}
	switch c {
	case CategoryMessage:
		return m.styles.Message
	case CategoryPresence:
		return m.styles.Presence
	case CategoryGroup:
		return m.styles.Group
	case CategoryDisco:
		return m.styles.Disco
	}
	return m.styles.Base
}

// View renders the monitor
func (m Model) View() string {
	if !m.ready {
		return "starting monitor..."
	}

	header := m.styles.Header.Render("stanzaroute") + " " +
		m.styles.Muted.Render(fmt.Sprintf("filter: %s  q quit  p pause  f filter  c clear  t theme", m.filter))

	listHeight := m.height - 2
	if listHeight < 1 {
		listHeight = 1
	}

	rows := m.visible()
	end := len(rows) - m.offset
	if end < 0 {
		end = 0
	}
	start := end - listHeight
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, r := range rows[start:end] {
		line := fmt.Sprintf("%s %s %s %s",
			m.styles.Muted.Render(r.Time.Format(m.timeFormat)),
			m.categoryStyle(r.Category, r.Name).Render(fmt.Sprintf("%-30s", r.Name)),
			m.styles.Sender.Render(r.Sender),
			m.styles.Base.Render(r.Summary),
		)
		b.WriteString(truncate(line, m.width))
		b.WriteString("\n")
	}
	for i := end - start; i < listHeight; i++ {
		b.WriteString("\n")
	}

	return header + "\n" + b.String() + m.statusBar()
}

func (m Model) statusBar() string {
	var state string
	switch {
	case m.paused:
		state = m.styles.StatusPaused.Render("PAUSED")
	case m.connected:
		state = m.styles.StatusConnected.Render("ONLINE")
	default:
		state = m.styles.StatusDisconnected.Render("OFFLINE")
	}

	info := fmt.Sprintf(" %s  msg:%d pres:%d muc:%d disco:%d",
		m.account,
		m.counts[CategoryMessage],
		m.counts[CategoryPresence],
		m.counts[CategoryGroup],
		m.counts[CategoryDisco],
	)
	if m.lastErr != nil {
		info += "  error: " + m.lastErr.Error()
	}

	bar := state + m.styles.StatusBar.Render(info)
	if w := lipgloss.Width(bar); w < m.width {
		bar += m.styles.StatusBar.Render(strings.Repeat(" ", m.width-w))
	}
	return bar
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

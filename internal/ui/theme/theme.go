package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

// Theme represents a complete monitor theme
type Theme struct {
	Name        string          `toml:"name"`
	Description string          `toml:"description"`
	Colors      ColorsConfig    `toml:"colors"`
	Events      EventsConfig    `toml:"events"`
	StatusBar   StatusBarConfig `toml:"statusbar"`
}

// ColorsConfig contains the base color palette
type ColorsConfig struct {
	Primary    string `toml:"primary"`
	Background string `toml:"background"`
	Foreground string `toml:"foreground"`
	Muted      string `toml:"muted"`
	Border     string `toml:"border"`
	Error      string `toml:"error"`
	Success    string `toml:"success"`
}

// EventsConfig colors each event category in the list
type EventsConfig struct {
	MessageFg  string `toml:"message_fg"`
	PresenceFg string `toml:"presence_fg"`
	GroupFg    string `toml:"group_fg"`
	DiscoFg    string `toml:"disco_fg"`
	ErrorFg    string `toml:"error_fg"`
	SenderFg   string `toml:"sender_fg"`
}

// StatusBarConfig contains status bar styles
type StatusBarConfig struct {
	Fg string `toml:"fg"`
	Bg string `toml:"bg"`
}

// Styles contains the compiled lipgloss styles for a theme
type Styles struct {
	Base   lipgloss.Style
	Header lipgloss.Style
	Muted  lipgloss.Style
	Border lipgloss.Style

	Message  lipgloss.Style
	Presence lipgloss.Style
	Group    lipgloss.Style
	Disco    lipgloss.Style
	Error    lipgloss.Style
	Sender   lipgloss.Style

	StatusBar          lipgloss.Style
	StatusConnected    lipgloss.Style
	StatusDisconnected lipgloss.Style
	StatusPaused       lipgloss.Style
}

// Manager handles theme loading and switching
type Manager struct {
	themes      map[string]*Theme
	current     *Theme
	currentName string
	styles      *Styles
	themeDirs   []string
}

// NewManager creates a new theme manager
func NewManager(themeDirs ...string) *Manager {
	m := &Manager{
		themes:    make(map[string]*Theme),
		themeDirs: themeDirs,
	}

	m.themes["rainbow"] = RainbowTheme()
	m.themes["mono"] = MonoTheme()

	m.current = m.themes["rainbow"]
	m.currentName = "rainbow"
	m.styles = m.compileStyles(m.current)

	return m
}

// RainbowTheme is the default colorful theme
func RainbowTheme() *Theme {
	return &Theme{
		Name:        "rainbow",
		Description: "Colorful default",
		Colors: ColorsConfig{
			Primary:    "#7aa2f7",
			Background: "#1a1b26",
			Foreground: "#c0caf5",
			Muted:      "#565f89",
			Border:     "#3b4261",
			Error:      "#f7768e",
			Success:    "#9ece6a",
		},
		Events: EventsConfig{
			MessageFg:  "#7dcfff",
			PresenceFg: "#9ece6a",
			GroupFg:    "#bb9af7",
			DiscoFg:    "#e0af68",
			ErrorFg:    "#f7768e",
			SenderFg:   "#ff9e64",
		},
		StatusBar: StatusBarConfig{
			Fg: "#c0caf5",
			Bg: "#24283b",
		},
	}
}

// MonoTheme avoids color for plain terminals
func MonoTheme() *Theme {
	return &Theme{
		Name:        "mono",
		Description: "No colors",
		Colors: ColorsConfig{
			Primary: "15", Background: "0", Foreground: "7", Muted: "8",
			Border: "8", Error: "15", Success: "15",
		},
		Events: EventsConfig{
			MessageFg: "7", PresenceFg: "7", GroupFg: "7",
			DiscoFg: "7", ErrorFg: "15", SenderFg: "15",
		},
		StatusBar: StatusBarConfig{Fg: "0", Bg: "7"},
	}
}

// LoadTheme loads a theme from a TOML file
func (m *Manager) LoadTheme(name string) error {
	for _, dir := range m.themeDirs {
		path := filepath.Join(dir, name+".toml")
		if _, err := os.Stat(path); err == nil {
			theme := RainbowTheme()
			if _, err := toml.DecodeFile(path, theme); err != nil {
				return fmt.Errorf("failed to parse theme file %s: %w", path, err)
			}
			theme.Name = name
			m.themes[name] = theme
			return nil
		}
	}
	return fmt.Errorf("theme %s not found", name)
}

// SetTheme switches to a different theme
func (m *Manager) SetTheme(name string) error {
	theme, ok := m.themes[name]
	if !ok {
		if err := m.LoadTheme(name); err != nil {
			return err
		}
		theme = m.themes[name]
	}
	m.current = theme
	m.currentName = name
	m.styles = m.compileStyles(theme)
	return nil
}

// Current returns the current theme
func (m *Manager) Current() *Theme {
	return m.current
}

// CurrentName returns the current theme name
func (m *Manager) CurrentName() string {
	return m.currentName
}

// Styles returns the compiled styles for the current theme
func (m *Manager) Styles() *Styles {
	return m.styles
}

// AvailableThemes returns a sorted list of loaded theme names
func (m *Manager) AvailableThemes() []string {
	names := make([]string, 0, len(m.themes))
	for name := range m.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// compileStyles compiles a theme into lipgloss styles
func (m *Manager) compileStyles(t *Theme) *Styles {
	s := &Styles{}

	s.Base = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Foreground))

	s.Header = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Background)).
		Background(lipgloss.Color(t.Colors.Primary)).
		Bold(true).
		Padding(0, 1)

	s.Muted = fg(t.Colors.Muted)

	s.Border = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.Colors.Border))

	s.Message = fg(t.Events.MessageFg)
	s.Presence = fg(t.Events.PresenceFg)
	s.Group = fg(t.Events.GroupFg)
	s.Disco = fg(t.Events.DiscoFg)
	s.Error = fg(t.Events.ErrorFg).Bold(true)
	s.Sender = fg(t.Events.SenderFg)

	s.StatusBar = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.StatusBar.Fg)).
		Background(lipgloss.Color(t.StatusBar.Bg))

	s.StatusConnected = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Background)).
		Background(lipgloss.Color(t.Colors.Success)).
		Bold(true).
		Padding(0, 1)

	s.StatusDisconnected = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Background)).
		Background(lipgloss.Color(t.Colors.Error)).
		Bold(true).
		Padding(0, 1)

	s.StatusPaused = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Colors.Background)).
		Background(lipgloss.Color(t.Colors.Muted)).
		Bold(true).
		Padding(0, 1)

	return s
}

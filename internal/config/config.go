package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/meszmate/stanzaroute/internal/xmpp/disco"
)

const appName = "stanzaroute"

// Config represents the main application configuration
type Config struct {
	General GeneralConfig `toml:"general"`
	Account AccountConfig `toml:"account"`
	Logging LoggingConfig `toml:"logging"`
	Disco   DiscoConfig   `toml:"disco"`
	Journal JournalConfig `toml:"journal"`
	UI      UIConfig      `toml:"ui"`
	Plugins PluginsConfig `toml:"plugins"`
	MUC     MUCConfig     `toml:"muc"`
	Metrics MetricsConfig `toml:"metrics"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	DataDir string `toml:"data_dir"`
}

// AccountConfig is the XMPP account the gateway signs in with
type AccountConfig struct {
	JID      string `toml:"jid"`
	Password string `toml:"password"`
	Server   string `toml:"server"`
	Port     int    `toml:"port"`
	Resource string `toml:"resource"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level   string `toml:"level"`
	File    string `toml:"file"`
	Console bool   `toml:"console"`
}

// DiscoConfig contains service discovery settings
type DiscoConfig struct {
	// Timeout bounds how long an inbound disco query waits for an answer
	Timeout Duration `toml:"timeout"`

	Identities []disco.Identity `toml:"identities"`
	Features   []string         `toml:"features"`
}

// JournalConfig contains event journal settings
type JournalConfig struct {
	Enabled bool `toml:"enabled"`

	// RetentionDays is the number of days to keep events (0 = forever)
	RetentionDays int `toml:"retention_days"`
}

// UIConfig contains monitor settings
type UIConfig struct {
	Monitor    bool   `toml:"monitor"`
	Theme      string `toml:"theme"`
	MaxRows    int    `toml:"max_rows"`
	TimeFormat string `toml:"time_format"`
}

// PluginsConfig contains plugin settings
type PluginsConfig struct {
	Enabled   []string `toml:"enabled"`
	PluginDir string   `toml:"plugin_dir"`
}

// MUCConfig lists the multi-user chat services the gateway fronts
type MUCConfig struct {
	Domains []string `toml:"domains"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// Duration is a time.Duration written as "5s" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Paths holds the XDG-compliant paths for the application
type Paths struct {
	ConfigDir string
	DataDir   string
	CacheDir  string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Account: AccountConfig{
			Port:     5222,
			Resource: appName,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "",
			Console: false,
		},
		Disco: DiscoConfig{
			Timeout: Duration{5 * time.Second},
			Identities: []disco.Identity{
				{Category: "gateway", Type: "xmpp", Name: appName},
			},
			Features: []string{},
		},
		Journal: JournalConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		UI: UIConfig{
			Monitor:    false,
			Theme:      "rainbow",
			MaxRows:    200,
			TimeFormat: "15:04:05",
		},
		Plugins: PluginsConfig{
			Enabled:   []string{},
			PluginDir: "",
		},
		MUC: MUCConfig{
			Domains: []string{},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
	}
}

// GetPaths returns XDG-compliant paths for the application
func GetPaths() (*Paths, error) {
	configDir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return nil, err
	}
	dataDir, err := xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	if err != nil {
		return nil, err
	}
	cacheDir, err := xdgDir("XDG_CACHE_HOME", ".cache")
	if err != nil {
		return nil, err
	}

	return &Paths{
		ConfigDir: filepath.Join(configDir, appName),
		DataDir:   filepath.Join(dataDir, appName),
		CacheDir:  filepath.Join(cacheDir, appName),
	}, nil
}

func xdgDir(env, fallback string) (string, error) {
	if dir := os.Getenv(env); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, fallback), nil
}

// EnsureDirectories creates the necessary directories
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.ConfigDir, p.DataDir, p.CacheDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ConfigPath returns the default config file location
func (p *Paths) ConfigPath() string {
	return filepath.Join(p.ConfigDir, "config.toml")
}

// Load loads the configuration from the default config file
func Load() (*Config, error) {
	paths, err := GetPaths()
	if err != nil {
		return nil, err
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	return LoadFrom(paths.ConfigPath(), paths.DataDir)
}

// LoadFrom loads the configuration at path; a missing file yields the
// defaults. dataDir is used when the file does not set one.
func LoadFrom(path, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if cfg.General.DataDir == "" {
		cfg.General.DataDir = dataDir
	} else {
		cfg.General.DataDir = expandPath(cfg.General.DataDir)
	}

	if cfg.Plugins.PluginDir == "" {
		cfg.Plugins.PluginDir = filepath.Join(cfg.General.DataDir, "plugins")
	} else {
		cfg.Plugins.PluginDir = expandPath(cfg.Plugins.PluginDir)
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.General.DataDir, appName+".log")
	} else {
		cfg.Logging.File = expandPath(cfg.Logging.File)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values the rest of the program relies on
func (c *Config) Validate() error {
	if c.Disco.Timeout.Duration <= 0 {
		return fmt.Errorf("disco timeout must be positive, got %s", c.Disco.Timeout)
	}
	if c.Journal.RetentionDays < 0 {
		return fmt.Errorf("journal retention must not be negative, got %d", c.Journal.RetentionDays)
	}
	if c.Account.Port < 0 || c.Account.Port > 65535 {
		return fmt.Errorf("invalid account port %d", c.Account.Port)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics enabled without a listen address")
	}
	return nil
}

// DiscoInfo builds the gateway's own disco#info from the configuration
func (c *Config) DiscoInfo() *disco.Info {
	features := append([]disco.Feature{}, disco.DefaultFeatures...)
	for _, f := range c.Disco.Features {
		features = append(features, disco.Feature(f))
	}
	info := disco.MergeInfo(disco.Info{Identities: c.Disco.Identities, Features: features})
	return &info
}

// Save saves the configuration to path
func Save(cfg *Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PanelConfig is the wiring of the e-paper panel. Pin and port names are
// resolved through periph.io registries (e.g. "GPIO17", "SPI0.0").
type PanelConfig struct {
	SPIPort string `yaml:"spi_port" json:"spi_port"`
	SPIHz   int64  `yaml:"spi_hz" json:"spi_hz"`
	Busy    string `yaml:"busy" json:"busy"`
	Reset   string `yaml:"reset" json:"reset"`
	DC      string `yaml:"dc" json:"dc"`
	CS      string `yaml:"cs" json:"cs"`

	// PollMillis is the interval between retries while the panel is busy.
	PollMillis int `yaml:"poll_ms" json:"poll_ms"`
}

// FontConfig selects the board font. An empty Path uses the built-in
// 7x13 bitmap font.
type FontConfig struct {
	Path string  `yaml:"path" json:"path"`
	Size float64 `yaml:"size" json:"size"`
}

// BoardConfig controls the screen composition.
type BoardConfig struct {
	Title string `yaml:"title" json:"title"`
	// Logo is an optional PNG/GIF/JPEG drawn in the footer.
	Logo string `yaml:"logo" json:"logo"`
	// RowHeight is the height of one agenda line in pixels; 0 derives it
	// from the font.
	RowHeight int `yaml:"row_height" json:"row_height"`
	// DateFormat is a Go time layout for the header date.
	DateFormat string `yaml:"date_format" json:"date_format"`
}

// BatteryConfig selects the battery reader.
type BatteryConfig struct {
	// Mode is "i2c", "mock" or "off".
	Mode string `yaml:"mode" json:"mode"`
	Bus  string `yaml:"bus" json:"bus"`
	Addr uint16 `yaml:"addr" json:"addr"`
}

// Config is the top-level application configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Listen is the HTTP listen address for the API. Empty disables it.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for the board (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is the number of future days to list.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	Panel   PanelConfig   `yaml:"panel" json:"panel"`
	Font    FontConfig    `yaml:"font" json:"font"`
	Board   BoardConfig   `yaml:"board" json:"board"`
	Battery BatteryConfig `yaml:"battery" json:"battery"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// Defaults.
const (
	DefaultListen      = "127.0.0.1:8080"
	DefaultTimezone    = "Asia/Seoul"
	DefaultRefreshCron = "*/15 * * * *"
	DefaultHorizonDays = 7
	DefaultSPIHz       = 2_000_000
	DefaultPollMillis  = 100
	DefaultFontSize    = 13
	DefaultDateFormat  = "Mon 2006-01-02"
	DefaultBatteryAddr = 0x57
)

// DefaultConfig returns an in-memory default configuration. The panel pins
// follow the common Raspberry Pi HAT wiring.
func DefaultConfig() *Config {
	cfg := &Config{
		LogLevel:    "info",
		Listen:      DefaultListen,
		Timezone:    DefaultTimezone,
		RefreshCron: DefaultRefreshCron,
		HorizonDays: DefaultHorizonDays,
		Panel: PanelConfig{
			SPIPort: "",
			SPIHz:   DefaultSPIHz,
			Busy:    "GPIO24",
			Reset:   "GPIO17",
			DC:      "GPIO25",
			CS:      "GPIO8",
		},
		Board: BoardConfig{
			Title: "Agenda",
		},
		Battery: BatteryConfig{
			Mode: "off",
		},
		ICS: []ICSConfig{},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.Panel.SPIHz <= 0 {
		c.Panel.SPIHz = DefaultSPIHz
	}
	if c.Panel.PollMillis <= 0 {
		c.Panel.PollMillis = DefaultPollMillis
	}
	if c.Font.Size <= 0 {
		c.Font.Size = DefaultFontSize
	}
	if c.Board.DateFormat == "" {
		c.Board.DateFormat = DefaultDateFormat
	}
	switch c.Battery.Mode {
	case "i2c", "mock", "off":
	default:
		// Unknown value; don't touch hardware unless asked to.
		c.Battery.Mode = "off"
	}
	if c.Battery.Addr == 0 {
		c.Battery.Addr = DefaultBatteryAddr
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			c.ICS[i].ID = fmt.Sprintf("ics%d", i+1)
		}
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PollInterval is the panel busy retry interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Panel.PollMillis) * time.Millisecond
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is decoded and defaults are filled in.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".epdgui-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

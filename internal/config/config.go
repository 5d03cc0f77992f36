package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Server is the WebUntis host, e.g. "mese.webuntis.com".
	Server string `yaml:"server" json:"server"`

	// School is the WebUntis school identifier passed on every RPC call.
	School string `yaml:"school" json:"school"`

	// Username / Password are the WebUntis login credentials.
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`

	// ClassID, when set, selects the timetable element directly and skips
	// auto-detection. Kept as a string because it may be absent.
	ClassID string `yaml:"class_id" json:"class_id"`

	// FutureClassID, when set, is used for the period after SwitchDate
	// (e.g. the class roster of the next semester).
	FutureClassID string `yaml:"future_class_id" json:"future_class_id"`

	// SwitchDate is the semester switch date in "YYYY-MM-DD" form. When
	// empty or malformed the syncer falls back to today + 28 days.
	SwitchDate string `yaml:"switch_date" json:"switch_date"`

	// Timezone is the IANA zone attached to events at render time
	// (e.g. "Europe/Brussels").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Output is the path the ICS file is written to.
	Output string `yaml:"output" json:"output"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// driving periodic sync when the binary is not run with -once.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LookbackDays is how far into the past the current period reaches.
	LookbackDays int `yaml:"lookback_days" json:"lookback_days"`

	// HorizonDays is how far into the future the future period reaches.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// ChunkDays is the size of one timetable fetch window.
	ChunkDays int `yaml:"chunk_days" json:"chunk_days"`

	// LogLevel selects the minimum log level (DEBUG/INFO/ERROR).
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:     "Europe/Brussels",
		Output:       "docs/calendar.ics",
		RefreshCron:  "*/15 * * * *",
		LookbackDays: 60,
		HorizonDays:  155,
		ChunkDays:    28,
		LogLevel:     "INFO",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "Europe/Brussels"
	}
	if c.Output == "" {
		c.Output = "docs/calendar.ics"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = 60
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 155
	}
	if c.ChunkDays <= 0 {
		c.ChunkDays = 28
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
}

// ApplyEnv overlays WEBUNTIS_* environment variables onto the config.
// Environment wins over file values so that CI/secret-based deployments
// need no config file at all.
func (c *Config) ApplyEnv() {
	overlay := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	overlay(&c.Server, "WEBUNTIS_SERVER")
	overlay(&c.School, "WEBUNTIS_SCHOOL")
	overlay(&c.Username, "WEBUNTIS_USERNAME")
	overlay(&c.Password, "WEBUNTIS_PASSWORD")
	overlay(&c.ClassID, "WEBUNTIS_CLASS_ID")
	overlay(&c.FutureClassID, "WEBUNTIS_FUTURE_CLASS_ID")
	overlay(&c.SwitchDate, "SEMESTER_SWITCH_DATE")
}

// Validate reports whether the config can drive a sync run. Missing
// credentials are fatal before any fetch is attempted.
func (c *Config) Validate() error {
	switch {
	case c.Server == "":
		return errors.New("config: server is required")
	case c.School == "":
		return errors.New("config: school is required")
	case c.Username == "":
		return errors.New("config: username is required")
	case c.Password == "":
		return errors.New("config: password is required")
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overlays are NOT applied here; callers decide when.
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
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600 (it holds credentials).
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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".untisync-config-*.tmp")
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

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Duration wraps time.Duration so config values can be written as strings
// like "30s" or "15m". The TOML decoder resolves strings through
// encoding.TextUnmarshaler, which time.Duration itself does not implement.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	DMV         DMVConfig        `toml:"dmv"`
	Automation  AutomationConfig `toml:"automation"`
	Monitor     MonitorConfig    `toml:"monitor"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// DMVConfig contains the external form contract and the fixed seller identity.
// The seller is the dealership entity filed on every release; it is
// configuration, not code, so it can change without touching automation logic.
type DMVConfig struct {
	FormURL             string       `toml:"form_url" validate:"required,url"` // Entry URL of the release-of-liability form
	StepTimeout         Duration     `toml:"step_timeout"`                     // Timeout applied to each browser action
	NavigationTimeout   Duration     `toml:"navigation_timeout"`               // Timeout for initial page load
	SettleTime          Duration     `toml:"settle_time"`                      // Wait after submit for the result page to settle
	ConfirmationPattern string       `toml:"confirmation_pattern"`             // Override for the confirmation token pattern (optional)
	Seller              SellerConfig `toml:"seller"`
}

// SellerConfig is the fixed company identity entered in the seller section
type SellerConfig struct {
	Name    string `toml:"name" validate:"required"`
	Address string `toml:"address"`
	City    string `toml:"city"`
	State   string `toml:"state"`
	Zip     string `toml:"zip"`
}

// AutomationConfig controls the headless browser sessions
type AutomationConfig struct {
	Headless       bool     `toml:"headless"`
	DisableGPU     bool     `toml:"disable_gpu"`
	NoSandbox      bool     `toml:"no_sandbox"`
	UserAgent      string   `toml:"user_agent"`
	Concurrency    int      `toml:"concurrency" validate:"min=1,max=4"` // Concurrent browser sessions per batch
	SubmitInterval Duration `toml:"submit_interval"`                    // Minimum spacing between vehicle submissions
}

// MonitorConfig controls the stale-processing sweeper
type MonitorConfig struct {
	Enabled    bool     `toml:"enabled"`
	Schedule   string   `toml:"schedule"`    // Cron schedule format
	StaleAfter Duration `toml:"stale_after"` // Age after which a processing row is considered stuck
}

// WebSocketConfig contains configuration for the /ws progress feed
type WebSocketConfig struct {
	MinLogLevel        string   `toml:"min_log_level"`       // Minimum service log level to broadcast
	ScreenshotInterval Duration `toml:"screenshot_interval"` // Throttle for screenshot frames (0 = no throttle)
}

// DefaultConfig returns the configuration defaults applied before any file,
// environment or CLI override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/libero",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		DMV: DMVConfig{
			FormURL:           "https://www.dmv.ca.gov/wasapp/nrl/nrlApplication.do",
			StepTimeout:       Duration(30 * time.Second),
			NavigationTimeout: Duration(60 * time.Second),
			SettleTime:        Duration(3 * time.Second),
		},
		Automation: AutomationConfig{
			Headless:       true,
			DisableGPU:     true,
			NoSandbox:      true,
			UserAgent:      "Libero-Release/1.0",
			Concurrency:    2,
			SubmitInterval: Duration(2 * time.Second),
		},
		Monitor: MonitorConfig{
			Enabled:    true,
			Schedule:   "*/5 * * * *",
			StaleAfter: Duration(15 * time.Minute),
		},
		WebSocket: WebSocketConfig{
			MinLogLevel:        "info",
			ScreenshotInterval: Duration(time.Second),
		},
	}
}

// LoadFromFiles loads configuration in priority order:
// defaults -> file(s) in order given -> environment variables.
// Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies LIBERO_* environment variables over file values
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("LIBERO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("LIBERO_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("LIBERO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("LIBERO_DB_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("LIBERO_DMV_FORM_URL"); v != "" {
		config.DMV.FormURL = v
	}
	if v := os.Getenv("LIBERO_HEADLESS"); v != "" {
		if headless, err := strconv.ParseBool(v); err == nil {
			config.Automation.Headless = headless
		}
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration against struct-level validation rules
func Validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

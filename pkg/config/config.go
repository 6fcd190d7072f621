package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces environment overrides (FORMBIND_MODE, ...).
	EnvPrefix = "FORMBIND"
	// FileName is the config file base name searched for by Load.
	FileName = "formbind"
)

// Mode selects between full interactive binding and a static mode that only
// ever returns initial values.
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeStatic      Mode = "static"
)

// ParseMode normalises a mode string. The empty string means interactive;
// "production" and "readonly" are accepted as aliases for static.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ModeInteractive), "interactive-mode":
		return ModeInteractive, nil
	case string(ModeStatic), "production", "readonly", "read-only":
		return ModeStatic, nil
	default:
		return "", fmt.Errorf("config: unknown mode %q", raw)
	}
}

// Static reports whether binding is disabled.
func (m Mode) Static() bool { return m == ModeStatic }

// Config is the resolved module configuration.
type Config struct {
	Mode      Mode            `mapstructure:"mode"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// ReconcileConfig tunes the reconciler.
type ReconcileConfig struct {
	Dedupe         bool   `mapstructure:"dedupe"`
	Sanitize       bool   `mapstructure:"sanitize"`
	SanitizePolicy string `mapstructure:"sanitize_policy"`
	// Metrics records reconciliations on the default Prometheus registry.
	Metrics bool `mapstructure:"metrics"`
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	file        string
	searchPaths []string
	overrides   map[string]any
}

// WithFile reads configuration from an explicit file path.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = strings.TrimSpace(path)
	}
}

// WithSearchPaths replaces the directories searched for formbind.yaml.
func WithSearchPaths(paths ...string) LoadOption {
	return func(o *loadOptions) {
		o.searchPaths = append([]string(nil), paths...)
	}
}

// WithOverride sets a key after file and environment resolution, for CLI
// flags. Keys use the dotted form ("reconcile.dedupe").
func WithOverride(key string, value any) LoadOption {
	return func(o *loadOptions) {
		if o.overrides == nil {
			o.overrides = make(map[string]any)
		}
		o.overrides[key] = value
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode:      ModeInteractive,
		LogLevel:  "info",
		LogFormat: "console",
		Reconcile: ReconcileConfig{SanitizePolicy: "strict"},
	}
}

// Load resolves configuration from defaults, an optional formbind.yaml and
// FORMBIND_* environment variables, in increasing priority.
func Load(options ...LoadOption) (*Config, error) {
	opts := loadOptions{searchPaths: []string{"."}}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&opts)
	}

	v := newViper()
	if opts.file != "" {
		v.SetConfigFile(opts.file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, path := range opts.searchPaths {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || opts.file != "" {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}
	for key, value := range opts.overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults := Default()
	v.SetDefault("mode", string(defaults.Mode))
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("reconcile.dedupe", defaults.Reconcile.Dedupe)
	v.SetDefault("reconcile.sanitize", defaults.Reconcile.Sanitize)
	v.SetDefault("reconcile.sanitize_policy", defaults.Reconcile.SanitizePolicy)
	v.SetDefault("reconcile.metrics", defaults.Reconcile.Metrics)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func validate(cfg *Config) error {
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: log_format must be console or json, got %q", cfg.LogFormat)
	}
	switch cfg.Reconcile.SanitizePolicy {
	case "strict", "ugc":
	default:
		return fmt.Errorf("config: reconcile.sanitize_policy must be strict or ugc, got %q", cfg.Reconcile.SanitizePolicy)
	}
	return nil
}

var (
	processModeOnce sync.Once
	processMode     Mode
	processModeErr  error
)

// ProcessMode returns the process-wide deployment mode. It reads
// FORMBIND_MODE once. An unknown value fails closed to static; the parse
// error is available from ProcessModeError.
func ProcessMode() Mode {
	processModeOnce.Do(func() {
		processMode, processModeErr = resolveMode(newViper().GetString("mode"))
	})
	return processMode
}

// ProcessModeError reports why FORMBIND_MODE was rejected, or nil.
func ProcessModeError() error {
	ProcessMode()
	return processModeErr
}

func resolveMode(raw string) (Mode, error) {
	mode, err := ParseMode(raw)
	if err != nil {
		return ModeStatic, fmt.Errorf("%w, falling back to %s", err, ModeStatic)
	}
	return mode, nil
}

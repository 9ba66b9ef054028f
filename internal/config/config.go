package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	AppName = "exilence"

	DefaultAPIBase    = "https://www.pathofexile.com"
	DefaultReleaseURL = "https://api.github.com/repos/viktorgullmark/exilence/releases/latest"
	DefaultLeague     = "Standard"
)

// Config holds the account context and endpoints the app talks to.
type Config struct {
	Account       string `mapstructure:"account"`
	League        string `mapstructure:"league"`
	SessionID     string `mapstructure:"session_id"`
	APIBase       string `mapstructure:"api_base"`
	ReleaseURL    string `mapstructure:"release_url"`
	SettingsPath  string `mapstructure:"settings_path"`
	LogLevel      string `mapstructure:"log_level"`
	FuzzyFallback bool   `mapstructure:"fuzzy_fallback"`

	// Path is the file the config was read from (or will be written to).
	Path string `mapstructure:"-"`
}

// Dir returns $XDG_CONFIG_HOME/exilence, falling back to ~/.config/exilence.
func Dir() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultPath returns the config file location. EXILENCE_CONFIG overrides it.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv("EXILENCE_CONFIG")); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.toml")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("account", "")
	v.SetDefault("league", DefaultLeague)
	v.SetDefault("session_id", "")
	v.SetDefault("api_base", DefaultAPIBase)
	v.SetDefault("release_url", DefaultReleaseURL)
	v.SetDefault("settings_path", filepath.Join(Dir(), "settings.toml"))
	v.SetDefault("log_level", "warn")
	v.SetDefault("fuzzy_fallback", false)

	v.SetConfigType("toml")
	v.SetEnvPrefix("EXILENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if it exists) and applies EXILENCE_* environment
// overrides on top of the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	v := newViper()
	return load(v, path)
}

// LoadInto is Load on a caller-provided viper instance, so CLI flags bound
// to v take precedence over file and env values.
func LoadInto(v *viper.Viper, path string) (Config, error) {
	base := newViper()
	for k, val := range base.AllSettings() {
		if !v.IsSet(k) {
			v.SetDefault(k, val)
		}
	}
	v.SetConfigType("toml")
	v.SetEnvPrefix("EXILENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return load(v, path)
}

func load(v *viper.Viper, path string) (Config, error) {
	var readErr error
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
				readErr = fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Path = path
	return c, readErr
}

// Save writes cfg to path, creating the directory when needed.
func Save(path string, cfg Config) error {
	if strings.TrimSpace(cfg.Account) == "" {
		return errors.New("config: account name is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("account", cfg.Account)
	v.Set("league", cfg.League)
	v.Set("session_id", cfg.SessionID)
	v.Set("api_base", cfg.APIBase)
	v.Set("release_url", cfg.ReleaseURL)
	v.Set("settings_path", cfg.SettingsPath)
	v.Set("log_level", cfg.LogLevel)
	v.Set("fuzzy_fallback", cfg.FuzzyFallback)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports what is missing before the stash API can be queried.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Account) == "" {
		missing = append(missing, "account")
	}
	if strings.TrimSpace(c.League) == "" {
		missing = append(missing, "league")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

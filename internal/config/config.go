// Package config loads application configuration from file,
// environment and defaults via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/israel-dryer/greed/internal/greed"
)

// Config holds all configuration for the application.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Storage StorageConfig `mapstructure:"storage"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Presets []int         `mapstructure:"presets"`
	Sync    SyncConfig    `mapstructure:"sync"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects and locates the record store backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// RulesConfig holds the rule set new games default to.
type RulesConfig struct {
	TargetScore        int    `mapstructure:"target_score"`
	MustHitExactly     bool   `mapstructure:"must_hit_exactly"`
	OvershootPenalty   string `mapstructure:"overshoot_penalty"`
	OnBoardThreshold   int    `mapstructure:"on_board_threshold"`
	AllowCarryOverBank bool   `mapstructure:"allow_carry_over_bank"`
	MinBank            int    `mapstructure:"min_bank"`
}

// SyncConfig holds cloud sync settings. UID overrides the generated
// device id when set.
type SyncConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ProjectID      string `mapstructure:"project_id"`
	UID            string `mapstructure:"uid"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
)

// setViperDefaults sets all default values using Viper's SetDefault.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "greed.db")

	defaults := greed.DefaultRules()
	v.SetDefault("rules.target_score", defaults.TargetScore)
	v.SetDefault("rules.must_hit_exactly", defaults.MustHitExactly)
	v.SetDefault("rules.overshoot_penalty", string(defaults.OvershootPenalty))
	v.SetDefault("rules.on_board_threshold", defaults.OnBoardThreshold)
	v.SetDefault("rules.allow_carry_over_bank", defaults.AllowCarryOverBank)
	v.SetDefault("rules.min_bank", defaults.MinBank)

	v.SetDefault("presets", greed.DefaultScorePresets)

	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.project_id", "")
	v.SetDefault("sync.uid", "")
	v.SetDefault("sync.timeout_seconds", 10)
}

// Init initializes the configuration.
func Init(configPath string) error {
	v = viper.New()

	setViperDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/greed")
	}

	v.SetEnvPrefix("GREED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if configPath != "" {
			// Specific file requested but not found - that's ok, use defaults
		} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.DefaultRules().Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// Get returns the global config instance.
func Get() *Config {
	if cfg == nil {
		if err := Init(""); err != nil {
			panic("failed to initialize config with defaults: " + err.Error())
		}
	}
	return cfg
}

// DefaultRules maps the configured rule defaults into a GameRules.
func (c *Config) DefaultRules() greed.GameRules {
	return greed.GameRules{
		TargetScore:        c.Rules.TargetScore,
		MustHitExactly:     c.Rules.MustHitExactly,
		OvershootPenalty:   greed.OvershootPolicy(c.Rules.OvershootPenalty),
		OnBoardThreshold:   c.Rules.OnBoardThreshold,
		AllowCarryOverBank: c.Rules.AllowCarryOverBank,
		MinBank:            c.Rules.MinBank,
	}
}

// ConfigFilePath returns the path of the loaded config file.
func ConfigFilePath() string {
	return v.ConfigFileUsed()
}

// WatchConfig enables hot-reloading of the config file.
func WatchConfig(onChange func()) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		// Re-unmarshal on change
		v.Unmarshal(cfg)
		if onChange != nil {
			onChange()
		}
	})
}

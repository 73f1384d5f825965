// Package config provides Viper-based configuration loading for the
// Schnitzel scorekeeper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig selects and parameterizes the blob store backend.
type StorageConfig struct {
	// Backend is the store implementation: "file" or "postgres".
	Backend string `mapstructure:"backend"`
	// DataDir is the directory holding the JSON blobs for the file backend.
	DataDir string `mapstructure:"data_dir"`
}

// DatabaseConfig holds PostgreSQL connection settings for the postgres
// store backend.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RulesConfig holds turn and blitz rule timing.
type RulesConfig struct {
	// MaxRolls is the per-turn roll limit in a standard play-mode game.
	MaxRolls int `mapstructure:"max_rolls"`
	// BlitzMaxRolls is the per-turn roll limit in blitz mode.
	BlitzMaxRolls int `mapstructure:"blitz_max_rolls"`
	// BlitzTurnSeconds is the blitz countdown length per turn.
	BlitzTurnSeconds float64 `mapstructure:"blitz_turn_seconds"`
	// BlitzBonusWindowSeconds is the leading slice of the countdown in
	// which a committed score earns the speed bonus.
	BlitzBonusWindowSeconds float64 `mapstructure:"blitz_bonus_window_seconds"`
}

// DiceConfig holds roll animation timing.
type DiceConfig struct {
	// AnimationTicks is the number of re-randomization ticks per roll.
	AnimationTicks int `mapstructure:"animation_ticks"`
	// TickInterval is the delay between animation ticks.
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// RevealConfig holds end-of-game reveal timing.
type RevealConfig struct {
	// StepInterval is the delay between revealing consecutive players.
	StepInterval time.Duration `mapstructure:"step_interval"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Dice     DiceConfig     `mapstructure:"dice"`
	Reveal   RevealConfig   `mapstructure:"reveal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateRules(c.Rules); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDice(c.Dice); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Reveal.StepInterval <= 0 {
		errs = append(errs, "reveal.step_interval must be > 0")
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	var errs []string
	validBackends := map[string]bool{"file": true, "postgres": true}
	if !validBackends[s.Backend] {
		errs = append(errs, fmt.Sprintf("storage.backend must be one of [file, postgres], got %q", s.Backend))
	}
	if s.Backend == "file" && s.DataDir == "" {
		errs = append(errs, "storage.data_dir must not be empty for the file backend")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRules(r RulesConfig) error {
	var errs []string
	if r.MaxRolls < 1 {
		errs = append(errs, fmt.Sprintf("rules.max_rolls must be >= 1, got %d", r.MaxRolls))
	}
	if r.BlitzMaxRolls < 1 {
		errs = append(errs, fmt.Sprintf("rules.blitz_max_rolls must be >= 1, got %d", r.BlitzMaxRolls))
	}
	if r.BlitzMaxRolls > r.MaxRolls {
		errs = append(errs, "rules.blitz_max_rolls must not exceed rules.max_rolls")
	}
	if r.BlitzTurnSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("rules.blitz_turn_seconds must be > 0, got %g", r.BlitzTurnSeconds))
	}
	if r.BlitzBonusWindowSeconds < 0 || r.BlitzBonusWindowSeconds > r.BlitzTurnSeconds {
		errs = append(errs, fmt.Sprintf("rules.blitz_bonus_window_seconds must be in [0, blitz_turn_seconds], got %g", r.BlitzBonusWindowSeconds))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDice(d DiceConfig) error {
	var errs []string
	if d.AnimationTicks < 1 {
		errs = append(errs, fmt.Sprintf("dice.animation_ticks must be >= 1, got %d", d.AnimationTicks))
	}
	if d.TickInterval <= 0 {
		errs = append(errs, "dice.tick_interval must be > 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with SCHNITZEL_ prefix
	v.SetEnvPrefix("SCHNITZEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration used when no config file is
// supplied on the command line.
//
// Postcondition: Default().Validate() == nil.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic("config: unmarshalling defaults: " + err.Error())
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.data_dir", "data")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "schnitzel")
	v.SetDefault("database.password", "schnitzel")
	v.SetDefault("database.name", "schnitzel")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("rules.max_rolls", 3)
	v.SetDefault("rules.blitz_max_rolls", 2)
	v.SetDefault("rules.blitz_turn_seconds", 15.0)
	v.SetDefault("rules.blitz_bonus_window_seconds", 5.0)

	v.SetDefault("dice.animation_ticks", 8)
	v.SetDefault("dice.tick_interval", "50ms")

	v.SetDefault("reveal.step_interval", "800ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

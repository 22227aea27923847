// Package config bootstraps the .reqtree folder and loads settings through viper.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/blackcoderx/reqtree/pkg/storage"
	"github.com/blackcoderx/reqtree/pkg/tree"
)

const (
	FolderName    = ".reqtree"
	ConfigFile    = "config.json"
	WorkspaceFile = "workspace.yaml"
	EnvPrefix     = "REQTREE"
)

// Config represents the user's reqtree configuration
type Config struct {
	Workspace      string  `mapstructure:"workspace" json:"workspace"`
	Environment    string  `mapstructure:"environment" json:"environment"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	LogLevel       string  `mapstructure:"log_level" json:"log_level"`
	RateLimit      float64 `mapstructure:"rate_limit" json:"rate_limit"` // requests per second for folder runs, 0 is unlimited
	IncludeSecrets bool    `mapstructure:"include_secrets" json:"include_secrets"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Workspace:      filepath.Join(FolderName, WorkspaceFile),
		Environment:    "dev",
		TimeoutSeconds: 30,
		LogLevel:       "warn",
		RateLimit:      0,
	}
}

// SetDefaults registers every key with v so environment overrides apply
// even when config.json omits them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("workspace", d.Workspace)
	v.SetDefault("environment", d.Environment)
	v.SetDefault("timeout_seconds", d.TimeoutSeconds)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("include_secrets", d.IncludeSecrets)
}

// NewViper returns a viper instance reading dir/.reqtree/config.json, or
// cfgFile when set, with REQTREE_* environment overrides.
func NewViper(dir, cfgFile string) *viper.Viper {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(filepath.Join(dir, FolderName))
		v.SetConfigType("json")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the config file if there is one and unmarshals the result.
// A missing file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment. A missing file
// is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Timeout is the per-request transport timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Limiter returns the folder-run throttle, or nil when runs are unthrottled.
func (c Config) Limiter() *rate.Limiter {
	if c.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.RateLimit), 1)
}

// Level parses LogLevel, defaulting to warn.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelWarn
	}
	return l
}

// Initialize creates the .reqtree folder under dir with default files if it
// doesn't exist. It reports whether anything was created.
func Initialize(dir string) (bool, error) {
	root := filepath.Join(dir, FolderName)
	created := false

	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return false, fmt.Errorf("failed to create %s folder: %w", FolderName, err)
		}
		if err := createDefaultConfig(root); err != nil {
			return false, err
		}
		if err := createDefaultEnvironment(root); err != nil {
			return false, err
		}
		created = true
	}

	// Ensure files exist for folders created by older versions
	if err := ensureDir(storage.GetEnvironmentsDir(root)); err != nil {
		return created, err
	}
	wsPath := filepath.Join(root, WorkspaceFile)
	if !storage.WorkspaceExists(wsPath) {
		if err := storage.SaveWorkspace(storage.Snapshot{Root: tree.NewRoot("API")}, wsPath); err != nil {
			return created, fmt.Errorf("failed to write workspace: %w", err)
		}
		created = true
	}
	return created, nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

func createDefaultEnvironment(root string) error {
	envContent := `# Development environment
# Add your variables here, e.g.:
# HOST: localhost:3000
# API_TOKEN: "{{env:API_TOKEN}}"
`
	dir := storage.GetEnvironmentsDir(root)
	if err := ensureDir(dir); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "dev.yaml"), []byte(envContent), 0644); err != nil {
		return fmt.Errorf("failed to write dev environment: %w", err)
	}
	return nil
}

func createDefaultConfig(root string) error {
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

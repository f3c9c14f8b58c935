package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/republik/appshell/internal/credentials"
)

const (
	appName    = "republik"
	configFile = "config.json"

	DefaultBaseURL = "https://www.republik.ch"
)

type Config struct {
	BaseURL      string `json:"base_url"`
	DataDir      string `json:"data_dir"`
	LogLevel     string `json:"log_level"`
	LogFormat    string `json:"log_format"`
	Debug        bool   `json:"debug"`
	DebugAddr    string `json:"debug_addr"`
	WindowWidth  int    `json:"window_width"`
	WindowHeight int    `json:"window_height"`

	CurtainBackdoor string `json:"-"`
}

func defaults(appDir string) Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		DataDir:      filepath.Join(appDir, "state"),
		LogLevel:     "info",
		LogFormat:    "text",
		WindowWidth:  1200,
		WindowHeight: 800,
	}
}

func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	cfg, err := load(filepath.Join(configDir, appName))
	if err != nil {
		return nil, err
	}

	cfg.CurtainBackdoor, err = credentials.LoadAppSecret(credentials.KeyCurtainBackdoor)
	if err != nil && !errors.Is(err, credentials.ErrNotFound) {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// load reads the config file in appDir, writing one with defaults on first
// run. Fields missing from the file keep their defaults.
func load(appDir string) (*Config, error) {
	path := filepath.Join(appDir, configFile)
	cfg := defaults(appDir)

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := os.MkdirAll(appDir, 0700); err != nil {
		return nil, err
	}
	out, _ := json.MarshalIndent(cfg, "", "  ")
	_ = os.WriteFile(path, out, 0600)
	slog.Info("generated new config", "path", path)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FRONTEND_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("APPSHELL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("APPSHELL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("APPSHELL_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("APPSHELL_DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("APPSHELL_DEBUG_ADDR"); v != "" {
		cfg.DebugAddr = v
	}
	if v := os.Getenv("CURTAIN_BACKDOOR_PATH"); v != "" {
		cfg.CurtainBackdoor = v
	}
}

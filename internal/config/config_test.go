package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "republik")

	cfg, err := load(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.Equal(t, filepath.Join(dir, "state"), cfg.DataDir)
	require.FileExists(t, filepath.Join(dir, configFile))

	again, err := load(dir)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte(`{"base_url":"https://staging.republik.love"}`), 0600))

	cfg, err := load(dir)
	require.NoError(t, err)
	require.Equal(t, "https://staging.republik.love", cfg.BaseURL)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 1200, cfg.WindowWidth)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte(`{`), 0600))

	_, err := load(dir)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FRONTEND_BASE_URL", "http://localhost:3010")
	t.Setenv("APPSHELL_DEBUG", "true")
	t.Setenv("APPSHELL_DEBUG_ADDR", "127.0.0.1:7777")
	t.Setenv("CURTAIN_BACKDOOR_PATH", "/~curtain")

	cfg := defaults(t.TempDir())
	applyEnvOverrides(&cfg)
	require.Equal(t, "http://localhost:3010", cfg.BaseURL)
	require.True(t, cfg.Debug)
	require.Equal(t, "127.0.0.1:7777", cfg.DebugAddr)
	require.Equal(t, "/~curtain", cfg.CurtainBackdoor)
}

func TestLoadReadsCurtainBackdoorFromKeyring(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CURTAIN_BACKDOOR_PATH", "")
	keyring.MockInit()
	require.NoError(t, keyring.Set("republik", "app:curtain_backdoor", "/~open"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/~open", cfg.CurtainBackdoor)
}

func TestLoadFailsWhenKeyringIsUnavailable(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	locked := errors.New("keyring locked")
	keyring.MockInitWithError(locked)
	t.Cleanup(keyring.MockInit)

	_, err := Load()
	require.ErrorIs(t, err, locked)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 実際のユーザー設定ディレクトリを読まないようにする
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(NewFlagSet("test"), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFlags(t *testing.T) {
	isolate(t)

	cfg, err := Load(NewFlagSet("test"), []string{
		"--keyboard", "usb-Cherry_G80-event-kbd",
		"-p", "full",
		"--passthrough",
		"--fetch-retries", "0",
		"--node-timeout", "750ms",
		"--emit-policy", "fatal",
	})
	require.NoError(t, err)
	assert.Equal(t, "usb-Cherry_G80-event-kbd", cfg.Keyboard)
	assert.Equal(t, "full", cfg.Profile)
	assert.True(t, cfg.Passthrough)
	assert.Equal(t, 0, cfg.FetchRetries)
	assert.Equal(t, 750*time.Millisecond, cfg.NodeTimeout)
	assert.Equal(t, "fatal", cfg.EmitPolicy)
	assert.Equal(t, "/dev/uinput", cfg.Uinput)
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("KBDPAD_PROFILE", "minimal")
	t.Setenv("KBDPAD_LOG_LEVEL", "debug")
	t.Setenv("KBDPAD_FETCH_RETRIES", "7")

	cfg, err := Load(NewFlagSet("test"), []string{"--fetch-retries", "2"})
	require.NoError(t, err)
	assert.Equal(t, "minimal", cfg.Profile)
	assert.Equal(t, "debug", cfg.LogLevel)
	// 引数は環境変数より優先される
	assert.Equal(t, 2, cfg.FetchRetries)
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "config.toml", `
profile = "full"
listen = "127.0.0.1:9360"
node-timeout = "2s"
`)

	cfg, err := Load(NewFlagSet("test"), []string{"--config", path, "--listen", ":9999"})
	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Profile)
	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, 2*time.Second, cfg.NodeTimeout)
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	isolate(t)
	_, err := Load(NewFlagSet("test"), []string{"--config", "/nonexistent/kbdpad.toml"})
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)
	tests := [][]string{
		{"--fetch-retries", "-1"},
		{"--node-timeout", "0s"},
		{"--uinput", ""},
		{"--no-such-flag"},
	}
	for _, args := range tests {
		_, err := Load(NewFlagSet("test"), args)
		assert.Error(t, err, "%v", args)
	}
}

func TestGetDefaultConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetDefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, dir+"/kbdpad", got)
}

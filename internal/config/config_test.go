package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDefaults(t *testing.T) {
	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", conf.AppConfig.LogLevel)
	assert.Equal(t, "Huly CEF Server", conf.ServerConfig.Name)
	assert.Equal(t, 30*time.Second, conf.ServerConfig.RequestTimeout)
	assert.Equal(t, "http://localhost:3000", conf.ProvisionConfig.BaseURL)
	assert.Equal(t, BackendCEF, conf.BrowserConfig.Backend)
	assert.Equal(t, "https://www.google.com", conf.BrowserConfig.DefaultURL)
	assert.Equal(t, 3*time.Second, conf.BrowserConfig.PageSettle)
	assert.Equal(t, 100*time.Millisecond, conf.InputConfig.KeySettle)
	assert.Equal(t, 50*time.Millisecond, conf.InputConfig.TypeInterval)
}

func TestGetConfigOverrides(t *testing.T) {
	t.Setenv("BROWSER_BACKEND", BackendPlaywright)
	t.Setenv("TYPE_INTERVAL", "75ms")
	t.Setenv("PROVISIONER_URL", "http://provisioner:8080")

	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendPlaywright, conf.BrowserConfig.Backend)
	assert.Equal(t, 75*time.Millisecond, conf.InputConfig.TypeInterval)
	assert.Equal(t, "http://provisioner:8080", conf.ProvisionConfig.BaseURL)
}

func TestGetConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("BROWSER_BACKEND", "firefox")

	_, err := GetConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firefox")
}

func TestGetConfigRejectsNegativeDelay(t *testing.T) {
	t.Setenv("KEY_SETTLE", "-1s")

	_, err := GetConfig()
	require.Error(t, err)
}

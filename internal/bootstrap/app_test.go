package bootstrap

import (
	"testing"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"
)

func TestAppGraph(t *testing.T) {
	require.NoError(t, fx.ValidateApp(appOptions()))
}

func TestNewLogger(t *testing.T) {
	conf := &config.Config{
		AppConfig:    &config.AppConfig{LogLevel: "warn"},
		ServerConfig: &config.ServerConfig{Name: "Huly CEF Server"},
	}

	logger, err := newLogger(conf)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	conf.AppConfig.LogLevel = "loud"
	_, err = newLogger(conf)
	assert.Error(t, err)
}

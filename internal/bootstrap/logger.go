package bootstrap

import (
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"

	"go.uber.org/zap"
)

// newLogger builds a logger writing to stderr; stdout belongs to the protocol.
func newLogger(config *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if config.AppConfig.Debug {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.DisableStacktrace = true
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	level, err := zap.ParseAtomicLevel(config.AppConfig.LogLevel)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = level

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", config.ServerConfig.Name)), nil
}

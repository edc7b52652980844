package browser

import (
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
)

// NewConnector returns the connector for the configured backend.
func NewConnector(params Params) ports.Connector {
	if params.Config.BrowserConfig.Backend == config.BackendPlaywright {
		return NewPlaywrightConnector(params)
	}

	return NewCEFConnector(params)
}

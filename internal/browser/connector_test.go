package browser

import (
	"testing"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestNewConnectorFollowsBackend(t *testing.T) {
	params := func(backend string) Params {
		return Params{
			Config: &config.Config{BrowserConfig: &config.BrowserConfig{
				Backend:     backend,
				DialTimeout: time.Second,
			}},
			Logger: zaptest.NewLogger(t),
		}
	}

	assert.IsType(t, &CEFConnector{}, NewConnector(params(config.BackendCEF)))
	assert.IsType(t, &PlaywrightConnector{}, NewConnector(params(config.BackendPlaywright)))
}

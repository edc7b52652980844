package tools

import (
	"errors"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/usecase"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/usecase/adapters"

	"go.uber.org/fx"
	"k8s.io/utils/clock"
)

// DispatchContext is the state every handler works against. It replaces
// process-wide session and tab variables; one instance is owned by the
// Registry and handed to each handler call.
type DispatchContext struct {
	Session adapters.SessionService
	Tabs    adapters.TabService
	Input   adapters.InputService

	Clock      clock.Clock
	PageSettle time.Duration
	DefaultURL string
}

type ContextParams struct {
	fx.In

	Service *usecase.Service
	Config  *config.Config
	Clock   clock.Clock
}

func NewDispatchContext(params ContextParams) *DispatchContext {
	return &DispatchContext{
		Session:    params.Service.Session,
		Tabs:       params.Service.Tabs,
		Input:      params.Service.Input,
		Clock:      params.Clock,
		PageSettle: params.Config.BrowserConfig.PageSettle,
		DefaultURL: params.Config.BrowserConfig.DefaultURL,
	}
}

// target resolves the connection a per-tab tool acts on. When the tab or the
// session is missing it returns the message to hand back instead. The tab is
// checked first, so an id that was never handed out always reports as not found.
func (dc *DispatchContext) target(tabID int) (ports.BrowserConnection, Output) {
	if _, err := dc.Tabs.Get(tabID); err != nil {
		notFound := &usecase.TabNotFoundError{ID: tabID}
		errors.As(err, &notFound)

		return nil, Message(notFound.Error())
	}

	conn, err := dc.Session.Connection()
	if err != nil {
		return nil, Message(usecase.MsgSessionNotStarted)
	}

	return conn, nil
}

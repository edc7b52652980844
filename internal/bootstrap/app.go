package bootstrap

import (
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/browser"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/provision"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/tools"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/transport"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/usecase"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

func NewApp() *fx.App {
	return fx.New(
		appOptions(),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
}

func appOptions() fx.Option {
	return fx.Options(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,
			newClock,
			newMetricsRegistry,
			tools.NewMetrics,

			browser.NewConnector,
			fx.Annotate(provision.NewClient, fx.As(new(ports.ProfileResolver))),

			usecase.NewUsecase,

			tools.NewDispatchContext,
			newToolRegistry,

			transport.NewServer,
		),

		fx.Invoke(
			runMetrics,
			runServer,
		),

		fx.StartTimeout(10*time.Second),
	)
}

func newClock() clock.Clock {
	return clock.RealClock{}
}

func newToolRegistry(logger *zap.Logger, dc *tools.DispatchContext, metrics *tools.Metrics) (*tools.Registry, error) {
	registry := tools.NewRegistry(logger, dc, tools.WithMetrics(metrics))
	if err := tools.RegisterBrowserTools(registry); err != nil {
		return nil, err
	}

	return registry, nil
}

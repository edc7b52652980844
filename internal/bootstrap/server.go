package bootstrap

import (
	"context"
	"errors"
	"os"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/transport"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/usecase"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runServer serves tools on stdin/stdout for the lifetime of the app. The app
// shuts down when the client closes stdin.
func runServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *transport.Server, service *usecase.Service, _ *trace.TracerProvider, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("Starting Huly CEF MCP server...")

			go func() {
				err := srv.Serve(ctx, os.Stdin, os.Stdout)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Stdio server error", zap.Error(err))
				}

				if ctx.Err() == nil {
					logger.Info("Client closed the pipe")

					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to request shutdown", zap.Error(err))
					}
				}
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info("Shutting down Huly CEF MCP server...")

			cancel()

			if err := service.Session.Close(stopCtx); err != nil {
				logger.Error("Failed to close browser session", zap.Error(err))
			}

			return nil
		},
	})
}

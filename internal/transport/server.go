package transport

import (
	"context"
	"encoding/base64"
	"io"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/tools"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/logg"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const serverName = "MCPServer"

// Server mounts every registered tool on an MCP server and serves it over a
// byte stream pair, normally stdin and stdout.
type Server struct {
	logger   *zap.Logger
	registry *tools.Registry
	mcp      *server.MCPServer
	timeout  time.Duration
}

type Params struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Registry *tools.Registry
}

func NewServer(params Params) *Server {
	s := &Server{
		logger:   params.Logger.With(zap.String(logg.Layer, serverName)),
		registry: params.Registry,
		timeout:  params.Config.ServerConfig.RequestTimeout,
		mcp: server.NewMCPServer(
			params.Config.ServerConfig.Name,
			params.Config.ServerConfig.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	for _, d := range params.Registry.Tools() {
		s.mcp.AddTool(d.Tool(), s.handler(d.Name()))
	}

	return s
}

// MCP exposes the underlying server, mainly for in-process clients.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve blocks until in is exhausted or ctx is cancelled. Diagnostics go to the
// logger; out carries protocol frames only.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("Serving tools over stdio", zap.Int("tools", len(s.registry.Tools())))

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	return stdio.Listen(ctx, in, out)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		blocks, err := s.registry.Dispatch(ctx, name, req.GetArguments())
		if err != nil {
			return nil, err
		}

		return toResult(blocks), nil
	}
}

func toResult(blocks []entity.ContentBlock) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(blocks))

	for _, b := range blocks {
		switch b.Kind {
		case entity.ContentKindImage:
			content = append(content, mcp.NewImageContent(base64.StdEncoding.EncodeToString(b.Data), b.MediaType))
		default:
			content = append(content, mcp.NewTextContent(b.Text))
		}
	}

	return &mcp.CallToolResult{Content: content}
}

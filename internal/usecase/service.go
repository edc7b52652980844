package usecase

import (
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Service is the state every tool handler works against: the session, its
// tabs and the input pacing.
type Service struct {
	Session adapters.SessionService
	Tabs    adapters.TabService
	Input   adapters.InputService
}

type Params struct {
	fx.In

	Logger    *zap.Logger
	Config    *config.Config
	Resolver  ports.ProfileResolver
	Connector ports.Connector
	Clock     clock.Clock
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Session: factory.CreateSessionService(),
		Tabs:    factory.CreateTabService(),
		Input:   factory.CreateInputService(),
	}
}

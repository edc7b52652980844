package usecase

import (
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateSessionService() adapters.SessionService {
	return NewSessionManager(f.deps.Logger, f.deps.Resolver, f.deps.Connector, f.deps.Clock)
}

func (f *serviceFactory) CreateTabService() adapters.TabService {
	return NewTabRegistry(f.deps.Logger, f.deps.Clock)
}

func (f *serviceFactory) CreateInputService() adapters.InputService {
	input := f.deps.Config.InputConfig

	return NewInputSequencer(f.deps.Logger, f.deps.Clock, input.KeySettle, input.TypeInterval)
}

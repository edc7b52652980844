package adapters

import (
	"context"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
)

type SessionService interface {
	Start(ctx context.Context, profile string) (string, error)
	Active() (entity.Session, bool)
	Connection() (ports.BrowserConnection, error)
	Close(ctx context.Context) error
}

type TabService interface {
	Open(ctx context.Context, conn ports.BrowserConnection, url string) (entity.TabHandle, error)
	Get(id int) (entity.TabHandle, error)
	All() []entity.TabHandle
}

type InputService interface {
	PressKey(ctx context.Context, conn ports.BrowserConnection, tabID int, code entity.KeyCode, mods entity.Modifier) error
	Type(ctx context.Context, conn ports.BrowserConnection, tabID int, text string) (int, error)
}

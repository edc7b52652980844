package ports

import (
	"context"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
)

// BrowserConnection is a live connection to one browser backend. Tab ids are
// assigned by the backend and are only meaningful within that connection.
type BrowserConnection interface {
	OpenTab(ctx context.Context, url string) (int, error)
	ClickableElements(ctx context.Context, tabID int) ([]entity.ClickableElement, error)
	ClickElement(ctx context.Context, tabID int, index int) error
	Screenshot(ctx context.Context, tabID int, width, height int) ([]byte, error)
	KeyEvent(ctx context.Context, tabID int, event entity.KeyEvent) error
	CharEvent(ctx context.Context, tabID int, codePoint rune) error
	Scroll(ctx context.Context, tabID int, origin entity.Point, deltaX, deltaY float64) error
	MouseMove(ctx context.Context, tabID int, to entity.Point) error
	MouseClick(ctx context.Context, tabID int, at entity.Point, button entity.MouseButton) error
	SetInputValue(ctx context.Context, tabID int, selector, value string) error
	ElementCenter(ctx context.Context, tabID int, selector string) (entity.Point, error)
	DOM(ctx context.Context, tabID int) (string, error)
	Close(ctx context.Context) error
}

// Connector establishes a BrowserConnection to the address returned by provisioning.
type Connector interface {
	Connect(ctx context.Context, address string) (BrowserConnection, error)
}

// ProfileResolver resolves a profile name to a backend address. A non-empty
// failure with a nil error means the lookup answered but refused the profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, profile string) (address string, failure string, err error)
}

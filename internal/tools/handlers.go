package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/usecase"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	screenshotWidth  = 800
	screenshotHeight = 600
)

// scrollOrigin is the viewport point wheel events are dispatched at.
var scrollOrigin = entity.Point{X: 100, Y: 100}

type StartSessionArgs struct {
	Profile string `json:"profile"`
}

type OpenPageArgs struct {
	URL string `json:"url" validate:"url"`
}

type TabArgs struct {
	TabID int `json:"tabId" validate:"gte=0"`
}

type ClickElementArgs struct {
	TabID int `json:"tabId" validate:"gte=0"`
	Index int `json:"index" validate:"gte=0"`
}

type TypeArgs struct {
	TabID int    `json:"tabId" validate:"gte=0"`
	Text  string `json:"text"`
}

type ScrollArgs struct {
	TabID  int     `json:"tabId" validate:"gte=0"`
	DeltaX float64 `json:"deltaX"`
	DeltaY float64 `json:"deltaY"`
}

type MouseMoveArgs struct {
	TabID int     `json:"tabId" validate:"gte=0"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type MouseClickArgs struct {
	TabID  int     `json:"tabId" validate:"gte=0"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button string  `json:"button" validate:"oneof=left middle right"`
}

type SetInputValueArgs struct {
	TabID    int    `json:"tabId" validate:"gte=0"`
	Selector string `json:"selector" validate:"required"`
	Value    string `json:"value"`
}

type SelectorArgs struct {
	TabID    int    `json:"tabId" validate:"gte=0"`
	Selector string `json:"selector" validate:"required"`
}

type ListTabsArgs struct{}

func withTabID(description string) mcp.ToolOption {
	return WithInteger("tabId", mcp.Required(), mcp.Min(0), mcp.Description(description))
}

// RegisterBrowserTools registers the browser tool set on r in the order
// clients list them.
func RegisterBrowserTools(r *Registry) error {
	registrations := []func() error{
		func() error {
			return Register(r, "start-session", "Start a new browser session", startSession,
				mcp.WithString("profile", mcp.Required(), mcp.Description("The profile to start the session for")))
		},
		func() error {
			return Register(r, "open-page", "Open a new page in the browser", openPage,
				mcp.WithString("url", mcp.DefaultString(r.dc.DefaultURL), mcp.Description("The URL to open in the browser")))
		},
		func() error {
			return Register(r, "get-clickable-elements", "Get all clickable elements on the current page", clickableElements,
				withTabID("The ID of the tab to get clickable elements from"))
		},
		func() error {
			return Register(r, "click-element", "Click an element on the current page by its index", clickElement,
				withTabID("The ID of the tab to click the element in"),
				WithInteger("index", mcp.Required(), mcp.Min(0), mcp.Description("The index of the element to click")))
		},
		func() error {
			return Register(r, "screenshot", "Get a screenshot of the current page", screenshot,
				withTabID("The ID of the tab to get the screenshot from"))
		},
		func() error {
			return Register(r, "press-enter", "Press the Enter key on the current page", pressEnter,
				withTabID("The ID of the tab to send the input to"))
		},
		func() error {
			return Register(r, "type", "Type text into the current page", typeText,
				withTabID("The ID of the tab to send the input to"),
				mcp.WithString("text", mcp.Required(), mcp.Description("The text to type into the page")))
		},
		func() error {
			return Register(r, "scroll", "Scroll the page", scroll,
				withTabID("The ID of the tab to scroll"),
				mcp.WithNumber("deltaX", mcp.DefaultNumber(0), mcp.Description("The amount to scroll horizontally")),
				mcp.WithNumber("deltaY", mcp.DefaultNumber(100), mcp.Description("The amount to scroll vertically")))
		},
		func() error {
			return Register(r, "mouse-move", "Move the mouse pointer on the current page", mouseMove,
				withTabID("The ID of the tab to move the mouse in"),
				mcp.WithNumber("x", mcp.Required(), mcp.Description("Viewport x coordinate")),
				mcp.WithNumber("y", mcp.Required(), mcp.Description("Viewport y coordinate")))
		},
		func() error {
			return Register(r, "mouse-click", "Click the mouse at a point on the current page", mouseClick,
				withTabID("The ID of the tab to click in"),
				mcp.WithNumber("x", mcp.Required(), mcp.Description("Viewport x coordinate")),
				mcp.WithNumber("y", mcp.Required(), mcp.Description("Viewport y coordinate")),
				mcp.WithString("button", mcp.DefaultString(string(entity.MouseButtonLeft)),
					mcp.Enum(string(entity.MouseButtonLeft), string(entity.MouseButtonMiddle), string(entity.MouseButtonRight)),
					mcp.Description("The mouse button to click")))
		},
		func() error {
			return Register(r, "set-input-value", "Set the value of an input element", setInputValue,
				withTabID("The ID of the tab containing the input"),
				mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector of the input")),
				mcp.WithString("value", mcp.Required(), mcp.Description("The value to set")))
		},
		func() error {
			return Register(r, "get-element-center", "Get the viewport center of an element", elementCenter,
				withTabID("The ID of the tab containing the element"),
				mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector of the element")))
		},
		func() error {
			return Register(r, "get-dom", "Get the HTML of the current page", dom,
				withTabID("The ID of the tab to read"))
		},
		func() error {
			return Register(r, "list-tabs", "List the pages opened in this session", listTabs)
		},
	}

	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}

	return nil
}

func startSession(ctx context.Context, dc *DispatchContext, args StartSessionArgs) (Output, error) {
	msg, err := dc.Session.Start(ctx, args.Profile)
	if err != nil {
		return nil, err
	}

	return Message(msg), nil
}

func openPage(ctx context.Context, dc *DispatchContext, args OpenPageArgs) (Output, error) {
	const op = "open-page"

	conn, err := dc.Session.Connection()
	if err != nil {
		return Message(usecase.MsgSessionNotStarted), nil
	}

	tab, err := dc.Tabs.Open(ctx, conn, args.URL)
	if err != nil {
		return nil, err
	}

	dc.Clock.Sleep(dc.PageSettle)

	elements, err := conn.ClickableElements(ctx, tab.ID)
	if err != nil {
		return nil, backendError(op, apperr.StageInspection, tab.ID, err)
	}

	return ElementListing{
		Header:   fmt.Sprintf("Opened page with id: %d at %s\nClickable elements:", tab.ID, args.URL),
		Elements: elements,
	}, nil
}

func clickableElements(ctx context.Context, dc *DispatchContext, args TabArgs) (Output, error) {
	const op = "get-clickable-elements"

	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	elements, err := conn.ClickableElements(ctx, args.TabID)
	if err != nil {
		return nil, backendError(op, apperr.StageInspection, args.TabID, err)
	}

	return ElementListing{
		Header:   fmt.Sprintf("Clickable elements on tab %d:", args.TabID),
		Elements: elements,
	}, nil
}

func clickElement(ctx context.Context, dc *DispatchContext, args ClickElementArgs) (Output, error) {
	const op = "click-element"

	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	if err := conn.ClickElement(ctx, args.TabID, args.Index); err != nil {
		return nil, backendError(op, apperr.StageInteraction, args.TabID, err)
	}

	return Message(fmt.Sprintf("Clicked element at index %d on tab %d", args.Index, args.TabID)), nil
}

func screenshot(ctx context.Context, dc *DispatchContext, args TabArgs) (Output, error) {
	const op = "screenshot"

	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	image, err := conn.Screenshot(ctx, args.TabID, screenshotWidth, screenshotHeight)
	if err != nil {
		return nil, backendError(op, apperr.StageScreenshot, args.TabID, err)
	}

	return Capture{
		Caption:   fmt.Sprintf("Screenshot taken in tab %d with data", args.TabID),
		Image:     image,
		MediaType: entity.MediaTypePNG,
	}, nil
}

func pressEnter(ctx context.Context, dc *DispatchContext, args TabArgs) (Output, error) {
	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	if err := dc.Input.PressKey(ctx, conn, args.TabID, entity.KeyEnter, 0); err != nil {
		return nil, err
	}

	return Message(fmt.Sprintf("Pressed Enter on tab %d", args.TabID)), nil
}

func typeText(ctx context.Context, dc *DispatchContext, args TypeArgs) (Output, error) {
	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	if _, err := dc.Input.Type(ctx, conn, args.TabID, args.Text); err != nil {
		return nil, err
	}

	return Message(fmt.Sprintf("Typed text '%s' on tab %d", args.Text, args.TabID)), nil
}

func scroll(ctx context.Context, dc *DispatchContext, args ScrollArgs) (Output, error) {
	const op = "scroll"

	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	if err := conn.Scroll(ctx, args.TabID, scrollOrigin, args.DeltaX, args.DeltaY); err != nil {
		return nil, backendError(op, apperr.StageInteraction, args.TabID, err)
	}

	return Message(fmt.Sprintf("Scrolled page in tab %d by (%s, %s)",
		args.TabID, formatNumber(args.DeltaX), formatNumber(args.DeltaY))), nil
}

func mouseMove(ctx context.Context, dc *DispatchContext, args MouseMoveArgs) (Output, error) {
	const op = "mouse-move"

	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	to := entity.Point{X: args.X, Y: args.Y}
	if err := conn.MouseMove(ctx, args.TabID, to); err != nil {
		return nil, backendError(op, apperr.StageInteraction, args.TabID, err)
	}

	return Message(fmt.Sprintf("Moved mouse to %s on tab %d", formatPoint(to), args.TabID)), nil
}

func mouseClick(ctx context.Context, dc *DispatchContext, args MouseClickArgs) (Output, error) {
	const op = "mouse-click"

	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	at := entity.Point{X: args.X, Y: args.Y}
	if err := conn.MouseClick(ctx, args.TabID, at, entity.MouseButton(args.Button)); err != nil {
		return nil, backendError(op, apperr.StageInteraction, args.TabID, err)
	}

	return Message(fmt.Sprintf("Clicked %s mouse button at %s on tab %d", args.Button, formatPoint(at), args.TabID)), nil
}

func setInputValue(ctx context.Context, dc *DispatchContext, args SetInputValueArgs) (Output, error) {
	const op = "set-input-value"

	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	if err := conn.SetInputValue(ctx, args.TabID, args.Selector, args.Value); err != nil {
		return nil, backendError(op, apperr.StageInput, args.TabID, err)
	}

	return Message(fmt.Sprintf("Set value of '%s' on tab %d", args.Selector, args.TabID)), nil
}

func elementCenter(ctx context.Context, dc *DispatchContext, args SelectorArgs) (Output, error) {
	const op = "get-element-center"

	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	center, err := conn.ElementCenter(ctx, args.TabID, args.Selector)
	if err != nil {
		return nil, backendError(op, apperr.StageInspection, args.TabID, err)
	}

	return Message(fmt.Sprintf("Center of '%s' on tab %d: %s", args.Selector, args.TabID, formatPoint(center))), nil
}

func dom(ctx context.Context, dc *DispatchContext, args TabArgs) (Output, error) {
	const op = "get-dom"

	conn, refusal := dc.target(args.TabID)
	if refusal != nil {
		return refusal, nil
	}

	html, err := conn.DOM(ctx, args.TabID)
	if err != nil {
		return nil, backendError(op, apperr.StageInspection, args.TabID, err)
	}

	return Message(fmt.Sprintf("DOM of tab %d:\n%s", args.TabID, html)), nil
}

func listTabs(_ context.Context, dc *DispatchContext, _ ListTabsArgs) (Output, error) {
	if _, active := dc.Session.Active(); !active {
		return Message(usecase.MsgSessionNotStarted), nil
	}

	tabs := dc.Tabs.All()
	if len(tabs) == 0 {
		return Message("No tabs opened yet"), nil
	}

	lines := make([]string, len(tabs))
	for i, tab := range tabs {
		lines[i] = fmt.Sprintf("[%d] %s", tab.ID, tab.URL)
	}

	return Message("Open tabs:\n" + strings.Join(lines, "\n")), nil
}

func backendError(tool, stage string, tabID int, err error) error {
	return apperr.Wrap(tool, apperr.CodeBackend, err, map[string]any{
		apperr.MetaStage: stage,
		apperr.MetaTabID: tabID,
	})
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPoint(p entity.Point) string {
	return "(" + formatNumber(p.X) + ", " + formatNumber(p.Y) + ")"
}

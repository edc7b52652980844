package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/logg"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/tracing"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	playwrightConnectorName = "PlaywrightConnector"
	playwrightTracer        = "browser.playwright"
	navigationTimeout       = 30000
	actionTimeout           = 15000
)

// PlaywrightConnector drives the browser in-process through the playwright
// driver, attaching to the provisioned browser over CDP.
type PlaywrightConnector struct {
	logger         *zap.Logger
	tracer         trace.Tracer
	connectTimeout float64
}

func NewPlaywrightConnector(params Params) *PlaywrightConnector {
	return &PlaywrightConnector{
		logger:         params.Logger.With(zap.String(logg.Layer, playwrightConnectorName)),
		tracer:         otel.Tracer(playwrightTracer),
		connectTimeout: float64(params.Config.BrowserConfig.DialTimeout.Milliseconds()),
	}
}

func (c *PlaywrightConnector) Connect(ctx context.Context, address string) (conn ports.BrowserConnection, err error) {
	const op = "Connect"
	address = cdpAddress(address)
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.Address, address))

	_, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("address", address))
	defer func() {
		step.End(err)
	}()

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageConnect,
		})
	}

	step.AddEvent("connecting over CDP")

	browser, err := pw.Chromium.ConnectOverCDP(address, playwright.BrowserTypeConnectOverCDPOptions{
		Timeout: playwright.Float(c.connectTimeout),
	})
	if err != nil {
		_ = pw.Stop()

		return nil, apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "connect_over_cdp_failed",
			apperr.MetaStage:  apperr.StageConnect,
		})
	}

	var browserContext playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		browserContext = contexts[0]
		logger.Info("Using existing browser context")
	} else {
		browserContext, err = browser.NewContext()
		if err != nil {
			_ = browser.Close()
			_ = pw.Stop()

			return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "context_create_failed",
				apperr.MetaStage:  apperr.StageConnect,
			})
		}
		logger.Info("Created new browser context")
	}

	return &playwrightConnection{
		logger:         c.logger.With(zap.String(logg.Address, address)),
		tracer:         c.tracer,
		playwright:     pw,
		browser:        browser,
		browserContext: browserContext,
		pages:          make(map[int]playwright.Page),
	}, nil
}

func cdpAddress(address string) string {
	if strings.Contains(address, "://") {
		return address
	}

	return "http://" + address
}

// playwrightConnection numbers pages itself, starting at 1, since playwright
// has no integer page ids.
type playwrightConnection struct {
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext

	mu     sync.Mutex
	nextID int
	pages  map[int]playwright.Page
}

func (c *playwrightConnection) page(op string, tabID int) (playwright.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	page, ok := c.pages[tabID]
	if !ok || page.IsClosed() {
		return nil, apperr.Wrap(op, apperr.CodeNotFound, fmt.Errorf("page %d is not open", tabID), map[string]any{
			apperr.MetaTabID: tabID,
		})
	}

	return page, nil
}

func (c *playwrightConnection) OpenTab(ctx context.Context, url string) (id int, err error) {
	const op = "OpenTab"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	_, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	page, err := c.browserContext.NewPage()
	if err != nil {
		return 0, apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(navigationTimeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		_ = page.Close()

		return 0, apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	c.mu.Lock()
	c.nextID++
	id = c.nextID
	c.pages[id] = page
	c.mu.Unlock()

	return id, nil
}

func (c *playwrightConnection) ClickableElements(_ context.Context, tabID int) ([]entity.ClickableElement, error) {
	const op = "ClickableElements"

	page, err := c.page(op, tabID)
	if err != nil {
		return nil, err
	}

	result, err := page.Evaluate(clickableElementsScript, -1)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageInspection,
		})
	}

	return parseElements(result)
}

func parseElements(result interface{}) ([]entity.ClickableElement, error) {
	list, ok := result.([]interface{})
	if !ok {
		return nil, apperr.WrapErrorWithReason("parseElements", apperr.CodeInternal, "unexpected_result_type")
	}

	elements := make([]entity.ClickableElement, 0, len(list))
	for _, item := range list {
		elemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		elements = append(elements, entity.ClickableElement{
			Index: len(elements),
			Tag:   getString(elemMap, "tag"),
			Text:  strings.TrimSpace(getString(elemMap, "text")),
		})
	}

	return elements, nil
}

func (c *playwrightConnection) ClickElement(_ context.Context, tabID int, index int) error {
	const op = "ClickElement"

	page, err := c.page(op, tabID)
	if err != nil {
		return err
	}

	result, err := page.Evaluate(clickableElementsScript, index)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return scriptError(op, result)
}

// scriptError turns an {error: "..."} script result into an error.
func scriptError(op string, result interface{}) error {
	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return nil
	}

	if msg := getString(resultMap, "error"); msg != "" {
		return apperr.Wrap(op, apperr.CodeBackend, fmt.Errorf("%s", msg), map[string]any{
			apperr.MetaReason: "script_failed",
		})
	}

	return nil
}

func (c *playwrightConnection) Screenshot(_ context.Context, tabID int, width, height int) ([]byte, error) {
	const op = "Screenshot"

	page, err := c.page(op, tabID)
	if err != nil {
		return nil, err
	}

	return captureAt(op, page, width, height)
}

// viewportPage is the part of playwright.Page a capture touches.
type viewportPage interface {
	ViewportSize() *playwright.Size
	SetViewportSize(width, height int) error
	Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error)
}

// captureAt resizes the viewport for one capture and puts the previous size
// back afterwards, so the tab keeps the layout the user had.
func captureAt(op string, page viewportPage, width, height int) (data []byte, err error) {
	previous := page.ViewportSize()

	if err := page.SetViewportSize(width, height); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "set_viewport_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	if previous != nil && (previous.Width != width || previous.Height != height) {
		defer func() {
			if restoreErr := page.SetViewportSize(previous.Width, previous.Height); restoreErr != nil && err == nil {
				data, err = nil, apperr.Wrap(op, apperr.CodeBackend, restoreErr, map[string]any{
					apperr.MetaReason: "restore_viewport_failed",
					apperr.MetaStage:  apperr.StageScreenshot,
				})
			}
		}()
	}

	data, err = page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	return data, nil
}

func (c *playwrightConnection) KeyEvent(_ context.Context, tabID int, event entity.KeyEvent) error {
	const op = "KeyEvent"

	page, err := c.page(op, tabID)
	if err != nil {
		return err
	}

	key, ok := keyName(event.Code)
	if !ok {
		return apperr.InvalidReqError(op, "code", fmt.Errorf("unsupported key code %d", event.Code))
	}

	keyboard := page.Keyboard()
	mods := modifierNames(event.Modifiers)

	if event.Down {
		for _, mod := range mods {
			if err := keyboard.Down(mod); err != nil {
				return c.inputErr(op, err)
			}
		}

		if err := keyboard.Down(key); err != nil {
			return c.inputErr(op, err)
		}

		return nil
	}

	if err := keyboard.Up(key); err != nil {
		return c.inputErr(op, err)
	}

	for i := len(mods) - 1; i >= 0; i-- {
		if err := keyboard.Up(mods[i]); err != nil {
			return c.inputErr(op, err)
		}
	}

	return nil
}

func (c *playwrightConnection) CharEvent(_ context.Context, tabID int, codePoint rune) error {
	const op = "CharEvent"

	page, err := c.page(op, tabID)
	if err != nil {
		return err
	}

	if err := page.Keyboard().InsertText(string(codePoint)); err != nil {
		return c.inputErr(op, err)
	}

	return nil
}

func (c *playwrightConnection) Scroll(_ context.Context, tabID int, origin entity.Point, deltaX, deltaY float64) error {
	const op = "Scroll"

	page, err := c.page(op, tabID)
	if err != nil {
		return err
	}

	if err := page.Mouse().Move(origin.X, origin.Y); err != nil {
		return c.inputErr(op, err)
	}

	if err := page.Mouse().Wheel(deltaX, deltaY); err != nil {
		return c.inputErr(op, err)
	}

	return nil
}

func (c *playwrightConnection) MouseMove(_ context.Context, tabID int, to entity.Point) error {
	const op = "MouseMove"

	page, err := c.page(op, tabID)
	if err != nil {
		return err
	}

	if err := page.Mouse().Move(to.X, to.Y); err != nil {
		return c.inputErr(op, err)
	}

	return nil
}

func (c *playwrightConnection) MouseClick(_ context.Context, tabID int, at entity.Point, button entity.MouseButton) error {
	const op = "MouseClick"

	page, err := c.page(op, tabID)
	if err != nil {
		return err
	}

	if err := page.Mouse().Click(at.X, at.Y, playwright.MouseClickOptions{
		Button: mouseButton(button),
	}); err != nil {
		return c.inputErr(op, err)
	}

	return nil
}

func (c *playwrightConnection) SetInputValue(_ context.Context, tabID int, selector, value string) error {
	const op = "SetInputValue"

	page, err := c.page(op, tabID)
	if err != nil {
		return err
	}

	if err := page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: playwright.Float(actionTimeout),
	}); err != nil {
		return apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "fill_failed",
			apperr.MetaStage:  apperr.StageInteraction,
			"selector":        selector,
		})
	}

	return nil
}

func (c *playwrightConnection) ElementCenter(_ context.Context, tabID int, selector string) (entity.Point, error) {
	const op = "ElementCenter"

	page, err := c.page(op, tabID)
	if err != nil {
		return entity.Point{}, err
	}

	result, err := page.Evaluate(elementCenterScript, selector)
	if err != nil {
		return entity.Point{}, apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageInspection,
		})
	}

	if err := scriptError(op, result); err != nil {
		return entity.Point{}, err
	}

	resultMap, _ := result.(map[string]interface{})

	return entity.Point{X: getFloat(resultMap, "x"), Y: getFloat(resultMap, "y")}, nil
}

func (c *playwrightConnection) DOM(_ context.Context, tabID int) (string, error) {
	const op = "DOM"

	page, err := c.page(op, tabID)
	if err != nil {
		return "", err
	}

	html, err := page.Content()
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "content_failed",
			apperr.MetaStage:  apperr.StageInspection,
		})
	}

	return html, nil
}

// Close detaches from the browser. The provisioned browser keeps running; only
// the CDP connection and the local driver go away.
func (c *playwrightConnection) Close(_ context.Context) error {
	const op = "Close"

	if err := c.browser.Close(); err != nil {
		c.logger.Warn("Failed to close browser connection", zap.Error(err))
	}

	if err := c.playwright.Stop(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_stop_failed",
		})
	}

	c.logger.Info("Playwright connection closed")

	return nil
}

func (c *playwrightConnection) inputErr(op string, err error) error {
	return apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
		apperr.MetaStage: apperr.StageInput,
	})
}

var keyNames = map[entity.KeyCode]string{
	entity.KeyBackspace: "Backspace",
	entity.KeyTab:       "Tab",
	entity.KeyEnter:     "Enter",
	entity.KeyEscape:    "Escape",
	entity.KeyPageUp:    "PageUp",
	entity.KeyPageDown:  "PageDown",
	entity.KeyLeft:      "ArrowLeft",
	entity.KeyUp:        "ArrowUp",
	entity.KeyRight:     "ArrowRight",
	entity.KeyDown:      "ArrowDown",
	entity.KeyDelete:    "Delete",
}

func keyName(code entity.KeyCode) (string, bool) {
	name, ok := keyNames[code]

	return name, ok
}

// modifierNames lists held modifiers in the order they are pressed.
func modifierNames(mods entity.Modifier) []string {
	var names []string
	if mods.Has(entity.ModShift) {
		names = append(names, "Shift")
	}
	if mods.Has(entity.ModControl) {
		names = append(names, "Control")
	}
	if mods.Has(entity.ModAlt) {
		names = append(names, "Alt")
	}
	if mods.Has(entity.ModMeta) {
		names = append(names, "Meta")
	}

	return names
}

func mouseButton(button entity.MouseButton) *playwright.MouseButton {
	switch button {
	case entity.MouseButtonMiddle:
		return playwright.MouseButtonMiddle
	case entity.MouseButtonRight:
		return playwright.MouseButtonRight
	default:
		return playwright.MouseButtonLeft
	}
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}

	if v, ok := m[key].(int); ok {
		return float64(v)
	}

	return 0
}

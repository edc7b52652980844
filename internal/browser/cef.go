package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/logg"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/tracing"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	cefConnectorName = "CEFConnector"
	cefTracer        = "browser.cef"
)

// CEFConnector dials the websocket endpoint of a running CEF browser.
type CEFConnector struct {
	logger      *zap.Logger
	tracer      trace.Tracer
	dialTimeout time.Duration
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewCEFConnector(params Params) *CEFConnector {
	return &CEFConnector{
		logger:      params.Logger.With(zap.String(logg.Layer, cefConnectorName)),
		tracer:      otel.Tracer(cefTracer),
		dialTimeout: params.Config.BrowserConfig.DialTimeout,
	}
}

func (c *CEFConnector) Connect(ctx context.Context, address string) (conn ports.BrowserConnection, err error) {
	const op = "Connect"
	address = wsAddress(address)
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.Address, address))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("address", address))
	defer func() {
		step.End(err)
	}()

	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}

	ws, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "dial_failed",
			apperr.MetaStage:  apperr.StageConnect,
		})
	}

	logger.Info("Connected to CEF browser")

	return newCEFConnection(c.logger.With(zap.String(logg.Address, address)), c.tracer, ws), nil
}

// wsAddress accepts host:port as well as full ws:// or wss:// URLs.
func wsAddress(address string) string {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return address
	}

	return "ws://" + address
}

type cefRequest struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type cefResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// cefConnection speaks a request/response protocol over one websocket. A
// single reader routes each response to the caller waiting on its id; frames
// without a waiting caller are browser events or answers to abandoned calls
// and are dropped. The socket never gets read or write deadlines: a timed-out
// gorilla connection is unusable afterwards, so callers give up through their
// context instead.
type cefConnection struct {
	logger *zap.Logger
	tracer trace.Tracer
	ws     *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan cefResponse
	readErr error
	done    chan struct{}
}

func newCEFConnection(logger *zap.Logger, tracer trace.Tracer, ws *websocket.Conn) *cefConnection {
	c := &cefConnection{
		logger:  logger,
		tracer:  tracer,
		ws:      ws,
		pending: make(map[int64]chan cefResponse),
		done:    make(chan struct{}),
	}

	go c.readLoop()

	return c
}

func (c *cefConnection) readLoop() {
	defer close(c.done)

	for {
		var resp cefResponse
		if err := c.ws.ReadJSON(&resp); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				continue
			}

			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()

			c.logger.Debug("CEF reader stopped", zap.Error(err))

			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if ok {
			ch <- resp
		}
	}
}

func (c *cefConnection) call(ctx context.Context, method string, params any, out any) (err error) {
	const op = "call"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, method)
	defer func() {
		step.End(err)
	}()

	ch := make(chan cefResponse, 1)

	c.mu.Lock()
	if c.readErr != nil {
		readErr := c.readErr
		c.mu.Unlock()

		return c.wrap(method, fmt.Errorf("connection lost: %w", readErr))
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err = c.ws.WriteJSON(cefRequest{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()

	if err != nil {
		return c.wrap(method, fmt.Errorf("write: %w", err))
	}

	var resp cefResponse
	select {
	case resp = <-ch:
	case <-c.done:
		select {
		case resp = <-ch:
		default:
			c.mu.Lock()
			readErr := c.readErr
			c.mu.Unlock()

			return c.wrap(method, fmt.Errorf("read: %w", readErr))
		}
	case <-ctx.Done():
		return apperr.Wrap(method, apperr.CodeTimeout, ctx.Err(), map[string]any{
			apperr.MetaMethod: method,
			apperr.MetaReason: "response_not_received",
		})
	}

	if resp.Error != nil {
		return c.wrap(method, errors.New(resp.Error.Message))
	}

	if out == nil || len(resp.Result) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Result, out); err != nil {
		return c.wrap(method, fmt.Errorf("decode result: %w", err))
	}

	return nil
}

func (c *cefConnection) wrap(method string, err error) error {
	return apperr.Wrap(method, apperr.CodeBackend, err, map[string]any{
		apperr.MetaMethod: method,
	})
}

type tabParams struct {
	TabID int `json:"tabId"`
}

func (c *cefConnection) OpenTab(ctx context.Context, url string) (int, error) {
	var result struct {
		ID int `json:"id"`
	}

	if err := c.call(ctx, "openTab", map[string]any{"url": url}, &result); err != nil {
		return 0, err
	}

	return result.ID, nil
}

func (c *cefConnection) ClickableElements(ctx context.Context, tabID int) ([]entity.ClickableElement, error) {
	var result []struct {
		Tag  string `json:"tag"`
		Text string `json:"text"`
	}

	if err := c.call(ctx, "clickableElements", tabParams{TabID: tabID}, &result); err != nil {
		return nil, err
	}

	elements := make([]entity.ClickableElement, len(result))
	for i, el := range result {
		elements[i] = entity.ClickableElement{Index: i, Tag: el.Tag, Text: el.Text}
	}

	return elements, nil
}

func (c *cefConnection) ClickElement(ctx context.Context, tabID int, index int) error {
	return c.call(ctx, "clickElement", map[string]any{"tabId": tabID, "index": index}, nil)
}

// Screenshot returns decoded image bytes; the browser sends them base64 encoded.
func (c *cefConnection) Screenshot(ctx context.Context, tabID int, width, height int) ([]byte, error) {
	var result struct {
		Data string `json:"data"`
	}

	params := map[string]any{
		"tabId": tabID,
		"size":  map[string]int{"width": width, "height": height},
	}
	if err := c.call(ctx, "screenshot", params, &result); err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(result.Data)
	if err != nil {
		return nil, c.wrap("screenshot", fmt.Errorf("decode image: %w", err))
	}

	return data, nil
}

func (c *cefConnection) KeyEvent(ctx context.Context, tabID int, event entity.KeyEvent) error {
	return c.call(ctx, "key", map[string]any{
		"tabId":     tabID,
		"keyCode":   int(event.Code),
		"modifiers": int(event.Modifiers),
		"down":      event.Down,
	}, nil)
}

func (c *cefConnection) CharEvent(ctx context.Context, tabID int, codePoint rune) error {
	return c.call(ctx, "char", map[string]any{"tabId": tabID, "unicode": int(codePoint)}, nil)
}

func (c *cefConnection) Scroll(ctx context.Context, tabID int, origin entity.Point, deltaX, deltaY float64) error {
	return c.call(ctx, "scroll", map[string]any{
		"tabId":  tabID,
		"x":      origin.X,
		"y":      origin.Y,
		"deltaX": deltaX,
		"deltaY": deltaY,
	}, nil)
}

func (c *cefConnection) MouseMove(ctx context.Context, tabID int, to entity.Point) error {
	return c.call(ctx, "mouseMove", map[string]any{"tabId": tabID, "x": to.X, "y": to.Y}, nil)
}

func (c *cefConnection) MouseClick(ctx context.Context, tabID int, at entity.Point, button entity.MouseButton) error {
	return c.call(ctx, "mouseClick", map[string]any{
		"tabId":  tabID,
		"x":      at.X,
		"y":      at.Y,
		"button": string(button),
	}, nil)
}

func (c *cefConnection) SetInputValue(ctx context.Context, tabID int, selector, value string) error {
	return c.call(ctx, "setInputValue", map[string]any{
		"tabId":    tabID,
		"selector": selector,
		"value":    value,
	}, nil)
}

func (c *cefConnection) ElementCenter(ctx context.Context, tabID int, selector string) (entity.Point, error) {
	var result struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	if err := c.call(ctx, "elementCenter", map[string]any{"tabId": tabID, "selector": selector}, &result); err != nil {
		return entity.Point{}, err
	}

	return entity.Point{X: result.X, Y: result.Y}, nil
}

func (c *cefConnection) DOM(ctx context.Context, tabID int) (string, error) {
	var result struct {
		HTML string `json:"html"`
	}

	if err := c.call(ctx, "dom", tabParams{TabID: tabID}, &result); err != nil {
		return "", err
	}

	return result.HTML, nil
}

func (c *cefConnection) Close(_ context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	if err := c.ws.Close(); err != nil {
		return c.wrap("close", err)
	}

	c.logger.Info("CEF connection closed")

	return nil
}

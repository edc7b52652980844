// Package browsertest provides an in-memory ports.BrowserConnection that records
// every call, for tests of the tool layer.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
	"k8s.io/utils/clock"
)

// Call is one recorded backend invocation.
type Call struct {
	Method string
	TabID  int
	Key    entity.KeyEvent
	Char   rune
	Index  int
	URL    string
	Point  entity.Point
	DeltaX float64
	DeltaY float64
	Width  int
	Height int
	Button entity.MouseButton
	Text   string
	At     time.Time
}

type Page struct {
	URL      string
	Elements []entity.ClickableElement
	DOM      string
	Centers  map[string]entity.Point
	Inputs   map[string]string
}

// Connection is a fake browser. Tab ids start at FirstTabID and increase by one.
// Fail, when set, makes every method return the error for that method name.
type Connection struct {
	FirstTabID int
	Image      []byte
	Elements   []entity.ClickableElement
	Fail       map[string]error
	Closed     bool

	clock  clock.PassiveClock
	mu     sync.Mutex
	nextID int
	pages  map[int]*Page
	calls  []Call
}

func NewConnection(clk clock.PassiveClock) *Connection {
	return &Connection{
		FirstTabID: 1,
		Image:      []byte{0x89, 'P', 'N', 'G'},
		clock:      clk,
		pages:      make(map[int]*Page),
	}
}

func (c *Connection) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Call, len(c.calls))
	copy(out, c.calls)

	return out
}

// CallsOf returns the recorded calls of one method, in order.
func (c *Connection) CallsOf(method string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}

	return out
}

func (c *Connection) Page(tabID int) (*Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pages[tabID]

	return p, ok
}

func (c *Connection) record(call Call) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clock != nil {
		call.At = c.clock.Now()
	}
	c.calls = append(c.calls, call)

	if err := c.Fail[call.Method]; err != nil {
		return err
	}

	if call.Method == "OpenTab" || call.Method == "Close" {
		return nil
	}

	if _, ok := c.pages[call.TabID]; !ok {
		return fmt.Errorf("tab %d is not open", call.TabID)
	}

	return nil
}

func (c *Connection) OpenTab(_ context.Context, url string) (int, error) {
	if err := c.record(Call{Method: "OpenTab", URL: url}); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nextID < c.FirstTabID {
		c.nextID = c.FirstTabID
	}
	id := c.nextID
	c.nextID++

	c.pages[id] = &Page{
		URL:      url,
		Elements: c.Elements,
		DOM:      "<html><body></body></html>",
		Centers:  make(map[string]entity.Point),
		Inputs:   make(map[string]string),
	}

	return id, nil
}

func (c *Connection) ClickableElements(_ context.Context, tabID int) ([]entity.ClickableElement, error) {
	if err := c.record(Call{Method: "ClickableElements", TabID: tabID}); err != nil {
		return nil, err
	}

	page, _ := c.Page(tabID)
	out := make([]entity.ClickableElement, len(page.Elements))
	for i, el := range page.Elements {
		out[i] = entity.ClickableElement{Index: i, Tag: el.Tag, Text: el.Text}
	}

	return out, nil
}

func (c *Connection) ClickElement(_ context.Context, tabID int, index int) error {
	return c.record(Call{Method: "ClickElement", TabID: tabID, Index: index})
}

func (c *Connection) Screenshot(_ context.Context, tabID int, width, height int) ([]byte, error) {
	if err := c.record(Call{Method: "Screenshot", TabID: tabID, Width: width, Height: height}); err != nil {
		return nil, err
	}

	return c.Image, nil
}

func (c *Connection) KeyEvent(_ context.Context, tabID int, event entity.KeyEvent) error {
	return c.record(Call{Method: "KeyEvent", TabID: tabID, Key: event})
}

func (c *Connection) CharEvent(_ context.Context, tabID int, codePoint rune) error {
	return c.record(Call{Method: "CharEvent", TabID: tabID, Char: codePoint})
}

func (c *Connection) Scroll(_ context.Context, tabID int, origin entity.Point, deltaX, deltaY float64) error {
	return c.record(Call{Method: "Scroll", TabID: tabID, Point: origin, DeltaX: deltaX, DeltaY: deltaY})
}

func (c *Connection) MouseMove(_ context.Context, tabID int, to entity.Point) error {
	return c.record(Call{Method: "MouseMove", TabID: tabID, Point: to})
}

func (c *Connection) MouseClick(_ context.Context, tabID int, at entity.Point, button entity.MouseButton) error {
	return c.record(Call{Method: "MouseClick", TabID: tabID, Point: at, Button: button})
}

func (c *Connection) SetInputValue(_ context.Context, tabID int, selector, value string) error {
	if err := c.record(Call{Method: "SetInputValue", TabID: tabID, Text: selector + "=" + value}); err != nil {
		return err
	}

	c.mu.Lock()
	c.pages[tabID].Inputs[selector] = value
	c.mu.Unlock()

	return nil
}

func (c *Connection) ElementCenter(_ context.Context, tabID int, selector string) (entity.Point, error) {
	if err := c.record(Call{Method: "ElementCenter", TabID: tabID, Text: selector}); err != nil {
		return entity.Point{}, err
	}

	page, _ := c.Page(tabID)
	p, ok := page.Centers[selector]
	if !ok {
		return entity.Point{}, fmt.Errorf("no element matches %q", selector)
	}

	return p, nil
}

func (c *Connection) DOM(_ context.Context, tabID int) (string, error) {
	if err := c.record(Call{Method: "DOM", TabID: tabID}); err != nil {
		return "", err
	}

	page, _ := c.Page(tabID)

	return page.DOM, nil
}

func (c *Connection) Close(_ context.Context) error {
	if err := c.record(Call{Method: "Close"}); err != nil {
		return err
	}

	c.mu.Lock()
	c.Closed = true
	c.mu.Unlock()

	return nil
}

// Connector hands out Conn for every Connect and remembers the addresses asked for.
type Connector struct {
	Conn      *Connection
	Err       error
	Addresses []string
}

func (c *Connector) Connect(_ context.Context, address string) (ports.BrowserConnection, error) {
	c.Addresses = append(c.Addresses, address)
	if c.Err != nil {
		return nil, c.Err
	}

	return c.Conn, nil
}

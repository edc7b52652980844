package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordedRequest struct {
	ID     int64          `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// fakeCEF answers each request with handle(method, params). Before every
// answer it sends an unrelated event frame, which the client must skip.
type fakeCEF struct {
	handle func(method string, params map[string]any) (any, string)

	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeCEF) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeCEF) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	for {
		var req recordedRequest
		if err := ws.ReadJSON(&req); err != nil {
			return
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		_ = ws.WriteJSON(map[string]any{"method": "loadingStateChanged", "params": map[string]any{}})

		result, errMsg := f.handle(req.Method, req.Params)
		resp := map[string]any{"id": req.ID}
		if errMsg != "" {
			resp["error"] = map[string]any{"message": errMsg}
		} else {
			resp["result"] = result
		}
		if err := ws.WriteJSON(resp); err != nil {
			return
		}
	}
}

func connectFake(t *testing.T, fake *fakeCEF) ports.BrowserConnection {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	connector := NewCEFConnector(Params{
		Config: &config.Config{BrowserConfig: &config.BrowserConfig{DialTimeout: 5 * time.Second}},
		Logger: zaptest.NewLogger(t),
	})

	address := strings.TrimPrefix(srv.URL, "http://")
	conn, err := connector.Connect(context.Background(), address)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(context.Background()) })

	return conn
}

func TestCEFOpenTabAndElements(t *testing.T) {
	fake := &fakeCEF{handle: func(method string, _ map[string]any) (any, string) {
		switch method {
		case "openTab":
			return map[string]any{"id": 12}, ""
		case "clickableElements":
			return []map[string]any{
				{"tag": "a", "text": "Home"},
				{"tag": "button", "text": "Go"},
			}, ""
		}

		return nil, ""
	}}
	conn := connectFake(t, fake)

	id, err := conn.OpenTab(context.Background(), "https://huly.io")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	elements, err := conn.ClickableElements(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []entity.ClickableElement{
		{Index: 0, Tag: "a", Text: "Home"},
		{Index: 1, Tag: "button", Text: "Go"},
	}, elements)

	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "openTab", reqs[0].Method)
	assert.Equal(t, "https://huly.io", reqs[0].Params["url"])
	assert.Equal(t, float64(12), reqs[1].Params["tabId"])
	assert.Less(t, reqs[0].ID, reqs[1].ID)
}

func TestCEFScreenshotDecodesImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	fake := &fakeCEF{handle: func(string, map[string]any) (any, string) {
		return map[string]any{"data": base64.StdEncoding.EncodeToString(png)}, ""
	}}
	conn := connectFake(t, fake)

	data, err := conn.Screenshot(context.Background(), 1, 800, 600)
	require.NoError(t, err)
	assert.Equal(t, png, data)

	size, ok := fake.Requests()[0].Params["size"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(800), size["width"])
	assert.Equal(t, float64(600), size["height"])
}

func TestCEFInputEventPayloads(t *testing.T) {
	fake := &fakeCEF{handle: func(string, map[string]any) (any, string) { return nil, "" }}
	conn := connectFake(t, fake)
	ctx := context.Background()

	require.NoError(t, conn.KeyEvent(ctx, 3, entity.KeyEvent{Code: entity.KeyEnter, Modifiers: entity.ModControl, Down: true}))
	require.NoError(t, conn.CharEvent(ctx, 3, '😀'))
	require.NoError(t, conn.Scroll(ctx, 3, entity.Point{X: 100, Y: 100}, 0, 250))

	reqs := fake.Requests()
	require.Len(t, reqs, 3)

	assert.Equal(t, "key", reqs[0].Method)
	assert.Equal(t, float64(13), reqs[0].Params["keyCode"])
	assert.Equal(t, float64(entity.ModControl), reqs[0].Params["modifiers"])
	assert.Equal(t, true, reqs[0].Params["down"])

	assert.Equal(t, "char", reqs[1].Method)
	assert.Equal(t, float64(0x1F600), reqs[1].Params["unicode"])

	assert.Equal(t, "scroll", reqs[2].Method)
	assert.Equal(t, float64(250), reqs[2].Params["deltaY"])
}

func TestCEFErrorResponse(t *testing.T) {
	fake := &fakeCEF{handle: func(string, map[string]any) (any, string) {
		return nil, "tab 9 does not exist"
	}}
	conn := connectFake(t, fake)

	err := conn.ClickElement(context.Background(), 9, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tab 9 does not exist")
	assert.Equal(t, apperr.CodeBackend, apperr.CodeOf(err))
}

func TestCEFTimedOutCallKeepsConnectionUsable(t *testing.T) {
	fake := &fakeCEF{handle: func(method string, _ map[string]any) (any, string) {
		switch method {
		case "clickableElements":
			time.Sleep(300 * time.Millisecond)

			return []map[string]any{{"tag": "a", "text": "Late"}}, ""
		case "openTab":
			return map[string]any{"id": 5}, ""
		}

		return nil, ""
	}}
	conn := connectFake(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := conn.ClickableElements(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	id, err := conn.OpenTab(context.Background(), "https://huly.io")
	require.NoError(t, err)
	assert.Equal(t, 5, id)

	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "openTab", reqs[1].Method)
}

func TestCEFConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	address := srv.URL
	srv.Close()

	connector := NewCEFConnector(Params{
		Config: &config.Config{BrowserConfig: &config.BrowserConfig{DialTimeout: time.Second}},
		Logger: zaptest.NewLogger(t),
	})

	_, err := connector.Connect(context.Background(), strings.Replace(address, "http://", "ws://", 1))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}

func TestWSAddress(t *testing.T) {
	assert.Equal(t, "ws://localhost:40001", wsAddress("localhost:40001"))
	assert.Equal(t, "wss://cef.example:443/ws", wsAddress("wss://cef.example:443/ws"))
}

func TestCEFRequestEncoding(t *testing.T) {
	raw, err := json.Marshal(cefRequest{ID: 1, Method: "dom", Params: tabParams{TabID: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"method":"dom","params":{"tabId":2}}`, string(raw))
}

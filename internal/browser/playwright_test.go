package browser

import (
	"errors"
	"testing"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElements(t *testing.T) {
	result := []interface{}{
		map[string]interface{}{"tag": "a", "text": "  Home "},
		"garbage",
		map[string]interface{}{"tag": "button", "text": "Go"},
	}

	elements, err := parseElements(result)
	require.NoError(t, err)
	assert.Equal(t, []entity.ClickableElement{
		{Index: 0, Tag: "a", Text: "Home"},
		{Index: 1, Tag: "button", Text: "Go"},
	}, elements)

	_, err = parseElements(map[string]interface{}{})
	require.Error(t, err)
}

func TestScriptError(t *testing.T) {
	assert.NoError(t, scriptError("ClickElement", map[string]interface{}{"clicked": true}))
	assert.NoError(t, scriptError("ClickElement", nil))

	err := scriptError("ClickElement", map[string]interface{}{"error": "no clickable element at index 4 (found 2)"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 4")
}

func TestKeyName(t *testing.T) {
	name, ok := keyName(entity.KeyEnter)
	require.True(t, ok)
	assert.Equal(t, "Enter", name)

	_, ok = keyName(entity.KeyCode(999))
	assert.False(t, ok)
}

func TestModifierNames(t *testing.T) {
	assert.Empty(t, modifierNames(0))
	assert.Equal(t, []string{"Shift", "Meta"}, modifierNames(entity.ModShift|entity.ModMeta))
}

func TestMouseButton(t *testing.T) {
	assert.Equal(t, playwright.MouseButtonRight, mouseButton(entity.MouseButtonRight))
	assert.Equal(t, playwright.MouseButtonLeft, mouseButton(""))
}

func TestCDPAddress(t *testing.T) {
	assert.Equal(t, "http://localhost:9222", cdpAddress("localhost:9222"))
	assert.Equal(t, "ws://localhost:9222/devtools/browser/x", cdpAddress("ws://localhost:9222/devtools/browser/x"))
}

type fakeViewport struct {
	size      *playwright.Size
	resizes   []playwright.Size
	shotSize  playwright.Size
	shotErr   error
	resizeErr error
}

func (f *fakeViewport) ViewportSize() *playwright.Size {
	return f.size
}

func (f *fakeViewport) SetViewportSize(width, height int) error {
	if f.resizeErr != nil {
		return f.resizeErr
	}

	f.resizes = append(f.resizes, playwright.Size{Width: width, Height: height})
	f.size = &playwright.Size{Width: width, Height: height}

	return nil
}

func (f *fakeViewport) Screenshot(...playwright.PageScreenshotOptions) ([]byte, error) {
	if f.size != nil {
		f.shotSize = *f.size
	}

	return []byte("png"), f.shotErr
}

func TestCaptureAtRestoresViewport(t *testing.T) {
	page := &fakeViewport{size: &playwright.Size{Width: 1280, Height: 720}}

	data, err := captureAt("Screenshot", page, 800, 600)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	assert.Equal(t, playwright.Size{Width: 800, Height: 600}, page.shotSize)
	assert.Equal(t, []playwright.Size{{Width: 800, Height: 600}, {Width: 1280, Height: 720}}, page.resizes)
	assert.Equal(t, &playwright.Size{Width: 1280, Height: 720}, page.size)
}

func TestCaptureAtRestoresViewportAfterFailure(t *testing.T) {
	page := &fakeViewport{size: &playwright.Size{Width: 1280, Height: 720}, shotErr: errors.New("target closed")}

	_, err := captureAt("Screenshot", page, 800, 600)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBackend, apperr.CodeOf(err))
	assert.Equal(t, &playwright.Size{Width: 1280, Height: 720}, page.size)
}

func TestCaptureAtSameSizeSkipsRestore(t *testing.T) {
	page := &fakeViewport{size: &playwright.Size{Width: 800, Height: 600}}

	_, err := captureAt("Screenshot", page, 800, 600)
	require.NoError(t, err)
	assert.Len(t, page.resizes, 1)
}

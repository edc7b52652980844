package tools

import (
	"testing"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage(t *testing.T) {
	blocks := Encode(Message("No tab found with ID 7"))

	require.Len(t, blocks, 1)
	assert.Equal(t, entity.ContentKindText, blocks[0].Kind)
	assert.Equal(t, "No tab found with ID 7", blocks[0].Text)
}

func TestEncodeElementListing(t *testing.T) {
	blocks := Encode(ElementListing{
		Header: "Clickable elements on tab 2:",
		Elements: []entity.ClickableElement{
			{Index: 0, Tag: "a", Text: "Home"},
			{Index: 1, Tag: "button", Text: "Sign in"},
		},
	})

	require.Len(t, blocks, 1)
	assert.Equal(t, "Clickable elements on tab 2:\n[0] <a>Home</a>\n[1] <button>Sign in</button>", blocks[0].Text)
}

func TestEncodeElementListingEmpty(t *testing.T) {
	blocks := Encode(ElementListing{Header: "Clickable elements on tab 2:"})

	require.Len(t, blocks, 1)
	assert.Equal(t, "Clickable elements on tab 2:\n", blocks[0].Text)
}

func TestEncodeCapture(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G'}

	blocks := Encode(Capture{Caption: "Screenshot taken in tab 1 with data", Image: img})

	require.Len(t, blocks, 2)
	assert.Equal(t, entity.ContentKindText, blocks[0].Kind)
	assert.Equal(t, "Screenshot taken in tab 1 with data", blocks[0].Text)
	assert.Equal(t, entity.ContentKindImage, blocks[1].Kind)
	assert.Equal(t, img, blocks[1].Data)
	assert.Equal(t, entity.MediaTypePNG, blocks[1].MediaType)
}

func TestEncodeNil(t *testing.T) {
	assert.Empty(t, Encode(nil))
}

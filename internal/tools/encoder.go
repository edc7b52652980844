package tools

import (
	"fmt"
	"strings"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
)

// Output is what a handler hands back to the dispatcher before encoding.
type Output interface {
	isOutput()
}

// Message is a plain informational result, including user-facing failures
// such as a missing tab or session.
type Message string

// ElementListing is a status header followed by an enumerated element list.
type ElementListing struct {
	Header   string
	Elements []entity.ClickableElement
}

// Capture is a caption followed by an image.
type Capture struct {
	Caption   string
	Image     []byte
	MediaType string
}

func (Message) isOutput()        {}
func (ElementListing) isOutput() {}
func (Capture) isOutput()        {}

// Encode turns handler output into the ordered content blocks of a response.
func Encode(out Output) []entity.ContentBlock {
	switch v := out.(type) {
	case Message:
		return []entity.ContentBlock{entity.TextBlock(string(v))}
	case ElementListing:
		return []entity.ContentBlock{entity.TextBlock(v.Header + "\n" + FormatElements(v.Elements))}
	case Capture:
		mediaType := v.MediaType
		if mediaType == "" {
			mediaType = entity.MediaTypePNG
		}

		return []entity.ContentBlock{
			entity.TextBlock(v.Caption),
			entity.ImageBlock(v.Image, mediaType),
		}
	default:
		return nil
	}
}

// FormatElements renders one "[i] <tag>text</tag>" line per element.
func FormatElements(elements []entity.ClickableElement) string {
	lines := make([]string, len(elements))
	for i, el := range elements {
		lines[i] = fmt.Sprintf("[%d] <%s>%s</%s>", el.Index, el.Tag, el.Text, el.Tag)
	}

	return strings.Join(lines, "\n")
}

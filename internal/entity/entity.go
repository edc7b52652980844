package entity

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        uuid.UUID
	Profile   string
	Address   string
	CreatedAt time.Time
}

type TabHandle struct {
	ID       int
	URL      string
	OpenedAt time.Time
}

// ClickableElement is one entry of a page inspection. Index is its position in
// that inspection only; a later inspection may number the same element differently.
type ClickableElement struct {
	Index int
	Tag   string
	Text  string
}

type KeyCode int

const (
	KeyBackspace KeyCode = 8
	KeyTab       KeyCode = 9
	KeyEnter     KeyCode = 13
	KeyEscape    KeyCode = 27
	KeyPageUp    KeyCode = 33
	KeyPageDown  KeyCode = 34
	KeyLeft      KeyCode = 37
	KeyUp        KeyCode = 38
	KeyRight     KeyCode = 39
	KeyDown      KeyCode = 40
	KeyDelete    KeyCode = 46
)

type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModControl
	ModAlt
	ModMeta
)

func (m Modifier) Has(flag Modifier) bool {
	return m&flag != 0
}

type KeyEvent struct {
	Code      KeyCode
	Modifiers Modifier
	Down      bool
}

type MouseButton string

const (
	MouseButtonLeft   MouseButton = "left"
	MouseButtonMiddle MouseButton = "middle"
	MouseButtonRight  MouseButton = "right"
)

type ContentKind string

const (
	ContentKindText  ContentKind = "text"
	ContentKindImage ContentKind = "image"
)

const MediaTypePNG = "image/png"

// ContentBlock is one unit of a tool result: Text is set for text blocks,
// Data and MediaType for image blocks.
type ContentBlock struct {
	Kind      ContentKind
	Text      string
	Data      []byte
	MediaType string
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: ContentKindText, Text: text}
}

func ImageBlock(data []byte, mediaType string) ContentBlock {
	return ContentBlock{Kind: ContentKindImage, Data: data, MediaType: mediaType}
}

type Point struct {
	X float64
	Y float64
}

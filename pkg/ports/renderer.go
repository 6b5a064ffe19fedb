package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts image work: drawing test patterns, decoding still
// images, fitting them to the frame size and writing debug snapshots.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas with the specified dimensions and background color.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// DecodeImage decodes PNG, JPEG, BMP or WebP data.
	DecodeImage(data []byte) (image.Image, error)

	// ResizeImage scales an image to exactly width x height.
	ResizeImage(img image.Image, width, height int) image.Image

	// EncodePNG encodes an image as PNG.
	EncodePNG(img image.Image) ([]byte, error)
}

// Canvas provides drawing operations for synthetic frames.
type Canvas interface {
	// DrawRect draws a filled rectangle.
	DrawRect(x, y, w, h int, c color.Color)

	// DrawRoundedRect draws a filled rounded rectangle.
	DrawRoundedRect(x, y, w, h, radius int, c color.Color)

	// DrawRectStroke draws a rectangle outline.
	DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64)

	// DrawText draws text centred vertically on y.
	DrawText(text string, x, y int, style TextStyle)

	// DrawLine draws a line between two points.
	DrawLine(x1, y1, x2, y2 int, c color.Color, width float64)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize float64
	FontPath string
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

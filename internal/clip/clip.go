// Package clip provides read-only access to the system clipboard. Build
// constraints select the implementation:
//
//	clip_system.go: macOS, Windows, Linux via golang.design/x/clipboard
//	clip_other.go:  everything else, where New always fails
package clip

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

var (
	// ErrEmpty means the clipboard holds no content of the requested kind.
	ErrEmpty = errors.New("clip: clipboard empty")
	// ErrUnavailable means the OS clipboard could not be reached.
	ErrUnavailable = errors.New("clip: clipboard unavailable")
	// ErrUnsupported means content is present but cannot be read as the
	// requested kind.
	ErrUnsupported = errors.New("clip: unsupported clipboard content")
)

// RawImage is an uncompressed, non-premultiplied RGBA pixel buffer laid out
// row by row with a stride of Width*4.
type RawImage struct {
	Width  uint32
	Height uint32
	Pix    []byte
}

// Accessor is the capability every clipboard implementation satisfies. Both
// reads are non-destructive; nothing in this package writes to the clipboard.
type Accessor interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the current clipboard text, or ErrEmpty,
	// ErrUnavailable or ErrUnsupported.
	ReadText() (string, error)

	// ReadImage returns the current clipboard image as raw RGBA, or ErrEmpty,
	// ErrUnavailable or ErrUnsupported.
	ReadImage() (RawImage, error)
}

// FromImage copies any image.Image into a RawImage.
func FromImage(src image.Image) RawImage {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	if n, ok := src.(*image.NRGBA); ok && n.Stride == w*4 {
		pix := make([]byte, len(n.Pix[:w*h*4]))
		copy(pix, n.Pix)
		return RawImage{Width: uint32(w), Height: uint32(h), Pix: pix}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return RawImage{Width: uint32(w), Height: uint32(h), Pix: dst.Pix}
}

// decodePNG turns PNG bytes as handed out by the OS clipboard into a RawImage.
func decodePNG(data []byte) (RawImage, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return RawImage{}, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return FromImage(img), nil
}

//go:build darwin || linux || windows

package clip

import (
	"fmt"
	"runtime"

	"golang.design/x/clipboard"
)

type systemBackend struct{}

// New acquires the system clipboard. clipboard.Init is called here rather than
// in init() so that CLI sub-commands (tail, latest, status) that never read
// the clipboard don't fail on headless systems. The returned error wraps
// ErrUnavailable.
func New() (Accessor, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return systemBackend{}, nil
}

func (systemBackend) Name() string { return runtime.GOOS + " clipboard (poll)" }

func (systemBackend) ReadText() (string, error) {
	text := clipboard.Read(clipboard.FmtText)
	if len(text) == 0 {
		return "", ErrEmpty
	}
	return string(text), nil
}

func (systemBackend) ReadImage() (RawImage, error) {
	data := clipboard.Read(clipboard.FmtImage)
	if len(data) == 0 {
		return RawImage{}, ErrEmpty
	}
	return decodePNG(data)
}

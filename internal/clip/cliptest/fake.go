// Package cliptest provides a scriptable clip.Accessor for tests.
package cliptest

import (
	"sync"

	"go.klb.dev/clipwatch/internal/clip"
)

// Fake is an in-memory clipboard. The zero value is an empty clipboard; both
// reads return clip.ErrEmpty until content is set. It is safe for concurrent
// use so tests can change it while a watcher polls.
type Fake struct {
	mu       sync.Mutex
	text     *string
	img      *clip.RawImage
	textErr  error
	imageErr error

	textReads  int
	imageReads int
}

func (f *Fake) Name() string { return "fake" }

// SetText puts text on the clipboard and clears any scripted text error.
func (f *Fake) SetText(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = &s
	f.textErr = nil
}

// SetImage puts img on the clipboard and clears any scripted image error.
// The pixel buffer is copied.
func (f *Fake) SetImage(img clip.RawImage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img.Pix = append([]byte(nil), img.Pix...)
	f.img = &img
	f.imageErr = nil
}

// Clear empties the clipboard.
func (f *Fake) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = nil
	f.img = nil
	f.textErr = nil
	f.imageErr = nil
}

// FailText makes ReadText return err until the text is set again.
func (f *Fake) FailText(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textErr = err
}

// FailImage makes ReadImage return err until an image is set again.
func (f *Fake) FailImage(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageErr = err
}

// Reads reports how many times each read method was called.
func (f *Fake) Reads() (text, image int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.textReads, f.imageReads
}

func (f *Fake) ReadText() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textReads++
	switch {
	case f.textErr != nil:
		return "", f.textErr
	case f.text == nil:
		return "", clip.ErrEmpty
	}
	return *f.text, nil
}

func (f *Fake) ReadImage() (clip.RawImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageReads++
	switch {
	case f.imageErr != nil:
		return clip.RawImage{}, f.imageErr
	case f.img == nil:
		return clip.RawImage{}, clip.ErrEmpty
	}
	img := *f.img
	img.Pix = append([]byte(nil), img.Pix...)
	return img, nil
}

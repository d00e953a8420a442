// Package watcher polls the clipboard and emits one event.Payload per
// distinct change.
//
// Text and image are independent channels. Each poll cycle reads text, then
// image, compares each against the last value successfully observed for that
// kind, and notifies the sink on a difference. A failed read is "no
// observation": it neither emits nor resets what was last seen, so pasting
// the same content again after the clipboard was cleared does not re-trigger.
//
// Images are compared by fingerprint. The fingerprint is recorded before the
// image is encoded, so an image that fails to encode is attempted once and
// not again until the clipboard image changes.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.klb.dev/clipwatch/internal/clip"
	"go.klb.dev/clipwatch/internal/event"
	"go.klb.dev/clipwatch/internal/fingerprint"
	"go.klb.dev/clipwatch/internal/imagecodec"
)

// DefaultInterval is the pause between poll cycles.
const DefaultInterval = 300 * time.Millisecond

// State is what the watcher remembers between cycles. It belongs to the
// goroutine running the watcher and is never shared.
type State struct {
	LastText string
	// LastImage is meaningful only when HaveImage is set.
	LastImage uint64
	HaveImage bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval overrides DefaultInterval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithCodec sets the image codec used for changed images.
func WithCodec(c *imagecodec.Codec) Option {
	return func(w *Watcher) {
		if c != nil {
			w.codec = c
		}
	}
}

// Watcher is the change detector. Poll and Run must not be called
// concurrently.
type Watcher struct {
	acc      clip.Accessor
	sink     event.Sink
	codec    *imagecodec.Codec
	interval time.Duration
	state    State
	done     chan struct{}
}

// New returns a Watcher reading from acc and notifying sink. It does not
// start polling.
func New(acc clip.Accessor, sink event.Sink, opts ...Option) *Watcher {
	if sink == nil {
		sink = event.Discard
	}
	w := &Watcher{
		acc:      acc,
		sink:     sink,
		codec:    &imagecodec.Codec{},
		interval: DefaultInterval,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// newAccessor is swapped out in tests.
var newAccessor = clip.New

// Start acquires the system clipboard and launches the single watcher
// goroutine, which polls until ctx is cancelled. If the clipboard cannot be
// acquired nothing is started and the error is returned.
func Start(ctx context.Context, sink event.Sink, opts ...Option) (*Watcher, error) {
	acc, err := newAccessor()
	if err != nil {
		return nil, fmt.Errorf("watcher: acquire clipboard: %w", err)
	}
	w := New(acc, sink, opts...)
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		err := w.Run(ctx)
		slog.Debug("clipboard watcher stopped", "reason", err)
	}()
	return w, nil
}

// Backend returns the name of the clipboard accessor.
func (w *Watcher) Backend() string { return w.acc.Name() }

// Interval returns the pause between poll cycles.
func (w *Watcher) Interval() time.Duration { return w.interval }

// Done is closed when a watcher launched by Start has stopped. It is nil for
// watchers created with New.
func (w *Watcher) Done() <-chan struct{} { return w.done }

// State returns a copy of the retained state. Only call it when the watcher
// is not running.
func (w *Watcher) State() State { return w.state }

// Run polls immediately and then once per interval until ctx is done, and
// returns ctx.Err(). Cancellation is only observed between cycles.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("clipboard watcher started", "backend", w.acc.Name(), "interval", w.interval)

	timer := time.NewTimer(w.interval)
	defer timer.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.Poll()

		timer.Reset(w.interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Poll runs a single cycle: text first, then image. It returns how many
// payloads were emitted.
func (w *Watcher) Poll() int {
	n := 0
	if w.pollText() {
		n++
	}
	if w.pollImage() {
		n++
	}
	return n
}

func (w *Watcher) pollText() bool {
	text, err := w.acc.ReadText()
	if err != nil || text == w.state.LastText {
		return false
	}
	w.state.LastText = text
	slog.Debug("clipboard text changed", "bytes", len(text))
	w.sink.Notify(event.Payload{Kind: event.KindText, Content: text})
	return true
}

func (w *Watcher) pollImage() bool {
	img, err := w.acc.ReadImage()
	if err != nil {
		return false
	}
	h := fingerprint.Sum(img.Pix)
	if w.state.HaveImage && h == w.state.LastImage {
		return false
	}
	w.state.LastImage = h
	w.state.HaveImage = true

	encoded, err := w.codec.Encode(img)
	if err != nil {
		slog.Debug("clipboard image dropped",
			"width", img.Width,
			"height", img.Height,
			"bytes", len(img.Pix),
			"err", err,
		)
		return false
	}
	slog.Debug("clipboard image changed", "width", img.Width, "height", img.Height)
	w.sink.Notify(event.Payload{Kind: event.KindImage, Content: encoded})
	return true
}

package hub

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"go.klb.dev/clipwatch/internal/event"
)

const previewLen = 120

// LogPayload logs a clipboard payload at INFO (kind, content size) and DEBUG
// (text preview up to 120 chars).
func LogPayload(msg string, p event.Payload) {
	slog.Info(msg, "event", event.ClipboardChanged, "kind", p.Kind, "size_bytes", len(p.Content))

	if p.Kind != event.KindText || !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("clipboard text", "preview", preview(p.Content))
}

// LogSink is an event.Sink that only logs.
var LogSink event.Sink = event.SinkFunc(func(p event.Payload) {
	LogPayload("clipboard changed", p)
})

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	r := []rune(s)
	return string(r[:previewLen]) + "…"
}

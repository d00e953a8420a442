// Package event defines the clipboard notification handed from the watcher
// to its consumers.
//
// A Payload is JSON-encoded as
//
//	{"kind":"text","content":"hello"}
//	{"kind":"image","content":"<base64 PNG>"}
//
// and is delivered under the single event name ClipboardChanged.
package event

import (
	"encoding/json"
	"fmt"
)

// ClipboardChanged is the name consumers subscribe to.
const ClipboardChanged = "clipboard-changed"

// Kind identifies the clipboard content carried by a Payload.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindText, KindImage:
		return k, nil
	default:
		return "", fmt.Errorf("unknown kind %q (want text or image)", s)
	}
}

// MIME returns the media type of the decoded content.
func (k Kind) MIME() string {
	if k == KindImage {
		return "image/png"
	}
	return "text/plain; charset=utf-8"
}

// Payload is one detected clipboard change. It is passed by value and never
// mutated after construction.
type Payload struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
}

// Encode serialises the payload to JSON without a trailing newline.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Decode deserialises a payload from raw JSON bytes.
func Decode(b []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, fmt.Errorf("payload decode: %w", err)
	}
	if _, err := ParseKind(string(p.Kind)); err != nil {
		return Payload{}, fmt.Errorf("payload decode: %w", err)
	}
	return p, nil
}

// Envelope is a payload tagged with its event name, for transports that
// carry more than one kind of message.
type Envelope struct {
	Event string `json:"event"`
	Payload
}

// Wrap tags p with ClipboardChanged.
func Wrap(p Payload) Envelope {
	return Envelope{Event: ClipboardChanged, Payload: p}
}

// Encode serialises the envelope, event name included.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Sink receives payloads. Notify must not block for long: it runs on the
// watcher goroutine, and delivery beyond the call is best effort.
type Sink interface {
	Notify(Payload)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Payload)

func (f SinkFunc) Notify(p Payload) { f(p) }

// Tee returns a Sink that forwards each payload to every sink in order.
// Nil sinks are skipped.
func Tee(sinks ...Sink) Sink {
	var out tee
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type tee []Sink

func (t tee) Notify(p Payload) {
	for _, s := range t {
		s.Notify(p)
	}
}

// Discard drops every payload.
var Discard Sink = SinkFunc(func(Payload) {})

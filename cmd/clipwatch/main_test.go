package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipwatch/internal/event"
)

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "clipwatch "+Version+"\n", out.String())
}

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds([]string{"image", "text"})
	require.NoError(t, err)
	assert.Equal(t, []event.Kind{event.KindImage, event.KindText}, kinds)

	kinds, err = parseKinds(nil)
	require.NoError(t, err)
	assert.Empty(t, kinds)

	_, err = parseKinds([]string{"html"})
	require.Error(t, err)
}

func TestLatestRejectsUnknownKind(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"latest", "html"})
	require.Error(t, root.Execute())
}

func TestPrintStatus(t *testing.T) {
	doc := map[string]any{
		"version":     "1.2.3",
		"backend":     "fake",
		"interval_ms": float64(300),
		"published":   map[string]any{"text": float64(2), "image": float64(1)},
		"subscribers": []any{
			map[string]any{
				"id":           "grpc/abc",
				"addr":         "@",
				"accepts":      []any{"text"},
				"connected_at": "2024-01-02T03:04:05Z",
				"dropped":      float64(0),
			},
		},
	}
	var out bytes.Buffer
	printStatus(&out, doc, "ipc (/tmp/x.sock)")

	s := out.String()
	assert.Contains(t, s, "ipc (/tmp/x.sock)")
	assert.Contains(t, s, "text=2 image=1")
	assert.Contains(t, s, "grpc/abc")
	assert.Contains(t, s, "300ms")
	assert.NotContains(t, s, "No subscribers")

	out.Reset()
	printStatus(&out, map[string]any{}, "tcp")
	assert.Contains(t, out.String(), "No subscribers connected.")
}

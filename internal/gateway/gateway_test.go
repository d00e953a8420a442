package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipwatch/internal/clip"
	"go.klb.dev/clipwatch/internal/event"
	"go.klb.dev/clipwatch/internal/grpcservice"
	"go.klb.dev/clipwatch/internal/hub"
	"go.klb.dev/clipwatch/internal/imagecodec"
)

func newServer(t *testing.T, token string) (*hub.Hub, *httptest.Server) {
	t.Helper()
	h, _, srv := newGateway(t, token)
	return h, srv
}

func newGateway(t *testing.T, token string) (*hub.Hub, *Gateway, *httptest.Server) {
	t.Helper()
	h := hub.New()
	g, err := New(grpcservice.New(h, token, grpcservice.Meta{Version: "gw-test", Backend: "fake"}))
	require.NoError(t, err)
	srv := httptest.NewServer(g)
	t.Cleanup(func() {
		g.Close()
		srv.Close()
	})
	return h, g, srv
}

func get(t *testing.T, url, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestStatusJSON(t *testing.T) {
	h, srv := newServer(t, "")
	h.Notify(event.Payload{Kind: event.KindImage, Content: ""})

	resp, body := get(t, srv.URL+"/v1/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "gw-test", doc["version"])
	assert.Equal(t, float64(1), doc["published"].(map[string]any)["image"])
}

func TestLatestText(t *testing.T) {
	h, srv := newServer(t, "")

	resp, _ := get(t, srv.URL+"/v1/latest/text", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/v1/latest/audio", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	h.Notify(event.Payload{Kind: event.KindText, Content: "héllo"})
	resp, body := get(t, srv.URL+"/v1/latest/text", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "héllo", string(body))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}

func TestLatestImageIsRawPNG(t *testing.T) {
	h, srv := newServer(t, "")
	enc, err := imagecodec.Encode(clip.RawImage{Width: 2, Height: 1, Pix: []byte{1, 2, 3, 4, 5, 6, 7, 8}})
	require.NoError(t, err)
	h.Notify(event.Payload{Kind: event.KindImage, Content: enc})

	resp, body := get(t, srv.URL+"/v1/latest/image", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	want, err := imagecodec.DecodePNG(enc)
	require.NoError(t, err)
	assert.Equal(t, want, body)
}

func TestTokenRequired(t *testing.T) {
	h, srv := newServer(t, "tok")
	h.Notify(event.Payload{Kind: event.KindText, Content: "secret"})

	resp, _ := get(t, srv.URL+"/v1/latest/text", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/v1/status", "bad")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := get(t, srv.URL+"/v1/latest/text", "tok")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "secret", string(body))

	_, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/events"), nil)
	require.Error(t, err)
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestEventsWebSocket(t *testing.T) {
	h, srv := newServer(t, "tok")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/events?token=tok&kind=text"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return len(h.Subscribers()) == 1 },
		5*time.Second, 5*time.Millisecond)

	h.Notify(event.Payload{Kind: event.KindImage, Content: "filtered"})
	h.Notify(event.Payload{Kind: event.KindText, Content: "first"})
	h.Notify(event.Payload{Kind: event.KindText, Content: "second"})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got event.Envelope
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, event.ClipboardChanged, got.Event)
	assert.Equal(t, event.Payload{Kind: event.KindText, Content: "first"}, got.Payload)

	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "second", got.Content)

	_ = conn.Close()
	require.Eventually(t, func() bool { return len(h.Subscribers()) == 0 },
		5*time.Second, 5*time.Millisecond)
}

func TestEventsReplay(t *testing.T) {
	h, srv := newServer(t, "")
	h.Notify(event.Payload{Kind: event.KindText, Content: "before"})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/events?replay=true"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got event.Envelope
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "before", got.Content)
}

func TestEventsBadKind(t *testing.T) {
	_, srv := newServer(t, "")
	resp, _ := get(t, srv.URL+"/v1/events?kind=rtf", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloseEndsEventStreams(t *testing.T) {
	h, g, srv := newGateway(t, "")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/events"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return len(h.Subscribers()) == 1 },
		5*time.Second, 5*time.Millisecond)

	g.Close()
	g.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool { return len(h.Subscribers()) == 0 },
		5*time.Second, 5*time.Millisecond)
}

// Package gateway exposes the EventService over HTTP/1.1 for consumers that
// do not speak gRPC:
//
//	GET /v1/status          daemon status as JSON
//	GET /v1/latest/{kind}   latest text (text/plain) or image (image/png)
//	GET /v1/events          WebSocket; one JSON text frame per clipboard change
//
// A token, when configured, is read from the Authorization header or, for
// WebSocket clients that cannot set headers, from the token query parameter.
package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/gorilla/websocket"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/clipwatch/internal/event"
	"go.klb.dev/clipwatch/internal/grpcservice"
	"go.klb.dev/clipwatch/internal/hub"
)

const (
	writeDeadline = 5 * time.Second
	eventsBuffer  = 16
)

// Gateway is an http.Handler serving the HTTP surface.
type Gateway struct {
	svc      *grpcservice.Service
	mux      *gwruntime.ServeMux
	upgrader websocket.Upgrader

	closeOnce sync.Once
	done      chan struct{}
}

// New builds the gateway routes around svc.
func New(svc *grpcservice.Service) (*Gateway, error) {
	g := &Gateway{
		svc:  svc,
		mux:  gwruntime.NewServeMux(),
		done: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// Display layers are usually served from another origin; access
			// control is the token.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	routes := []struct {
		path string
		h    gwruntime.HandlerFunc
	}{
		{"/v1/status", g.status},
		{"/v1/latest/{kind}", g.latest},
		{"/v1/events", g.events},
	}
	for _, rt := range routes {
		if err := g.mux.HandlePath(http.MethodGet, rt.path, rt.h); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

// Close ends every open event stream. http.Server.Close does not reach
// hijacked WebSocket connections, so servers call this on shutdown.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() { close(g.done) })
}

// Serve runs an HTTP/1.1 server for g on ln until ctx is done, then closes g.
func Serve(ctx context.Context, ln net.Listener, g *Gateway) error {
	srv := &http.Server{Handler: g, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		g.Close()
		_ = srv.Close()
	}()
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (g *Gateway) status(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := g.svc.Status(incoming(r), &emptypb.Empty{})
	g.reply(w, r, resp, err)
}

func (g *Gateway) latest(w http.ResponseWriter, r *http.Request, params map[string]string) {
	resp, err := g.svc.Latest(incoming(r), wrapperspb.String(params["kind"]))
	g.reply(w, r, resp, err)
}

func (g *Gateway) events(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	header := r.Header.Get("Authorization")
	if tok := q.Get("token"); tok != "" && header == "" {
		header = "Bearer " + tok
	}
	if err := g.svc.Authorize(header); err != nil {
		g.reply(w, r, nil, err)
		return
	}

	var kinds []event.Kind
	for _, s := range q["kind"] {
		k, err := event.ParseKind(s)
		if err != nil {
			g.reply(w, r, nil, status.Error(codes.InvalidArgument, err.Error()))
			return
		}
		kinds = append(kinds, k)
	}
	replay, _ := strconv.ParseBool(q.Get("replay"))

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	h := g.svc.Hub()
	sub := hub.NewChanSubscriber("ws", r.RemoteAddr, kinds, eventsBuffer)
	h.Register(sub, replay)
	defer func() {
		sub.Close()
		h.Unregister(sub)
	}()

	// Incoming frames are ignored; reading is how a close is noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-g.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeDeadline))
			return
		case <-r.Context().Done():
			return
		case p := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteJSON(event.Wrap(p)); err != nil {
				slog.Debug("websocket write failed", "subscriber", sub.ID(), "err", err)
				return
			}
		}
	}
}

// reply writes resp through the mux's marshaler (HttpBody is written raw)
// or err as a grpc-gateway error document.
func (g *Gateway) reply(w http.ResponseWriter, r *http.Request, resp proto.Message, err error) {
	_, out := gwruntime.MarshalerForRequest(g.mux, r)
	if err != nil {
		gwruntime.HTTPError(r.Context(), g.mux, out, w, r, err)
		return
	}
	buf, err := out.Marshal(resp)
	if err != nil {
		gwruntime.HTTPError(r.Context(), g.mux, out, w, r, status.Error(codes.Internal, err.Error()))
		return
	}
	w.Header().Set("Content-Type", out.ContentType(resp))
	_, _ = w.Write(buf)
}

// incoming forwards the Authorization header as gRPC metadata so the
// service's own auth applies.
func incoming(r *http.Request) context.Context {
	md := metadata.MD{}
	if v := r.Header.Get("Authorization"); v != "" {
		md.Set("authorization", v)
	}
	return metadata.NewIncomingContext(r.Context(), md)
}

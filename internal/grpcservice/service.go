// Package grpcservice implements the EventService gRPC server and client.
package grpcservice

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/clipwatch/internal/event"
	"go.klb.dev/clipwatch/internal/hub"
	"go.klb.dev/clipwatch/internal/imagecodec"
)

// watchBuffer is the per-stream backlog before payloads are dropped.
const watchBuffer = 16

// Meta is static daemon information reported by Status.
type Meta struct {
	Version   string
	Backend   string
	Interval  time.Duration
	StartedAt time.Time
}

// Service implements Server.
type Service struct {
	h     *hub.Hub
	token string // empty = no auth
	meta  Meta
}

// New returns a Service backed by h. token may be empty to disable auth.
func New(h *hub.Hub, token string, meta Meta) *Service {
	return &Service{h: h, token: token, meta: meta}
}

// Watch implements Server. The request may carry "kinds" (list of "text" /
// "image", empty = all) and "replay" (deliver the latest payloads first).
func (s *Service) Watch(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	if err := s.auth(ctx); err != nil {
		return err
	}

	kinds, replay, err := parseWatchRequest(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	sub := hub.NewChanSubscriber("grpc", addrFromCtx(ctx), kinds, watchBuffer)
	s.h.Register(sub, replay)
	defer func() {
		sub.Close()
		s.h.Unregister(sub)
	}()

	slog.Debug("watch started", "subscriber", sub.ID(), "kinds", kinds, "replay", replay)

	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-sub.C():
			msg, err := PayloadToStruct(p)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

// Latest implements Server. Text is returned as text/plain, images as the
// decoded PNG bytes.
func (s *Service) Latest(ctx context.Context, req *wrapperspb.StringValue) (*httpbody.HttpBody, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	kind, err := event.ParseKind(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	p, ok := s.h.Latest(kind)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no %s seen yet", kind)
	}
	return PayloadBody(p)
}

// Status implements Server.
func (s *Service) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(s.Report())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

// Report builds the status document shared by the gRPC and HTTP surfaces.
func (s *Service) Report() map[string]any {
	stats := s.h.Stats()

	subs := make([]any, 0, stats.Subscribers)
	for _, info := range s.h.Subscribers() {
		accepts := make([]any, len(info.Accepts))
		for i, k := range info.Accepts {
			accepts[i] = string(k)
		}
		sub := map[string]any{
			"id":           info.ID,
			"transport":    info.Transport,
			"addr":         info.Addr,
			"accepts":      accepts,
			"connected_at": info.ConnectedAt.UTC().Format(time.RFC3339),
			"dropped":      float64(info.Dropped),
		}
		if !info.LastSent.IsZero() {
			sub["last_sent"] = info.LastSent.UTC().Format(time.RFC3339)
		}
		subs = append(subs, sub)
	}

	out := map[string]any{
		"event":       event.ClipboardChanged,
		"version":     s.meta.Version,
		"backend":     s.meta.Backend,
		"interval_ms": float64(s.meta.Interval.Milliseconds()),
		"published": map[string]any{
			string(event.KindText):  float64(stats.Published[event.KindText]),
			string(event.KindImage): float64(stats.Published[event.KindImage]),
		},
		"subscribers": subs,
	}
	if !s.meta.StartedAt.IsZero() {
		out["started_at"] = s.meta.StartedAt.UTC().Format(time.RFC3339)
	}
	if !stats.LastChange.IsZero() {
		out["last_change"] = stats.LastChange.UTC().Format(time.RFC3339)
	}
	return out
}

// PayloadBody renders p as an HTTP body.
func PayloadBody(p event.Payload) (*httpbody.HttpBody, error) {
	if p.Kind != event.KindImage {
		return &httpbody.HttpBody{ContentType: p.Kind.MIME(), Data: []byte(p.Content)}, nil
	}
	data, err := imagecodec.DecodePNG(p.Content)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &httpbody.HttpBody{ContentType: p.Kind.MIME(), Data: data}, nil
}

// auth validates the bearer token in ctx metadata. Skipped when s.token is empty.
func (s *Service) auth(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	return s.Authorize(vals[0])
}

// Authorize checks an Authorization header value against the configured
// token. Any value passes when no token is configured.
func (s *Service) Authorize(header string) error {
	if s.token == "" {
		return nil
	}
	if strings.TrimPrefix(header, "Bearer ") != s.token {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

// Hub returns the hub the service reads from.
func (s *Service) Hub() *hub.Hub { return s.h }

func addrFromCtx(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

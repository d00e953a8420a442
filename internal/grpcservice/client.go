package grpcservice

import (
	"context"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/clipwatch/internal/event"
)

// Client is the client API for EventService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// WatchStream yields payloads from a Watch call.
type WatchStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next payload. It returns io.EOF when the server ends
// the stream.
func (w *WatchStream) Recv() (event.Payload, error) {
	msg := new(structpb.Struct)
	if err := w.stream.RecvMsg(msg); err != nil {
		return event.Payload{}, err
	}
	return PayloadFromStruct(msg)
}

// Watch subscribes to clipboard changes of the given kinds (empty = all).
// The stream ends when ctx is cancelled.
func (c *Client) Watch(ctx context.Context, kinds []event.Kind, replay bool, opts ...grpc.CallOption) (*WatchStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], WatchMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(WatchRequest(kinds, replay)); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchStream{stream: stream}, nil
}

// Latest fetches the most recent payload of kind as a raw body.
func (c *Client) Latest(ctx context.Context, kind event.Kind, opts ...grpc.CallOption) (*httpbody.HttpBody, error) {
	out := new(httpbody.HttpBody)
	if err := c.cc.Invoke(ctx, LatestMethod, wrapperspb.String(string(kind)), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Status fetches the daemon status document.
func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, StatusMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

package grpcservice

import (
	"context"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service is declared by hand over protobuf well-known types, so no
// generated code is needed on either side:
//
//	service EventService {
//	  rpc Watch(google.protobuf.Struct) returns (stream google.protobuf.Struct);
//	  rpc Latest(google.protobuf.StringValue) returns (google.api.HttpBody);
//	  rpc Status(google.protobuf.Empty) returns (google.protobuf.Struct);
//	}
const (
	ServiceName  = "clipwatch.v1.EventService"
	WatchMethod  = "/" + ServiceName + "/Watch"
	LatestMethod = "/" + ServiceName + "/Latest"
	StatusMethod = "/" + ServiceName + "/Status"
)

// Server is the server API for EventService.
type Server interface {
	Watch(*structpb.Struct, grpc.ServerStream) error
	Latest(context.Context, *wrapperspb.StringValue) (*httpbody.HttpBody, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes EventService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Latest", Handler: latestHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "clipwatch/v1/events.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(Server).Watch(req, stream)
}

func latestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Latest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LatestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Latest(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Status(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

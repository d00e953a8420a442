package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"go.klb.dev/clipwatch/internal/event"
	"go.klb.dev/clipwatch/internal/ipc"
	"go.klb.dev/clipwatch/internal/tlsconf"
)

// errNoDaemon is returned when no --server is given and nothing listens on
// the IPC socket.
var errNoDaemon = errors.New("no clipwatch daemon running (start one with \"clipwatch watch\")")

// dialDaemon connects to the daemon: over TCP+TLS when --server is set,
// otherwise over the local IPC socket. It also returns a description of the
// transport for status output.
func dialDaemon(v *viper.Viper) (*grpc.ClientConn, string, error) {
	if addr := v.GetString("server"); addr != "" {
		conn, err := dialServer(addr, v.GetString("token"))
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("tcp (%s)", addr), nil
	}
	if !ipc.IsRunning() {
		return nil, "", errNoDaemon
	}
	conn, err := ipc.Dial()
	if err != nil {
		return nil, "", fmt.Errorf("dial ipc: %w", err)
	}
	return conn, fmt.Sprintf("ipc (%s)", ipc.SocketPath()), nil
}

// dialServer returns a TLS connection whose server key is pinned by token.
func dialServer(addr, token string) (*grpc.ClientConn, error) {
	creds, err := tlsconf.Derive(token)
	if err != nil {
		return nil, fmt.Errorf("tls credentials: %w", err)
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds.TransportCredentials())}
	if token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearer(token)))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// bearer sends the token as an Authorization header on every RPC.
type bearer string

func (b bearer) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(b)}, nil
}

func (bearer) RequireTransportSecurity() bool { return true }

// parseKinds validates --kind values; empty means all kinds.
func parseKinds(vals []string) ([]event.Kind, error) {
	var kinds []event.Kind
	for _, s := range vals {
		k, err := event.ParseKind(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

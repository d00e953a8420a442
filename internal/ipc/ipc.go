// Package ipc provides the local channel the CLI tools (tail, latest,
// status) use to reach a running clipwatch daemon.
//
// The channel is plain gRPC over a Unix domain socket, or a named pipe on
// Windows, serving the same EventService as the optional TCP listener. Local
// access is restricted by the OS, so no token is required.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux:   $XDG_RUNTIME_DIR/clipwatch.sock, else $TMPDIR/clipwatch.sock
//   - macOS:   $TMPDIR/clipwatch.sock
//   - Windows: \\.\pipe\clipwatch
//
// $CLIPWATCH_SOCKET overrides all of them.
func SocketPath() string {
	if s := os.Getenv("CLIPWATCH_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// ErrAlreadyRunning is returned by Listen when another daemon answers on the
// IPC path.
var ErrAlreadyRunning = errors.New("ipc: another clipwatch daemon is listening")

// Listen creates a listener on the IPC path, removing any stale socket file
// left by a crashed daemon first. A live daemon's socket is left alone.
func Listen() (net.Listener, error) {
	path := SocketPath()
	if IsRunning() {
		return nil, fmt.Errorf("%w on %s", ErrAlreadyRunning, path)
	}
	return listenIPC(path)
}

// IsRunning reports whether a daemon appears to be listening. It does a
// cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := dialIPC(ctx, SocketPath())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Dial returns a gRPC client connection over the IPC channel.
func Dial(opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	path := SocketPath()
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return dialIPC(ctx, path)
		}),
	}, opts...)
	return grpc.NewClient("passthrough:///clipwatch", opts...)
}

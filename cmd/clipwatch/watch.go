package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"go.klb.dev/clipwatch/internal/event"
	"go.klb.dev/clipwatch/internal/grpcservice"
	"go.klb.dev/clipwatch/internal/hub"
	"go.klb.dev/clipwatch/internal/imagecodec"
	"go.klb.dev/clipwatch/internal/ipc"
	"go.klb.dev/clipwatch/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the clipboard and publish changes",
		Long: `Starts the clipboard watcher. Every 300ms the clipboard text and image are
read; each distinct change is published once as a "clipboard-changed" event
to all subscribers.

Subscribers connect through the local IPC socket (always on unless --no-ipc)
or through --listen, which serves gRPC and the HTTP/WebSocket gateway on one
TLS port.

Precedence (lowest → highest): defaults → config file → CLIPWATCH_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("listen", "", "TCP address for gRPC + HTTP gateway, e.g. 127.0.0.1:8753 (empty = off)")
	f.String("token", "", "shared secret for --listen (empty = no auth)")
	f.Bool("no-ipc", false, "do not serve the local IPC socket")
	f.Bool("quiet", false, "do not log each clipboard change")
	f.Int("png-compression", int(png.DefaultCompression), "PNG compression: 0 default, -1 none, -2 best speed, -3 best size")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runWatch(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen := v.GetString("listen")
	token := v.GetString("token")

	h := hub.New()
	sink := event.Sink(h)
	if !v.GetBool("quiet") {
		sink = event.Tee(hub.LogSink, h)
	}

	g, gctx := errgroup.WithContext(ctx)

	w, err := watcher.Start(gctx, sink, watcher.WithCodec(&imagecodec.Codec{
		Compression: png.CompressionLevel(v.GetInt("png-compression")),
	}))
	if err != nil {
		return err
	}

	slog.Info("clipwatch starting",
		"version", Version,
		"backend", w.Backend(),
		"listen", listen,
		"auth", token != "",
	)

	meta := grpcservice.Meta{
		Version:   Version,
		Backend:   w.Backend(),
		Interval:  w.Interval(),
		StartedAt: time.Now(),
	}

	if !v.GetBool("no-ipc") {
		ln, err := ipc.Listen()
		switch {
		case errors.Is(err, ipc.ErrAlreadyRunning):
			return err
		case err != nil:
			slog.Warn("IPC socket unavailable", "err", err)
		default:
			slog.Info("IPC socket listening", "path", ipc.SocketPath())
			srv := grpc.NewServer()
			grpcservice.Register(srv, grpcservice.New(h, "", meta))
			g.Go(func() error {
				go func() {
					<-gctx.Done()
					srv.Stop()
				}()
				if err := srv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
					return fmt.Errorf("ipc: %w", err)
				}
				return nil
			})
		}
	}

	if listen != "" {
		svc := grpcservice.New(h, token, meta)
		g.Go(func() error { return serveTCP(gctx, listen, token, svc) })
	}

	g.Go(func() error {
		<-w.Done()
		return nil
	})

	err = g.Wait()
	slog.Info("clipwatch stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/soheilhy/cmux"
	"golang.org/x/net/http2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"go.klb.dev/clipwatch/internal/gateway"
	"go.klb.dev/clipwatch/internal/grpcservice"
	"go.klb.dev/clipwatch/internal/tlsconf"
)

// serveTCP listens on addr and hands the listener to serveListener.
func serveTCP(ctx context.Context, addr, token string, svc *grpcservice.Service) error {
	raw, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return serveListener(ctx, raw, token, svc)
}

// serveListener serves gRPC and the HTTP gateway on one TLS port until ctx
// is done. gRPC is told apart from HTTP/2 gateway traffic by content-type;
// everything else is HTTP/1.1 (including WebSocket upgrades). raw is closed
// on return.
func serveListener(ctx context.Context, raw net.Listener, token string, svc *grpcservice.Service) error {
	creds, err := tlsconf.Derive(token)
	if err != nil {
		_ = raw.Close()
		return fmt.Errorf("tls credentials: %w", err)
	}
	gw, err := gateway.New(svc)
	if err != nil {
		_ = raw.Close()
		return fmt.Errorf("gateway: %w", err)
	}
	slog.Info("listening", "addr", raw.Addr(), "auth", token != "")

	m := cmux.New(tls.NewListener(raw, creds.Server))
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	h2L := m.Match(cmux.HTTP2())
	httpL := m.Match(cmux.Any())

	grpcSrv := grpc.NewServer()
	grpcservice.Register(grpcSrv, svc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := grpcSrv.Serve(grpcL); err != nil && !isClosed(err) {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error { return serveH2(h2L, gw) })
	g.Go(func() error { return gateway.Serve(gctx, httpL, gw) })
	g.Go(func() error {
		if err := m.Serve(); err != nil && !isClosed(err) {
			return fmt.Errorf("cmux: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		grpcSrv.Stop()
		m.Close()
		return nil
	})
	return g.Wait()
}

// serveH2 answers non-gRPC HTTP/2 connections with the gateway.
func serveH2(ln net.Listener, h http.Handler) error {
	srv := &http2.Server{}
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("h2: %w", err)
		}
		go srv.ServeConn(conn, &http2.ServeConnOpts{Handler: h})
	}
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, cmux.ErrListenerClosed) ||
		errors.Is(err, cmux.ErrServerClosed) ||
		errors.Is(err, grpc.ErrServerStopped)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipwatch/internal/event"
	"go.klb.dev/clipwatch/internal/grpcservice"
)

func newTailCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print clipboard-changed events as JSON lines",
		Long: `Subscribes to a running daemon and writes one JSON object per clipboard
change to stdout:

  {"event":"clipboard-changed","kind":"text","content":"hello"}

Image content is a base64-encoded PNG.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runTail(cmd, v) },
	}

	f := cmd.Flags()
	f.StringSlice("kind", nil, "only these kinds: text, image (repeatable; default all)")
	f.Bool("replay", false, "print the latest text and image first")
	f.Int("count", 0, "exit after this many events (0 = run until interrupted)")
	addRemoteFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runTail(cmd *cobra.Command, v *viper.Viper) error {
	kinds, err := parseKinds(v.GetStringSlice("kind"))
	if err != nil {
		return err
	}
	count := v.GetInt("count")

	conn, _, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stream, err := grpcservice.NewClient(conn).Watch(ctx, kinds, v.GetBool("replay"))
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for n := 0; count == 0 || n < count; n++ {
		p, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		if err := enc.Encode(event.Wrap(p)); err != nil {
			return err
		}
	}
	return nil
}

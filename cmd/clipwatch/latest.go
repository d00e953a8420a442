package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipwatch/internal/event"
	"go.klb.dev/clipwatch/internal/grpcservice"
)

func newLatestCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "latest [text|image]",
		Short: "Print the most recently published clipboard content",
		Long: `Fetches the latest payload of the given kind (default text) from a running
daemon. Text is written as-is; images are written as PNG, to --out if set.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(event.KindText), string(event.KindImage)},
		PreRunE:   func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := event.KindText
			if len(args) == 1 {
				k, err := event.ParseKind(args[0])
				if err != nil {
					return err
				}
				kind = k
			}
			return runLatest(cmd, v, kind)
		},
	}

	cmd.Flags().StringP("out", "o", "", "write to this file instead of stdout")
	addRemoteFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runLatest(cmd *cobra.Command, v *viper.Viper, kind event.Kind) error {
	conn, _, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	body, err := grpcservice.NewClient(conn).Latest(ctx, kind)
	if err != nil {
		return fmt.Errorf("latest: %w", err)
	}

	if out := v.GetString("out"); out != "" {
		return os.WriteFile(out, body.GetData(), 0o644)
	}
	_, err = cmd.OutOrStdout().Write(body.GetData())
	return err
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipwatch/internal/grpcservice"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and subscribers",
		Long: `Displays the running daemon's backend, publish counters and connected
subscribers.

The request goes through the local IPC socket unless --server targets a
daemon over TCP.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addRemoteFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	conn, transport, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := grpcservice.NewClient(conn).Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	doc := st.AsMap()
	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Fprintln(out, string(enc))
		return nil
	}

	printStatus(out, doc, transport)
	return nil
}

func printStatus(out io.Writer, doc map[string]any, transport string) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Transport:\t%s\n", transport)
	fmt.Fprintf(w, "Version:\t%v\n", doc["version"])
	fmt.Fprintf(w, "Backend:\t%v\n", doc["backend"])
	fmt.Fprintf(w, "Interval:\t%vms\n", doc["interval_ms"])
	if s, ok := doc["started_at"].(string); ok {
		fmt.Fprintf(w, "Started:\t%s (%s)\n", s, strAge(s))
	}
	if pub, ok := doc["published"].(map[string]any); ok {
		fmt.Fprintf(w, "Published:\ttext=%v image=%v\n", pub["text"], pub["image"])
	}
	fmt.Fprintf(w, "Last change:\t%s\n", strAge(str(doc["last_change"])))
	fmt.Fprintln(w)
	_ = w.Flush()

	subs, _ := doc["subscribers"].([]any)
	if len(subs) == 0 {
		fmt.Fprintln(out, "No subscribers connected.")
		return
	}

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tADDR\tACCEPTS\tCONNECTED\tLAST SENT\tDROPPED\n")
	_, _ = fmt.Fprintf(tw, "--\t----\t-------\t---------\t---------\t-------\n")
	for _, raw := range subs {
		s, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		accepts := "*"
		if list, _ := s["accepts"].([]any); len(list) > 0 {
			parts := make([]string, len(list))
			for i, k := range list {
				parts[i] = str(k)
			}
			accepts = strings.Join(parts, ",")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\n",
			str(s["id"]), str(s["addr"]), accepts,
			strAge(str(s["connected_at"])), strAge(str(s["last_sent"])), s["dropped"],
		)
	}
	_ = tw.Flush()
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// strAge renders an RFC 3339 timestamp as a relative age, or "-".
func strAge(s string) string {
	if s == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return fmtAge(t)
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return t.Format("15:04:05")
}

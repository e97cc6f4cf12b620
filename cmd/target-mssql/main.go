// Command target-mssql loads a message stream from stdin (or a file) into
// Microsoft SQL Server.
//
// Usage:
//
//	tap-something | target-mssql --config config.json > state.jsonl
//	target-mssql --config config.json --input messages.msgpack --input-format msgpack
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	target "github.com/hugr-lab/target-mssql"
	"github.com/hugr-lab/target-mssql/internal/recovery"
	"github.com/hugr-lab/target-mssql/message"
)

// options holds the command flags.
type options struct {
	Config      string
	Input       string
	InputFormat string
	MetricsAddr string
	Verbose     bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "target-mssql:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "target-mssql",
		Short: "Load SCHEMA/RECORD/BATCH/STATE messages into SQL Server",
		Long: `Load a message stream into Microsoft SQL Server.

Messages are read from stdin, or from --input, one JSON document per line
(--input-format jsonl) or as a MessagePack stream (--input-format msgpack).
STATE values are written to stdout once the records before them are loaded.

Example:
  tap-postgres | target-mssql --config config.json > state.jsonl
  target-mssql --config config.json --input dump.msgpack --input-format msgpack`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to the JSON config file (required)")
	cmd.Flags().StringVar(&opts.Input, "input", "", "read messages from this file instead of stdin")
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "jsonl", "message encoding (jsonl|msgpack)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := target.LoadConfig(opts.Config)
	if err != nil {
		return err
	}
	if opts.Verbose {
		level := slog.LevelDebug
		cfg.LogLevel = &level
	}

	var in io.Reader = cmd.InOrStdin()
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	var reader message.Reader
	switch opts.InputFormat {
	case "jsonl", "":
		reader = message.NewJSONReader(in)
	case "msgpack":
		reader = message.NewMsgpackReader(in)
	default:
		return fmt.Errorf("invalid input format %q: must be jsonl or msgpack", opts.InputFormat)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	if opts.MetricsAddr != "" {
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go recovery.Recover(slog.Default(), "metrics server", func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		})
		defer srv.Shutdown(context.Background())
	}

	t, err := target.Open(ctx, *cfg, target.Options{
		Registerer:  reg,
		StateOutput: cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := t.Close(); err != nil {
			slog.Error("error closing connection", "error", err)
		}
	}()

	return t.Run(ctx, reader)
}

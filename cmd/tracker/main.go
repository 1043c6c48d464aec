package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createReplayCommand(globalFlags),
		createMetaCommand(globalFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "tracker",
		Short: "Behavioral telemetry collector",
		Long: `Tracker captures page interaction signals, detects hesitation,
and ships batched records to an analytics backend.

Examples:
  tracker serve --config=tracker.toml
  tracker replay --file=session.jsonl --speed=4
  tracker replay --file=session.jsonl --api-url=http://127.0.0.1:8089/tracker
  tracker meta --config=tracker.toml`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Run a collector behind the HTTP signal bridge",
		Long: `Start a collector for the configured page and accept raw signals over HTTP.
SIGINT or SIGTERM unloads the page, flushing what is buffered.

Examples:
  tracker serve --config=tracker.toml
  tracker serve tracker.toml --listen=:8089 --metrics-listen=:9090`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			if len(args) > 0 {
				serveFlags.ConfigPath = args[0]
			}
			return runServe(cmd.Context(), serveFlags, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&serveFlags.Listen, "listen", "", "override [server].listen")
	cmd.Flags().StringVar(&serveFlags.BasePath, "base-path", "", "override [server].base_path")
	cmd.Flags().StringVar(&serveFlags.MetricsListen, "metrics-listen", "", "serve /metrics on this address")
	return cmd
}

func createReplayCommand(globalFlags *GlobalFlags) *cobra.Command {
	replayFlags := &ReplayFlags{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded signals and unload",
		Long: `Feed a JSON lines recording into a collector. Each line holds
{"at_ms": <offset>, "signal": {...}}. Without --api-url the signals go to an
in-process collector built from the config; with it they are forwarded to a
running "tracker serve".

Examples:
  tracker replay --file=session.jsonl
  tracker replay --file=session.jsonl --speed=0
  tracker replay --file=session.jsonl --api-url=http://127.0.0.1:8089/tracker`,
		RunE: func(cmd *cobra.Command, args []string) error {
			replayFlags.ConfigPath = globalFlags.ConfigPath
			return runReplay(cmd.Context(), replayFlags, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&replayFlags.File, "file", "", "recording to replay (required)")
	cmd.Flags().Float64Var(&replayFlags.Speed, "speed", 1, "playback speed; 0 replays without waiting")
	cmd.Flags().StringVar(&replayFlags.APIUrl, "api-url", "", "signal bridge base URL")
	cmd.Flags().DurationVar(&replayFlags.APITimeout, "api-timeout", 10*time.Second, "signal bridge request timeout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func createMetaCommand(globalFlags *GlobalFlags) *cobra.Command {
	metaFlags := &MetaFlags{}
	return &cobra.Command{
		Use:   "meta",
		Short: "Send session metadata once",
		RunE: func(cmd *cobra.Command, args []string) error {
			metaFlags.ConfigPath = globalFlags.ConfigPath
			return runMeta(cmd.Context(), metaFlags, cmd.OutOrStdout())
		},
	}
}

package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// BuildVersion is set at link time with -ldflags "-X main.BuildVersion=...".
var BuildVersion = "n/a"

const (
	flagConfig      = "config"
	flagAddr        = "addr"
	flagUpstream    = "upstream"
	flagConcurrency = "concurrency"
	flagRetries     = "retries"
	flagLogLevel    = "log-level"
	flagLogPretty   = "log-pretty"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	cmd := &cobra.Command{
		Use:   "search-api",
		Short: "Aggregated music search over the upstream catalog",
		Long: `search-api looks up a keyword in the upstream catalog, fetches the detail
record of every candidate with bounded concurrency and per-item retries,
and answers with one normalized list. Running without a sub-command starts
the server.`,
		RunE:              serve.RunE,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	registerServeFlags(cmd)
	cmd.AddCommand(serve)
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the search-api version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version := BuildVersion
			goVersion := "unknown"
			if info, ok := debug.ReadBuildInfo(); ok {
				goVersion = info.GoVersion
				if version == "n/a" && info.Main.Version != "" {
					version = info.Main.Version
				}
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "search-api %s (%s)\n", version, goVersion)
			return err
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "fishlens",
		Short: "fishlens computes fish-tank dashboard aggregates from detection measurements.",
		Long: `fishlens reads Measurements, Detections and Frames from a relational store,
joins them by id, filters by frame date and serves the dashboard series and
summaries over HTTP.

Settings come from an optional YAML file (--config) and FISHLENS_* environment
variables, e.g. FISHLENS_STORE_DRIVER=postgrest.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the configuration file")

	cmd.AddCommand(
		serveCmd(&configFile),
		reportCmd(&configFile),
		migrateCmd(&configFile),
		seedCmd(&configFile),
	)
	return cmd
}

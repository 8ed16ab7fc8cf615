package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Projects, Devices, Frames, Detections and Measurements tables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configFile)
			if err != nil {
				return err
			}
			defer a.close()

			db, err := a.requireSQL()
			if err != nil {
				return err
			}
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("Schema is up to date", zap.String("driver", a.cfg.Store.Driver))
			return nil
		},
	}
}

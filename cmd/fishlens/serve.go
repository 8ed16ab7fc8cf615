package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sanspareilsmyn/fishlens/internal/api"
	"github.com/sanspareilsmyn/fishlens/internal/config"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard aggregates over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configFile)
			if err != nil {
				return err
			}
			defer a.close()
			return runServer(cmd.Context(), a)
		},
	}
}

func runServer(parent context.Context, a *app) error {
	sugar := a.logger.Sugar()

	// A fresh embedded database has no tables yet.
	if a.cfg.Store.Driver == config.DriverSQLite {
		if err := a.sql.Migrate(parent); err != nil {
			return err
		}
	}

	svc, err := a.service()
	if err != nil {
		return err
	}
	server := api.NewServer(svc, a.logger.Named("api"))

	// Handle Graceful Shutdown
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		select {
		case sig := <-signals:
			sugar.Infow("Received signal, initiating shutdown...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(a.cfg.HTTP.Addr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		runErr = server.Shutdown(shutdownCtx)
	case runErr = <-serveErr:
	}

	finalLogLevel := zapcore.InfoLevel
	shutdownReason := "gracefully"
	finalErrorField := zap.Skip()
	if runErr != nil {
		shutdownReason = "due to error"
		finalLogLevel = zapcore.ErrorLevel
		finalErrorField = zap.Error(runErr)
	}
	a.logger.Log(finalLogLevel, "Server shutdown "+shutdownReason+".",
		zap.String("reason", shutdownReason),
		finalErrorField,
	)
	return runErr
}

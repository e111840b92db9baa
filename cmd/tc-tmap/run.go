package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/logger"
	"github.com/shiwa/timecard-mini/tc-tmap/pkg/tmapsync"
)

func newRunCmd(opts *options) *cobra.Command {
	var port, protocol string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the correlation source and time map filter until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Device.Port = port
			}
			if protocol != "" {
				cfg.Source.Protocol = protocol
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			// по SIGINT/SIGTERM контекст отменяется, источник и метрики корректно останавливаются
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err = tmapsync.RunDaemon(ctx, cfg, opts.quiet)
			if errors.Is(err, context.Canceled) {
				logger.Info("завершение")
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "последовательный порт (переопределяет config)")
	cmd.Flags().StringVar(&protocol, "protocol", "", "источник: serial или emulated (переопределяет config)")
	return cmd
}

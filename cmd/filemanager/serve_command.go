package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"filemanager/internal/logging"
	"filemanager/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local review server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				if _, _, err := net.SplitHostPort(bind); err != nil {
					return fmt.Errorf("--bind %q: %w", bind, err)
				}
				cfg.Server.Bind = bind
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			executor, err := ctx.executor(cmd, logger)
			if err != nil {
				return err
			}
			j, err := ctx.openJournal()
			if err != nil {
				return err
			}
			var reader server.JournalReader
			if j != nil {
				reader = j
			}
			srv := server.New(cfg, executor, reader, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = srv.Run(runCtx, func(addr net.Addr) {
				fmt.Fprintf(cmd.OutOrStdout(), "Review server listening on http://%s\n", addr)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}

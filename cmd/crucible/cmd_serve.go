package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crucible-sim/crucible/internal/webapi"
	"github.com/crucible-sim/crucible/internal/webserver"
)

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the simulation HTTP API server",
		Long: `Start the simulation HTTP API server.

The server exposes scenario generation, simulation lifecycle, and transcript
analysis endpoints under /api/. Configuration comes from .crucible.yaml
(found by walking up from the working directory) and the ` + "`GEMINI_API_KEY`" + `
environment variable, which must be set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.Close() //nolint:errcheck

			if port != 0 {
				d.cfg.Server.Port = port
			}

			handlers := webapi.NewHandlers(d.generator, d.engine, d.analyzer, d.store)
			srv := webserver.New(webserver.Config{
				Port:        d.cfg.Server.Port,
				CORSOrigins: d.cfg.Server.CORSOrigins,
				Logger:      slog.Default(),
			}, handlers)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")

	return cmd
}

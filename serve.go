package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cvurl/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction HTTP service",
		Long: `serve exposes extraction over HTTP:

  POST /, POST /extract   {"url": "...", "mode": "auto|fast|stealth"}
  GET /, GET /health      capability diagnostics
  GET /metrics            Prometheus metrics`,
		Args:         cobra.NoArgs,
		RunE:         runServe,
		SilenceUsage: true,
	}
	cmd.Flags().Int("port", 8080, "Listen port")
	cmd.Flags().Bool("debug", false, "Gin debug mode")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	srv := server.New(server.Config{
		Port:         a.cfg.Server.Port,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		Debug:        a.cfg.Server.Debug,
		Version:      version,
	}, a.orchestrator(), a.caps, a.metrics.Handler(), a.log)

	if err := srv.Run(cmd.Context()); err != nil {
		a.log.Error("Server stopped", zap.Error(err))
		return err
	}
	return nil
}

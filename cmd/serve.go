package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-scorer/internal/monitoring"
	"github.com/sells-group/lead-scorer/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrichment webhook server",
	Long:  "Serves POST /webhook/enriched, which scores a lead right after its enrichment completes, plus breaker controls and a health status. Runs the alert checker alongside.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initScorer(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		collector := monitoring.NewCollector(env.Store, env.Orchestrator)
		checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
		srv := server.New(env.Orchestrator, collector, server.Options{
			AutoTrigger:   cfg.Scoring.AutoTrigger,
			CORSOrigins:   cfg.Server.CORSOrigins,
			LookbackHours: cfg.Monitoring.LookbackWindowHours,
		})

		if !cfg.Scoring.AutoTrigger {
			zap.L().Warn("auto-trigger disabled, webhook deliveries will be skipped")
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run(gctx, fmt.Sprintf(":%d", cfg.Server.Port))
		})
		g.Go(func() error {
			return checker.Run(gctx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

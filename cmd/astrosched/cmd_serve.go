package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appLog "astrosched/internal/log"
	"astrosched/internal/pipeline"
	"astrosched/internal/suntime"
	"astrosched/internal/web"
)

const defaultServeConfig = "astrosched.yaml"

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		listen string
		year   int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the document compiled and serve it over HTTP",
		Long: `Compile on start, again on the refresh cron spec and whenever the config
file or a workbook changes. The latest document is written to the configured
output and served at /schedule.xml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if root.configPath == "" {
				root.configPath = defaultServeConfig
			}
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			appLog.Info("astrosched starting", "version", version, "config", root.configPath)

			refresher := web.NewRefresher(root.configPath, suntime.NewAstroSource(24*time.Hour),
				pipeline.Options{Year: year})
			if err := refresher.Start(ctx); err != nil {
				return err
			}
			defer refresher.Stop()

			srv := web.NewServer(cfg, refresher)
			if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			appLog.Info("astrosched exiting")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().IntVar(&year, "year", 0, "Override the reference year of every schedule")
	return cmd
}

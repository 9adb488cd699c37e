// Command dashboard serves the bike sharing dashboard over HTTP.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bikepulse/internal/app"
	"bikepulse/internal/config"
	"bikepulse/internal/infrastructure"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configFile  string
		openBrowser bool
		port        int
	)

	cmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Serve the bike sharing dashboard",
		Version:       app.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				cfg *config.Config
				err error
			)
			if configFile != "" {
				cfg, err = config.LoadFrom(configFile)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer infrastructure.CloseLogFile()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			application.OpenBrowser = openBrowser
			return application.Run()
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file (default: search config.yaml)")
	cmd.Flags().BoolVar(&openBrowser, "open", false, "open the dashboard in a browser once it is up")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "listen port")
	return cmd
}

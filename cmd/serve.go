package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/gestation-osc/internal/config"
	"github.com/bnema/gestation-osc/internal/logging"
	"github.com/bnema/gestation-osc/internal/version"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OSC relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			logCfg := logging.DefaultConfig(logging.ProfileRuntime)
			logging.ApplyEnvOverrides(&logCfg, os.Getenv)
			if logLevel != "" {
				level, ok := logging.ParseLevel(logLevel)
				if !ok {
					return fmt.Errorf("invalid log level %q", logLevel)
				}
				logCfg.Level = level
			}
			logger := logging.New("gestation", cmd.ErrOrStderr(), logCfg)

			d, err := wireDaemon(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info().
				Str("version", version.Version).
				Str("mode", cfg.Transport.Mode).
				Str("store", cfg.Store.Path).
				Msg("starting relay")

			if err := d.run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("relay stopped: %w", err)
			}
			logger.Info().Msg("relay stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("mode", config.ModeDirect, "connection mode: direct or managed")
	flags.String("host", "127.0.0.1", "address to bind the OSC receiver to")
	flags.Int("port", 9001, "OSC receive port in direct mode (0 picks one)")
	flags.String("remote", "127.0.0.1:9000", "peer OSC control endpoint in direct mode")
	flags.Bool("discovery", true, "find the peer over mDNS in direct mode")
	flags.String("metadata-url", "", "fixed OSCQuery base URL of the peer")
	flags.String("store", config.DriverJSON, "save store driver: json or sqlite")
	flags.String("store-path", "", "save store location")
	flags.Bool("api", true, "serve the local control API")
	flags.String("api-addr", "127.0.0.1:9050", "control API listen address")
	flags.Duration("broadcast-interval", 5*time.Second, "progress broadcast interval")
	flags.StringVar(&logLevel, "log-level", "", "log level (overrides GESTATION_LOG_LEVEL)")

	return cmd
}


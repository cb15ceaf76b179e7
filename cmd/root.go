package cmd

import (
	"context"
	"os"

	"github.com/bnema/gestation-osc/internal/adapters/httpapi"
	"github.com/bnema/gestation-osc/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	envFile    string
	apiURL     string
	getenv     func(string) (string, bool)
}

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{getenv: os.LookupEnv}

	rootCmd := &cobra.Command{
		Use:           "gestation",
		Short:         "Gestation OSC relay for VRChat avatars",
		Long:          "gestation relays OSC traffic between VRChat and the avatar gestation system: it tracks each avatar's pregnancy record, persists it, and pushes derived values back to the avatar.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/gestation/config.toml)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment")
	flags.StringVar(&opts.apiURL, "api-url", "", "control API of a running daemon (default api.addr from config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(opts),
		newStatusCmd(opts),
		newMonitorCmd(opts),
		newRecheckCmd(opts),
		newConfigCmd(opts),
	)

	return rootCmd
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	return config.Load(config.LoadOptions{
		ConfigFile: opts.configFile,
		EnvFile:    opts.envFile,
		Flags:      cmd.Flags(),
		Getenv:     opts.getenv,
	})
}

func apiClient(cmd *cobra.Command, opts *rootOptions) (*httpapi.Client, error) {
	if opts.apiURL != "" {
		return httpapi.NewClient(opts.apiURL, nil), nil
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	return httpapi.NewClient(cfg.API.Addr, nil), nil
}
